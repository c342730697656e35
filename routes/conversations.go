/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"

	"github.com/flamego/flamego"

	"github.com/mybasehealth/mybase/db"
)

// ListConversations lists all WhatsApp conversations, most recently
// active first.
func ListConversations(c flamego.Context) {
	conversations, err := db.ListConversations(c.Request().Context())
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, conversations)
}

// ListConversationMessages returns a conversation's messages in send
// order.
func ListConversationMessages(c flamego.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	messages, err := db.ListMessages(c.Request().Context(), id.String())
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, messages)
}

// CloseConversation marks a conversation as closed. New messages from
// the same phone number will open a fresh conversation.
func CloseConversation(c flamego.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := db.CloseConversation(c.Request().Context(), id.String()); err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, map[string]string{"status": "closed"})
}

// ReopenConversation reactivates a closed conversation.
func ReopenConversation(c flamego.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := db.ReopenConversation(c.Request().Context(), id.String()); err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, map[string]string{"status": "active"})
}
