/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var nonDigitRegex = regexp.MustCompile(`[^\d]`)

// normalizePhone removes all non-digit characters from a phone number
func normalizePhone(phone string) string {
	return nonDigitRegex.ReplaceAllString(phone, "")
}

// FindHumanByPhone finds a human by phone number using normalized
// suffix matching, which tolerates country code differences. Returns
// nil when no human matches.
func FindHumanByPhone(ctx context.Context, phoneNumber string) (*Human, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	normalized := normalizePhone(phoneNumber)
	if normalized == "" {
		return nil, nil //nolint:nilnil // unmatchable input, not an error
	}

	query := `
		SELECT id, name, birthdate, gender, phone_number, created_at, updated_at
		FROM humans
		WHERE phone_number IS NOT NULL
		  AND (
			REGEXP_REPLACE(phone_number, '[^\d]', '', 'g') = $1
			OR (
				LENGTH(REGEXP_REPLACE(phone_number, '[^\d]', '', 'g')) >= 7
				AND (
					REGEXP_REPLACE(phone_number, '[^\d]', '', 'g') LIKE '%' || RIGHT($1, 9)
					OR $1 LIKE '%' || RIGHT(REGEXP_REPLACE(phone_number, '[^\d]', '', 'g'), 9)
				)
			)
		  )
		ORDER BY created_at
		LIMIT 1
	`

	var human Human

	err := pool.QueryRow(ctx, query, normalized).Scan(
		&human.ID, &human.Name, &human.Birthdate, &human.Gender, &human.PhoneNumber,
		&human.CreatedAt, &human.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // no match is a valid result
		}

		return nil, fmt.Errorf("failed to find human by phone: %w", err)
	}

	return &human, nil
}

// RecordWhatsAppMessageInput contains parameters for recording a message
type RecordWhatsAppMessageInput struct {
	CustomerPhone string
	CompanyPhone  *string
	Timestamp     time.Time
	Outgoing      bool
	Body          string
}

// RecordWhatsAppMessage appends a message to the active conversation
// for the customer phone, creating the conversation (and attaching the
// matching human, if any) on first contact.
func RecordWhatsAppMessage(ctx context.Context, input RecordWhatsAppMessageInput) (*Message, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	conversation, err := findOrCreateActiveConversation(ctx, input.CustomerPhone, input.CompanyPhone)
	if err != nil {
		return nil, err
	}

	direction := DirectionInbound
	if input.Outgoing {
		direction = DirectionOutbound
	}

	var message Message

	query := `
		INSERT INTO messages (conversation_id, direction, body, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, direction, body, sent_at, created_at
	`

	err = pool.QueryRow(ctx, query, conversation.ID, direction, input.Body, input.Timestamp).Scan(
		&message.ID, &message.ConversationID, &message.Direction,
		&message.Body, &message.SentAt, &message.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record message: %w", err)
	}

	bump := `
		UPDATE conversations
		SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2), updated_at = now()
		WHERE id = $1
	`

	if _, err := pool.Exec(ctx, bump, conversation.ID, input.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to bump conversation: %w", err)
	}

	return &message, nil
}

// findOrCreateActiveConversation returns the customer's open
// conversation, creating one when none is active.
func findOrCreateActiveConversation(ctx context.Context, customerPhone string, companyPhone *string) (*Conversation, error) {
	normalized := normalizePhone(customerPhone)

	var conversation Conversation

	query := `
		SELECT id, human_id, customer_phone_number, company_phone_number, status, last_message_at, created_at, updated_at
		FROM conversations
		WHERE customer_phone_number = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := pool.QueryRow(ctx, query, normalized).Scan(
		&conversation.ID, &conversation.HumanID, &conversation.CustomerPhoneNumber,
		&conversation.CompanyPhoneNumber, &conversation.Status, &conversation.LastMessageAt,
		&conversation.CreatedAt, &conversation.UpdatedAt,
	)
	if err == nil {
		return &conversation, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to find active conversation: %w", err)
	}

	var humanID *uuid.UUID

	human, err := FindHumanByPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if human != nil {
		humanID = &human.ID
	}

	insert := `
		INSERT INTO conversations (human_id, customer_phone_number, company_phone_number)
		VALUES ($1, $2, $3)
		RETURNING id, human_id, customer_phone_number, company_phone_number, status, last_message_at, created_at, updated_at
	`

	err = pool.QueryRow(ctx, insert, humanID, normalized, companyPhone).Scan(
		&conversation.ID, &conversation.HumanID, &conversation.CustomerPhoneNumber,
		&conversation.CompanyPhoneNumber, &conversation.Status, &conversation.LastMessageAt,
		&conversation.CreatedAt, &conversation.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	logger.Info("Opened conversation", "conversation_id", conversation.ID, "has_human", humanID != nil)

	return &conversation, nil
}

// CloseConversation marks a conversation closed; the next message from
// the same phone opens a fresh one.
func CloseConversation(ctx context.Context, id string) error {
	return setConversationStatus(ctx, id, ConversationClosed)
}

// ReopenConversation reactivates a closed conversation.
func ReopenConversation(ctx context.Context, id string) error {
	return setConversationStatus(ctx, id, ConversationActive)
}

func setConversationStatus(ctx context.Context, id string, status ConversationStatus) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	tag, err := pool.Exec(ctx, `
		UPDATE conversations
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}

	return nil
}

// AssociateConversationsWithHuman attaches unclaimed conversations whose
// customer phone matches the human's number.
func AssociateConversationsWithHuman(ctx context.Context, human *Human) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	if human.PhoneNumber == nil {
		return nil
	}

	normalized := normalizePhone(*human.PhoneNumber)
	if normalized == "" {
		return nil
	}

	query := `
		UPDATE conversations
		SET human_id = $1, updated_at = now()
		WHERE human_id IS NULL
		  AND (
			customer_phone_number = $2
			OR (
				LENGTH(customer_phone_number) >= 7
				AND (
					customer_phone_number LIKE '%' || RIGHT($2, 9)
					OR $2 LIKE '%' || RIGHT(customer_phone_number, 9)
				)
			)
		  )
	`

	tag, err := pool.Exec(ctx, query, human.ID, normalized)
	if err != nil {
		return fmt.Errorf("failed to associate conversations: %w", err)
	}

	if tag.RowsAffected() > 0 {
		logger.Info("Associated conversations with human", "human_id", human.ID, "count", tag.RowsAffected())
	}

	return nil
}

// ListConversations returns conversations, most recent activity first.
func ListConversations(ctx context.Context) ([]Conversation, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT id, human_id, customer_phone_number, company_phone_number, status, last_message_at, created_at, updated_at
		FROM conversations
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation

	for rows.Next() {
		var c Conversation
		if err := rows.Scan(
			&c.ID, &c.HumanID, &c.CustomerPhoneNumber, &c.CompanyPhoneNumber,
			&c.Status, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		conversations = append(conversations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

// ListMessages returns a conversation's messages oldest first.
func ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT id, conversation_id, direction, body, sent_at, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at ASC, created_at ASC
	`

	rows, err := pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message

	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.Direction, &m.Body, &m.SentAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
