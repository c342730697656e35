/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"net/http"

	"github.com/flamego/flamego"

	"github.com/mybasehealth/mybase/whatsapp"
)

// WhatsAppStatus returns the current WhatsApp pairing status as JSON.
// The QR code is a base64-encoded PNG while pairing is in progress.
func WhatsAppStatus(c flamego.Context) {
	client := whatsapp.GetClient()

	response := map[string]interface{}{
		"status":    "unavailable",
		"qrCode":    "",
		"connected": false,
	}

	if client != nil {
		response["status"] = string(client.GetStatus())
		response["qrCode"] = client.GetQRCode()
		response["connected"] = client.IsConnected()
	}

	respondJSON(c, http.StatusOK, response)
}

// WhatsAppConnect initiates the WhatsApp connection
func WhatsAppConnect(c flamego.Context) {
	client := whatsapp.GetClient()

	if client == nil {
		respondError(c, http.StatusServiceUnavailable, "WhatsApp is not available")
		return
	}

	// Use background context since the connection needs to persist beyond the HTTP request
	go func() {
		if err := client.Connect(context.Background()); err != nil {
			logger.Error("WhatsApp connect failed", "error", err)
		}
	}()

	respondJSON(c, http.StatusAccepted, map[string]string{"status": string(client.GetStatus())})
}

// WhatsAppDisconnect logs out and removes the paired device.
func WhatsAppDisconnect(c flamego.Context) {
	client := whatsapp.GetClient()

	if client == nil {
		respondError(c, http.StatusServiceUnavailable, "WhatsApp is not available")
		return
	}

	if err := client.Logout(); err != nil {
		logger.Error("WhatsApp logout failed", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to disconnect WhatsApp")

		return
	}

	respondJSON(c, http.StatusOK, map[string]string{"status": string(whatsapp.StatusDisconnected)})
}
