/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Status represents the WhatsApp connection status
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusPairing      Status = "pairing"
)

// MessageHandler is called when a WhatsApp message is sent or received
type MessageHandler func(jid string, timestamp time.Time, isOutgoing bool, message string)

// Client manages the WhatsApp connection via whatsmeow
type Client struct {
	client        *whatsmeow.Client
	container     *sqlstore.Container
	deviceStore   *store.Device
	status        Status
	qrCode        string // Base64 encoded PNG
	mu            sync.RWMutex
	onMessage     MessageHandler
	stopReconnect chan struct{}
}

var (
	instance *Client
	once     sync.Once
)

// GetClient returns the singleton WhatsApp client instance
func GetClient() *Client {
	return instance
}

// Initialize sets up the WhatsApp client with PostgreSQL storage
func Initialize(ctx context.Context, databaseURL string, onMessage MessageHandler) error {
	var initErr error
	once.Do(func() {
		// Device name shown under WhatsApp linked devices
		store.SetOSInfo("myBase", [3]uint32{1, 0, 0})

		container, err := sqlstore.New(ctx, "pgx", databaseURL, waLog.Noop)
		if err != nil {
			initErr = fmt.Errorf("failed to create sqlstore: %w", err)
			return
		}

		deviceStore, err := container.GetFirstDevice(ctx)
		if err != nil {
			initErr = fmt.Errorf("failed to get device: %w", err)
			return
		}

		instance = &Client{
			container:     container,
			deviceStore:   deviceStore,
			status:        StatusDisconnected,
			onMessage:     onMessage,
			stopReconnect: make(chan struct{}),
		}

		// If we have an existing device, try to reconnect
		if deviceStore.ID != nil {
			go func() {
				if err := instance.Reconnect(context.Background()); err != nil {
					logger.Warn("Initial reconnect failed", "error", err)
				}
			}()
		}
	})

	return initErr
}

// GetStatus returns the current connection status
func (c *Client) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// GetQRCode returns the current QR code as a base64 PNG string
func (c *Client) GetQRCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.qrCode
}

// SelfPhone returns the paired account's phone number, or "" before
// pairing completes.
func (c *Client) SelfPhone() string {
	if c == nil || c.deviceStore == nil || c.deviceStore.ID == nil {
		return ""
	}

	return c.deviceStore.ID.User
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

func (c *Client) setQRCode(qrCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qrCode = qrCode
}

// Connect initiates the WhatsApp connection, pairing via QR code when
// no device credentials exist yet.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)

	c.client = whatsmeow.NewClient(c.deviceStore, newWALogger("client"))
	c.client.AddEventHandler(c.handleEvent)

	c.client.EnableAutoReconnect = true
	c.client.AutoTrustIdentity = true

	// If already logged in, just connect
	if c.client.Store.ID != nil {
		err := c.client.Connect()
		if err != nil {
			c.setStatus(StatusDisconnected)
			return fmt.Errorf("failed to connect: %w", err)
		}
		c.setStatus(StatusConnected)
		return nil
	}

	// Need to pair - get QR code channel BEFORE connecting
	c.setStatus(StatusPairing)
	qrChan, _ := c.client.GetQRChannel(ctx)

	err := c.client.Connect()
	if err != nil {
		c.setStatus(StatusDisconnected)
		return fmt.Errorf("failed to connect: %w", err)
	}

	go func() {
		for evt := range qrChan {
			logger.Debug("WhatsApp QR event", "event", evt.Event)

			switch evt.Event {
			case "code":
				png, err := qrcode.Encode(evt.Code, qrcode.Medium, 256)
				if err != nil {
					logger.Warn("Failed to generate QR code", "error", err)
					continue
				}

				c.setQRCode(base64.StdEncoding.EncodeToString(png))
				logger.Info("WhatsApp QR code generated")
			case "success":
				c.setQRCode("")
				c.setStatus(StatusConnected)
				logger.Info("WhatsApp pairing successful")
			case "timeout":
				c.setQRCode("")
				c.setStatus(StatusDisconnected)
				logger.Warn("WhatsApp QR code timeout")
			case "error":
				c.setQRCode("")
				c.setStatus(StatusDisconnected)
				logger.Warn("WhatsApp pairing error", "error", evt.Error)
			}
		}
	}()

	return nil
}

// Reconnect attempts to reconnect with existing credentials
func (c *Client) Reconnect(ctx context.Context) error {
	if c.deviceStore.ID == nil {
		return errNoExistingSessionToReconnect
	}

	c.setStatus(StatusConnecting)

	c.client = whatsmeow.NewClient(c.deviceStore, newWALogger("client"))
	c.client.AddEventHandler(c.handleEvent)
	c.client.EnableAutoReconnect = true
	c.client.AutoTrustIdentity = true

	err := c.client.Connect()
	if err != nil {
		c.setStatus(StatusDisconnected)
		return fmt.Errorf("failed to reconnect: %w", err)
	}

	c.setStatus(StatusConnected)
	logger.Info("WhatsApp reconnected")
	return nil
}

// Disconnect cleanly disconnects the WhatsApp client
func (c *Client) Disconnect() {
	if c.client != nil {
		c.client.Disconnect()
	}
	c.setStatus(StatusDisconnected)
	c.setQRCode("")
}

// Logout disconnects and removes the device credentials
func (c *Client) Logout() error {
	if c.client == nil {
		return nil
	}

	ctx := context.Background()
	err := c.client.Logout(ctx)
	if err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	c.setStatus(StatusDisconnected)
	c.setQRCode("")

	// Get a fresh device store
	deviceStore, err := c.container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get new device: %w", err)
	}
	c.deviceStore = deviceStore

	return nil
}

// handleEvent processes WhatsApp events
func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		c.setStatus(StatusConnected)
		logger.Info("WhatsApp connected")

	case *events.Disconnected:
		c.setStatus(StatusDisconnected)
		logger.Info("WhatsApp disconnected")

	case *events.LoggedOut:
		c.setStatus(StatusDisconnected)
		logger.Info("WhatsApp logged out")

	case *events.Message:
		c.handleMessage(v)
	}
}

// handleMessage processes incoming/outgoing messages
func (c *Client) handleMessage(evt *events.Message) {
	// Skip group messages - only track direct chats
	if evt.Info.IsGroup {
		return
	}

	messageText := extractMessageText(evt)
	if messageText == "" {
		return
	}

	jid := resolveOtherPartyJID(evt.Info)

	if c.onMessage != nil {
		c.onMessage(jid.String(), evt.Info.Timestamp, isOutgoingMessage(evt.Info), messageText)
	}
}

// isOutgoingMessage reports whether the message was sent from this
// account, including messages synced from the primary device.
func isOutgoingMessage(info types.MessageInfo) bool {
	if info.IsFromMe {
		return true
	}

	return info.DeviceSentMeta != nil && info.DeviceSentMeta.DestinationJID != ""
}

// resolveOtherPartyJID finds the other party of a direct chat, always
// preferring a phone-addressed JID over a hidden-user (lid) one.
func resolveOtherPartyJID(info types.MessageInfo) types.JID {
	if isOutgoingMessage(info) {
		if meta := info.DeviceSentMeta; meta != nil && meta.DestinationJID != "" {
			dest, err := types.ParseJID(meta.DestinationJID)
			if err == nil && isPhoneAddressedJID(dest) {
				return dest
			}
		}

		return preferPhoneNumberJID(info.Chat, info.RecipientAlt)
	}

	if !info.Sender.IsEmpty() {
		if sender := preferPhoneNumberJID(info.Sender, info.SenderAlt); isPhoneAddressedJID(sender) {
			return sender
		}
	}

	return preferPhoneNumberJID(info.Chat, info.SenderAlt)
}

// preferPhoneNumberJID picks whichever JID is phone-addressed, falling
// back to the primary.
func preferPhoneNumberJID(primary, alternate types.JID) types.JID {
	if isPhoneAddressedJID(primary) {
		return primary
	}

	if isPhoneAddressedJID(alternate) {
		return alternate
	}

	return primary
}

func isPhoneAddressedJID(jid types.JID) bool {
	if jid.User == "" {
		return false
	}

	return jid.Server == types.DefaultUserServer || jid.Server == types.LegacyUserServer
}

func extractMessageText(evt *events.Message) string {
	if evt == nil {
		return ""
	}

	messageEvent := evt.UnwrapRaw()
	if messageEvent == nil || messageEvent.Message == nil {
		return ""
	}

	message := messageEvent.Message
	if text := strings.TrimSpace(message.GetConversation()); text != "" {
		return text
	}

	if extended := message.GetExtendedTextMessage(); extended != nil {
		if text := strings.TrimSpace(extended.GetText()); text != "" {
			return text
		}
	}

	if image := message.GetImageMessage(); image != nil {
		if caption := strings.TrimSpace(image.GetCaption()); caption != "" {
			return "<image> " + caption
		}
	}

	return ""
}

// IsConnected returns true if WhatsApp is connected
func (c *Client) IsConnected() bool {
	return c.GetStatus() == StatusConnected
}
