// SPDX-FileCopyrightText: 2026 The myBase Authors
// SPDX-License-Identifier: Apache-2.0

package whatsapp

import (
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

func textPtr(s string) *string {
	return &s
}

func directMessageEvent(sender string, body string) *events.Message {
	jid := types.NewJID(sender, types.DefaultUserServer)

	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   jid,
				Sender: jid,
			},
			Timestamp: time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
		},
		RawMessage: &waE2E.Message{Conversation: textPtr(body)},
	}
}

func TestResolveOtherPartyJID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info types.MessageInfo
		want string
	}{
		{
			name: "outgoing device sent uses destination jid",
			info: types.MessageInfo{
				MessageSource: types.MessageSource{
					IsFromMe: true,
					Chat:     types.NewJID("11111111111", types.DefaultUserServer),
				},
				DeviceSentMeta: &types.DeviceSentMeta{DestinationJID: "22222222222@s.whatsapp.net"},
			},
			want: "22222222222@s.whatsapp.net",
		},
		{
			name: "outgoing lid destination prefers phone-addressed chat",
			info: types.MessageInfo{
				MessageSource: types.MessageSource{
					IsFromMe:     true,
					Chat:         types.NewJID("11111111111", types.DefaultUserServer),
					RecipientAlt: types.NewJID("99999999999", types.HiddenUserServer),
				},
				DeviceSentMeta: &types.DeviceSentMeta{DestinationJID: "88888888888@lid"},
			},
			want: "11111111111@s.whatsapp.net",
		},
		{
			name: "outgoing lid destination prefers phone recipient alt",
			info: types.MessageInfo{
				MessageSource: types.MessageSource{
					IsFromMe:     true,
					Chat:         types.NewJID("11111111111", types.HiddenUserServer),
					RecipientAlt: types.NewJID("33333333333", types.DefaultUserServer),
				},
				DeviceSentMeta: &types.DeviceSentMeta{DestinationJID: "88888888888@lid"},
			},
			want: "33333333333@s.whatsapp.net",
		},
		{
			name: "outgoing invalid destination falls back to phone-addressed chat",
			info: types.MessageInfo{
				MessageSource: types.MessageSource{
					IsFromMe:     true,
					Chat:         types.NewJID("11111111111", types.DefaultUserServer),
					RecipientAlt: types.NewJID("33333333333", types.HiddenUserServer),
				},
				DeviceSentMeta: &types.DeviceSentMeta{DestinationJID: "bad.dot.too.many@s.whatsapp.net"},
			},
			want: "11111111111@s.whatsapp.net",
		},
		{
			name: "incoming prefers sender",
			info: types.MessageInfo{
				MessageSource: types.MessageSource{
					Sender:    types.NewJID("44444444444", types.DefaultUserServer),
					SenderAlt: types.NewJID("55555555555", types.HiddenUserServer),
					Chat:      types.NewJID("66666666666", types.DefaultUserServer),
				},
			},
			want: "44444444444@s.whatsapp.net",
		},
		{
			name: "incoming lid sender prefers phone sender alt",
			info: types.MessageInfo{
				MessageSource: types.MessageSource{
					Sender:    types.NewJID("44444444444", types.HiddenUserServer),
					SenderAlt: types.NewJID("55555555555", types.DefaultUserServer),
					Chat:      types.NewJID("66666666666", types.HiddenUserServer),
				},
			},
			want: "55555555555@s.whatsapp.net",
		},
		{
			name: "incoming falls back to chat",
			info: types.MessageInfo{
				MessageSource: types.MessageSource{
					Chat: types.NewJID("77777777777", types.DefaultUserServer),
				},
			},
			want: "77777777777@s.whatsapp.net",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolveOtherPartyJID(tt.info).String(); got != tt.want {
				t.Fatalf("resolveOtherPartyJID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreferPhoneNumberJID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		primary   types.JID
		alternate types.JID
		want      string
	}{
		{
			name:      "prefer hidden fallback to phone",
			primary:   types.NewJID("11111111111", types.HiddenUserServer),
			alternate: types.NewJID("22222222222", types.DefaultUserServer),
			want:      "22222222222@s.whatsapp.net",
		},
		{
			name:      "prefer hidden fallback to legacy phone",
			primary:   types.NewJID("11111111111", types.HiddenUserServer),
			alternate: types.NewJID("22222222222", types.LegacyUserServer),
			want:      "22222222222@c.us",
		},
		{
			name:      "prefer hosted lid fallback to phone",
			primary:   types.NewJID("11111111111", types.HostedLIDServer),
			alternate: types.NewJID("22222222222", types.DefaultUserServer),
			want:      "22222222222@s.whatsapp.net",
		},
		{
			name:      "keep primary when already phone",
			primary:   types.NewJID("11111111111", types.DefaultUserServer),
			alternate: types.NewJID("22222222222", types.HiddenUserServer),
			want:      "11111111111@s.whatsapp.net",
		},
		{
			name:      "empty primary uses alternate",
			alternate: types.NewJID("22222222222", types.DefaultUserServer),
			want:      "22222222222@s.whatsapp.net",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := preferPhoneNumberJID(tt.primary, tt.alternate).String(); got != tt.want {
				t.Fatalf("preferPhoneNumberJID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsOutgoingMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info types.MessageInfo
		want bool
	}{
		{
			name: "from me",
			info: types.MessageInfo{MessageSource: types.MessageSource{IsFromMe: true}},
			want: true,
		},
		{
			name: "device sent destination",
			info: types.MessageInfo{DeviceSentMeta: &types.DeviceSentMeta{DestinationJID: "22222222222@s.whatsapp.net"}},
			want: true,
		},
		{
			name: "device sent missing destination",
			info: types.MessageInfo{DeviceSentMeta: &types.DeviceSentMeta{}},
			want: false,
		},
		{
			name: "incoming normal message",
			info: types.MessageInfo{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isOutgoingMessage(tt.info); got != tt.want {
				t.Fatalf("isOutgoingMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleMessageCapturesDirectChats(t *testing.T) {
	t.Parallel()

	type captured struct {
		jid      string
		outgoing bool
		message  string
	}

	var got []captured

	client := &Client{onMessage: func(jid string, _ time.Time, isOutgoing bool, message string) {
		got = append(got, captured{jid: jid, outgoing: isOutgoing, message: message})
	}}

	client.handleMessage(directMessageEvent("351911111111", "  Bom dia  "))

	if len(got) != 1 {
		t.Fatalf("expected one captured message, got %d", len(got))
	}

	if got[0].jid != "351911111111@s.whatsapp.net" {
		t.Fatalf("unexpected captured jid: %q", got[0].jid)
	}

	if got[0].outgoing {
		t.Fatal("incoming message must not be marked outgoing")
	}

	if got[0].message != "Bom dia" {
		t.Fatalf("expected trimmed message body, got %q", got[0].message)
	}
}

func TestHandleMessageMarksOwnMessagesOutgoing(t *testing.T) {
	t.Parallel()

	var gotOutgoing bool

	client := &Client{onMessage: func(_ string, _ time.Time, isOutgoing bool, _ string) {
		gotOutgoing = isOutgoing
	}}

	evt := directMessageEvent("351911111111", "estou a caminho")
	evt.Info.IsFromMe = true

	client.handleMessage(evt)

	if !gotOutgoing {
		t.Fatal("expected own message to be captured as outgoing")
	}
}

func TestHandleMessageSkipsGroupsAndEmptyBodies(t *testing.T) {
	t.Parallel()

	calls := 0

	client := &Client{onMessage: func(string, time.Time, bool, string) {
		calls++
	}}

	group := directMessageEvent("351911111111", "mensagem de grupo")
	group.Info.IsGroup = true
	client.handleMessage(group)

	client.handleMessage(directMessageEvent("351911111111", "   "))

	client.handleMessage(&events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   types.NewJID("351911111111", types.DefaultUserServer),
				Sender: types.NewJID("351911111111", types.DefaultUserServer),
			},
		},
	})

	if calls != 0 {
		t.Fatalf("expected no captured messages, got %d", calls)
	}
}

func TestExtractMessageText(t *testing.T) {
	t.Parallel()

	if got := extractMessageText(nil); got != "" {
		t.Fatalf("expected empty text for nil event, got %q", got)
	}

	extended := directMessageEvent("351911111111", "")
	extended.RawMessage = &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: textPtr("ver análises")},
	}

	if got := extractMessageText(extended); got != "ver análises" {
		t.Fatalf("expected extended text, got %q", got)
	}

	image := directMessageEvent("351911111111", "")
	image.RawMessage = &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{Caption: textPtr("resultado do exame")},
	}

	if got := extractMessageText(image); got != "<image> resultado do exame" {
		t.Fatalf("expected captioned image text, got %q", got)
	}
}

func TestSelfPhone(t *testing.T) {
	t.Parallel()

	var missing *Client
	if got := missing.SelfPhone(); got != "" {
		t.Fatalf("expected empty phone for nil client, got %q", got)
	}

	unpaired := &Client{deviceStore: &store.Device{}}
	if got := unpaired.SelfPhone(); got != "" {
		t.Fatalf("expected empty phone before pairing, got %q", got)
	}

	jid := types.NewJID("351210000000", types.DefaultUserServer)
	paired := &Client{deviceStore: &store.Device{ID: &jid}}

	if got := paired.SelfPhone(); got != "351210000000" {
		t.Fatalf("expected paired phone number, got %q", got)
	}
}
