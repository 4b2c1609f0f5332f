package whatsapp

import (
	"encoding/json"
	"strings"
)

// InboundMessage is one customer message lifted out of a Cloud API webhook
// delivery. PhoneNumberID is the routing key that identifies which tenant's
// number received it.
type InboundMessage struct {
	PhoneNumberID string
	From          string
	ContactName   string
	MessageID     string
	Type          string
	Body          string
}

// webhookEnvelope mirrors the Cloud API delivery shape. Fields the platform
// does not use are omitted.
type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseInbound extracts customer messages from a webhook delivery. Status
// updates and unknown payloads yield an empty slice, never an error the
// caller would bounce back to Meta: webhook deliveries are acknowledged no
// matter what they carry. Non-text messages come through as a typed
// placeholder body so the conversation log stays complete.
func ParseInbound(payload []byte) []InboundMessage {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}

	var out []InboundMessage
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			names := make(map[string]string, len(value.Contacts))
			for _, contact := range value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, msg := range value.Messages {
				if msg.From == "" || value.Metadata.PhoneNumberID == "" {
					continue
				}
				body := msg.Text.Body
				if msg.Type != "text" {
					body = "[" + msg.Type + " message]"
				}
				if strings.TrimSpace(body) == "" {
					continue
				}
				out = append(out, InboundMessage{
					PhoneNumberID: value.Metadata.PhoneNumberID,
					From:          msg.From,
					ContactName:   names[msg.From],
					MessageID:     msg.ID,
					Type:          msg.Type,
					Body:          body,
				})
			}
		}
	}
	return out
}
