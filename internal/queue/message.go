package queue

import (
	"context"
	"encoding/json"
)

// MessageVersion is the payload version written by this build.
const MessageVersion = 1

// Message asks a consumer to process one document.
type Message struct {
	DocumentID string `json:"documentId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// Client hands a document to an asynchronous processing backend. Send returns
// once the backend has accepted the message, not when processing finishes.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
