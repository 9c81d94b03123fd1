package queue

import (
	"testing"
)

func TestMessageWireFormat(t *testing.T) {
	payload, err := EncodeMessage(Message{
		DocumentID: "doc-123",
		RequestID:  "request-456",
		EnqueuedAt: "2026-01-30T22:00:00Z",
		Version:    MessageVersion,
	})
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	want := `{"documentId":"doc-123","requestId":"request-456","enqueuedAt":"2026-01-30T22:00:00Z","version":1}`
	if string(payload) != want {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
