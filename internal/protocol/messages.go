package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientMessage  MessageType = "client_message"
	TypeClientControl  MessageType = "client_control"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeSystemEvent    MessageType = "system_event"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientMessage is one user turn pushed over the websocket. Context
// mirrors the REST body: persona, phase, journey and client-held history.
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	UserID  string          `json:"user_id"`
	Message string          `json:"message"`
	Context json.RawMessage `json:"context,omitempty"`
	TSMs    int64           `json:"ts_ms,omitempty"`
}

// ClientControl carries conversation-level actions ("clear_memory").
type ClientControl struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Action string      `json:"action"`
}

// AssistantReply is the enriched reply for one turn.
type AssistantReply struct {
	Type           MessageType `json:"type"`
	UserID         string      `json:"user_id"`
	Text           string      `json:"text"`
	UsedSnippetIDs []string    `json:"used_snippet_ids,omitempty"`
	NavigationHint string      `json:"navigation_hint,omitempty"`
	Fallback       bool        `json:"fallback,omitempty"`
}

type SystemEvent struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientMessage:
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.UserID) == "" || strings.TrimSpace(msg.Message) == "" {
			return nil, errors.New("invalid client_message")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.UserID) == "" || strings.TrimSpace(msg.Action) == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
