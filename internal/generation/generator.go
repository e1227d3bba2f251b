// Package generation bridges the engine to the external text generation
// backend. The backend is an opaque awaited dependency: the engine supplies
// a timeout through the context and never retries here.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request is the normalized generation request: the assembled instruction
// text plus the raw user message.
type Request struct {
	UserID      string `json:"user_id"`
	Instruction string `json:"instruction"`
	UserMessage string `json:"user_message"`
}

// Response is the backend's reply.
type Response struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
}

// Generator produces a reply for one turn.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Config controls generator construction.
type Config struct {
	Mode    string
	HTTPURL string
}

// New builds a generator for the configured mode. "auto" picks HTTP when a
// URL is configured and falls back to the deterministic mock otherwise.
func New(cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPGenerator(cfg.HTTPURL), nil
		}
		return NewMockGenerator(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("generator HTTP url is required for http mode")
		}
		return NewHTTPGenerator(cfg.HTTPURL), nil
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported generator mode %q", cfg.Mode)
	}
}
