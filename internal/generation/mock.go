package generation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MockGenerator produces deterministic local replies when no backend is
// configured, so the full pipeline stays exercisable in dev and tests.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	text := buildMockReply(req)
	return Response{
		Text:       text,
		TokensUsed: utf8.RuneCountInString(req.Instruction+req.UserMessage) / 4,
	}, nil
}

func buildMockReply(req Request) string {
	message := strings.TrimSpace(req.UserMessage)
	if message == "" {
		return "Je suis là, je t'écoute."
	}
	return fmt.Sprintf("Je t'entends : %s. Comment te sens-tu à ce sujet ?", message)
}
