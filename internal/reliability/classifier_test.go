package reliability

import (
	"context"
	"errors"
	"testing"

	"github.com/luneapp/companion/internal/generation"
	"github.com/luneapp/companion/internal/profile"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureClass
	}{
		{"deadline", context.DeadlineExceeded, ClassTimeout},
		{"wrapped deadline", errors.Join(errors.New("send request"), context.DeadlineExceeded), ClassTimeout},
		{"rate limited", &generation.StatusError{Code: 429}, ClassRateLimited},
		{"quota 402", &generation.StatusError{Code: 402}, ClassQuotaExceeded},
		{"quota 403", &generation.StatusError{Code: 403}, ClassQuotaExceeded},
		{"unavailable 503", &generation.StatusError{Code: 503}, ClassUnavailable},
		{"odd status", &generation.StatusError{Code: 418}, ClassUnknown},
		{"plain error", errors.New("boom"), ClassUnknown},
		{"nil", nil, ClassUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestFallbackReplyPersonaVariant(t *testing.T) {
	got := FallbackReply(ClassTimeout, profile.PersonaMinimalist)
	if got != "Petit souci de connexion. Redis-le-moi ?" {
		t.Fatalf("minimalist timeout fallback = %q", got)
	}
}

func TestFallbackReplyGenericPerClass(t *testing.T) {
	for _, class := range []FailureClass{
		ClassRateLimited, ClassQuotaExceeded, ClassTimeout, ClassUnavailable, ClassUnknown,
	} {
		got := FallbackReply(class, profile.PersonaExplorer)
		if got == "" {
			t.Fatalf("empty fallback for class %s", class)
		}
	}
}

func TestFallbackReplyUnknownClassNeverEmpty(t *testing.T) {
	if got := FallbackReply(FailureClass("weird"), profile.PersonaHolistic); got == "" {
		t.Fatalf("unknown class produced an empty fallback")
	}
}
