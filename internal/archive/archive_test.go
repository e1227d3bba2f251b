package archive

import (
	"context"
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{
			"email",
			"Écris-moi sur camille.d@example.fr stp",
			"Écris-moi sur [MASQUÉ_EMAIL] stp",
			true,
		},
		{
			"phone",
			"Mon numéro est 06 12 34 56 78",
			"Mon numéro est [MASQUÉ_TEL]",
			true,
		},
		{
			"card before phone",
			"carte 4111 1111 1111 1111 ok",
			"carte [MASQUÉ_CARTE] ok",
			true,
		},
		{
			"clean text untouched",
			"J'ai des crampes depuis ce matin",
			"J'ai des crampes depuis ce matin",
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := redactPII(tc.in)
			if got != tc.want {
				t.Fatalf("redactPII(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if changed != tc.changed {
				t.Fatalf("changed = %v, want %v", changed, tc.changed)
			}
		})
	}
}

func TestInMemoryStoreSaveAndRecent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for _, content := range []string{"premier", "deuxième", "troisième"} {
		err := s.SaveTurn(ctx, Record{UserID: "u1", Role: "user", Content: content})
		if err != nil {
			t.Fatalf("SaveTurn() error = %v", err)
		}
	}

	got, err := s.RecentTurns(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("recent = %d records, want 2", len(got))
	}
	if got[0].Content != "deuxième" || got[1].Content != "troisième" {
		t.Fatalf("unexpected recent order: %+v", got)
	}
	for _, rec := range got {
		if rec.ID == "" || rec.CreatedAt.IsZero() {
			t.Fatalf("record not prepared: %+v", rec)
		}
	}
}

func TestInMemoryStoreRedactsOnSave(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	err := s.SaveTurn(ctx, Record{UserID: "u1", Role: "user", Content: "joins-moi au 06 12 34 56 78"})
	if err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	got, err := s.RecentTurns(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if !got[0].Redacted || strings.Contains(got[0].Content, "06 12") {
		t.Fatalf("PII survived archival: %+v", got[0])
	}
}

func TestInMemoryStoreUnknownUser(t *testing.T) {
	s := NewInMemoryStore()
	got, err := s.RecentTurns(context.Background(), "ghost", 5)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown user, got %+v", got)
	}
}

func TestNewStoreFactoryDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("store type = %T, want *InMemoryStore", s)
	}
}
