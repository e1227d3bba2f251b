package generation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGeneratorModes(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"auto without url", Config{Mode: "auto"}, "*generation.MockGenerator", false},
		{"auto with url", Config{Mode: "auto", HTTPURL: "http://localhost:9999"}, "*generation.HTTPGenerator", false},
		{"empty mode is auto", Config{}, "*generation.MockGenerator", false},
		{"explicit mock", Config{Mode: "mock"}, "*generation.MockGenerator", false},
		{"explicit http", Config{Mode: "http", HTTPURL: "http://localhost:9999"}, "*generation.HTTPGenerator", false},
		{"http without url", Config{Mode: "http"}, "", true},
		{"unknown mode", Config{Mode: "quantum"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("New(%+v) expected error", tc.cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%+v) error = %v", tc.cfg, err)
			}
			if got := typeName(g); got != tc.want {
				t.Fatalf("generator type = %s, want %s", got, tc.want)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *MockGenerator:
		return "*generation.MockGenerator"
	case *HTTPGenerator:
		return "*generation.HTTPGenerator"
	default:
		return "unknown"
	}
}

func TestMockGeneratorEchoesMessage(t *testing.T) {
	g := NewMockGenerator()

	got, err := g.Generate(context.Background(), Request{UserMessage: "J'ai mal au ventre"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(got.Text, "J'ai mal au ventre") {
		t.Fatalf("mock reply does not echo the message: %q", got.Text)
	}
}

func TestMockGeneratorHonorsCancellation(t *testing.T) {
	g := NewMockGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, Request{UserMessage: "bonjour"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestHTTPGeneratorRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Bonjour Camille","tokens_used":12}`))
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL)
	got, err := g.Generate(context.Background(), Request{UserID: "u1", UserMessage: "Salut !"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Text != "Bonjour Camille" || got.TokensUsed != 12 {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestHTTPGeneratorStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL)
	_, err := g.Generate(context.Background(), Request{UserMessage: "Salut !"})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d, want 429", statusErr.Code)
	}
}

func TestHTTPGeneratorRejectsEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text":"  "}`))
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL)
	if _, err := g.Generate(context.Background(), Request{UserMessage: "Salut !"}); err == nil {
		t.Fatalf("expected error for empty backend text")
	}
}
