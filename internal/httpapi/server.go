package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/luneapp/companion/internal/catalog"
	"github.com/luneapp/companion/internal/config"
	"github.com/luneapp/companion/internal/engine"
	"github.com/luneapp/companion/internal/observability"
	"github.com/luneapp/companion/internal/profile"
	"github.com/luneapp/companion/internal/protocol"
)

type Server struct {
	cfg      config.Config
	engine   *engine.Engine
	catalog  *catalog.Catalog
	metrics  *observability.Metrics
	stages   *observability.StageWindow
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, eng *engine.Engine, cat *catalog.Catalog, metrics *observability.Metrics, stages *observability.StageWindow, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:     cfg,
		engine:  eng,
		catalog: cat,
		metrics: metrics,
		stages:  stages,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so another site cannot drive a conversation if
				// the service is ever exposed beyond the app backend.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat/turn", s.handleChatTurn)
	r.Get("/v1/chat/ws", s.handleChatWS)
	r.Post("/v1/chat/memory/{userID}/clear", s.handleClearMemory)
	r.Post("/v1/prompt/preview", s.handlePromptPreview)
	r.Get("/v1/perf/turns", s.handlePerfTurns)
	r.Get("/v1/catalog/snippets", s.handleListSnippets)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"catalog_size": s.catalog.Size(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"generator_mode": s.cfg.GeneratorMode,
		"archive":        s.cfg.DatabaseURL != "",
	})
}

func (s *Server) handleChatTurn(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	resp, err := s.engine.HandleTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyMessage) {
			respondError(w, http.StatusBadRequest, "empty_message", err.Error())
			return
		}
		s.logger.Error("turn failed", "user_id", req.UserID, "err", err)
		respondError(w, http.StatusInternalServerError, "turn_failed", "could not handle turn")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "missing user id")
		return
	}
	s.engine.ClearMemory(userID)
	respondJSON(w, http.StatusOK, map[string]any{"status": "cleared", "user_id": userID})
}

func (s *Server) handlePromptPreview(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	preview, err := s.engine.PreviewPrompt(req)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyMessage) {
			respondError(w, http.StatusBadRequest, "empty_message", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "preview_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

func (s *Server) handlePerfTurns(w http.ResponseWriter, _ *http.Request) {
	if s.stages == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "stage window not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.stages.Snapshot())
}

func (s *Server) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	phase := profile.ParsePhase(r.URL.Query().Get("phase"))
	snippets := s.catalog.ByPhase(phase)
	respondJSON(w, http.StatusOK, map[string]any{
		"phase":    string(phase),
		"count":    len(snippets),
		"snippets": snippets,
	})
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.countWS("outbound", t)
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.send(ctx, outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.countWS("inbound", t)
		}

		switch msg := parsed.(type) {
		case protocol.ClientMessage:
			s.handleWSMessage(ctx, outbound, msg)
		case protocol.ClientControl:
			s.handleWSControl(ctx, outbound, msg)
		}

		if ctx.Err() != nil {
			break
		}
	}

	cancel()
	<-writerDone
}

func (s *Server) handleWSMessage(ctx context.Context, outbound chan<- any, msg protocol.ClientMessage) {
	req := engine.Request{UserID: msg.UserID, Message: msg.Message}
	if len(msg.Context) > 0 {
		if err := json.Unmarshal(msg.Context, &req.Context); err != nil {
			s.send(ctx, outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				UserID:    msg.UserID,
				Code:      "invalid_context",
				Retryable: false,
				Detail:    err.Error(),
			})
			return
		}
	}

	resp, err := s.engine.HandleTurn(ctx, req)
	if err != nil {
		code := "turn_failed"
		if errors.Is(err, engine.ErrEmptyMessage) {
			code = "empty_message"
		}
		s.send(ctx, outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			UserID:    msg.UserID,
			Code:      code,
			Retryable: true,
			Detail:    err.Error(),
		})
		return
	}

	s.send(ctx, outbound, protocol.AssistantReply{
		Type:           protocol.TypeAssistantReply,
		UserID:         msg.UserID,
		Text:           resp.Text,
		UsedSnippetIDs: resp.UsedSnippetIDs,
		NavigationHint: resp.NavigationHint,
		Fallback:       resp.Fallback,
	})
}

func (s *Server) handleWSControl(ctx context.Context, outbound chan<- any, msg protocol.ClientControl) {
	switch msg.Action {
	case "clear_memory":
		s.engine.ClearMemory(msg.UserID)
		s.send(ctx, outbound, protocol.SystemEvent{
			Type:   protocol.TypeSystemEvent,
			UserID: msg.UserID,
			Code:   "memory_cleared",
		})
	default:
		s.send(ctx, outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			UserID:    msg.UserID,
			Code:      "unknown_action",
			Retryable: false,
			Detail:    msg.Action,
		})
	}
}

// send queues a message for the single writer goroutine; drops when the
// outbound queue is saturated to keep the read loop responsive.
func (s *Server) send(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case <-ctx.Done():
	case outbound <- msg:
	default:
		s.logger.Warn("outbound ws queue full, dropping message")
	}
}

func (s *Server) countWS(direction string, t protocol.MessageType) {
	if s.metrics != nil {
		s.metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientMessage:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.AssistantReply:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
