// Package server hosts the webhook transport boundary: signed event
// delivery in, reply strings out. The answering core only ever sees the
// extracted message text.
package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// Answerer is the transport-facing subset of the pipeline.
type Answerer interface {
	Answer(ctx context.Context, text string) string
}

// ReadyChecker reports whether the index is ready to serve queries.
type ReadyChecker interface {
	Ready() bool
}

// Reindexer rebuilds the corpus index; triggered explicitly, never per
// message.
type Reindexer func(ctx context.Context) error

// Config configures the webhook server.
type Config struct {
	ChannelSecret string
	ChannelToken  string
	ReplyURL      string
}

// Server handles webhook callbacks, the readiness probe, and the explicit
// reindex trigger.
type Server struct {
	pipeline      Answerer
	index         ReadyChecker
	reindex       Reindexer
	channelSecret []byte
	line          *lineClient
	log           *slog.Logger

	reindexMu sync.Mutex // single-flight for /reindex
}

// New creates a Server.
func New(pipeline Answerer, index ReadyChecker, reindex Reindexer, cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		pipeline:      pipeline,
		index:         index,
		reindex:       reindex,
		channelSecret: []byte(cfg.ChannelSecret),
		line:          newLineClient(cfg.ReplyURL, cfg.ChannelToken),
		log:           log.With("component", "server"),
	}
}

// Handler returns the HTTP mux for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /callback", s.handleCallback)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /reindex", s.handleReindex)
	return mux
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Message    struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

type webhookBody struct {
	Events []webhookEvent `json:"events"`
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if !s.validSignature(body, r.Header.Get("X-Line-Signature")) {
		s.log.Warn("rejected callback: bad signature")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var payload webhookBody
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "parse error", http.StatusBadRequest)
		return
	}

	for _, ev := range payload.Events {
		if ev.Type != "message" || ev.Message.Type != "text" || ev.ReplyToken == "" {
			continue
		}
		reply := s.pipeline.Answer(r.Context(), ev.Message.Text)
		if err := s.line.Reply(r.Context(), ev.ReplyToken, reply); err != nil {
			s.log.Warn("reply push failed", "error", err)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// validSignature checks the HMAC-SHA256 of the raw body against the
// base64-encoded signature header, in constant time.
func (s *Server) validSignature(body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, s.channelSecret)
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := "initializing"
	code := http.StatusServiceUnavailable
	if s.index.Ready() {
		status = "ready"
		code = http.StatusOK
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if !s.reindexMu.TryLock() {
		http.Error(w, "reindex already running", http.StatusConflict)
		return
	}
	go func() {
		defer s.reindexMu.Unlock()
		if err := s.reindex(context.Background()); err != nil {
			s.log.Warn("reindex run failed", "error", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}
