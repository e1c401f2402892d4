package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "channel-secret"

type echoAnswerer struct{ calls int }

func (a *echoAnswerer) Answer(_ context.Context, text string) string {
	a.calls++
	return "answer to: " + text
}

type readyStub bool

func (r readyStub) Ready() bool { return bool(r) }

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookPayload(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"events": []map[string]any{
			{
				"type":       "message",
				"replyToken": "tok-1",
				"message":    map[string]any{"type": "text", "text": text},
			},
		},
	})
	return body
}

func newTestServer(t *testing.T, answerer Answerer, ready ReadyChecker, reindex Reindexer) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var replies []map[string]any
	replySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		replies = append(replies, body)
	}))
	t.Cleanup(replySrv.Close)

	if reindex == nil {
		reindex = func(context.Context) error { return nil }
	}
	s := New(answerer, ready, reindex, Config{
		ChannelSecret: testSecret,
		ChannelToken:  "token",
		ReplyURL:      replySrv.URL,
	}, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, &replies
}

func TestCallback_AnswersTextMessage(t *testing.T) {
	answerer := &echoAnswerer{}
	srv, replies := newTestServer(t, answerer, readyStub(true), nil)

	body := webhookPayload("ช่วงการวัดคือเท่าไร")
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/callback", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", sign(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, answerer.calls)
	require.Len(t, *replies, 1)
	assert.Equal(t, "tok-1", (*replies)[0]["replyToken"])
}

func TestCallback_RejectsBadSignature(t *testing.T) {
	answerer := &echoAnswerer{}
	srv, replies := newTestServer(t, answerer, readyStub(true), nil)

	body := webhookPayload("อะไรก็ได้")
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/callback", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", "not-a-valid-signature")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, answerer.calls)
	assert.Empty(t, *replies)
}

func TestCallback_IgnoresNonTextEvents(t *testing.T) {
	answerer := &echoAnswerer{}
	srv, replies := newTestServer(t, answerer, readyStub(true), nil)

	body, _ := json.Marshal(map[string]any{
		"events": []map[string]any{
			{"type": "message", "replyToken": "tok-2", "message": map[string]any{"type": "sticker"}},
			{"type": "follow", "replyToken": "tok-3"},
		},
	})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/callback", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", sign(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, answerer.calls)
	assert.Empty(t, *replies)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &echoAnswerer{}, readyStub(true), nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	notReady, _ := newTestServer(t, &echoAnswerer{}, readyStub(false), nil)
	resp2, err := http.Get(notReady.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestReindex_SingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var startOnce sync.Once
	var runs atomic.Int32
	reindex := func(context.Context) error {
		runs.Add(1)
		startOnce.Do(func() { close(started) })
		<-release
		return nil
	}
	srv, _ := newTestServer(t, &echoAnswerer{}, readyStub(true), reindex)

	resp, err := http.Post(srv.URL+"/reindex", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	<-started
	resp2, err := http.Post(srv.URL+"/reindex", "", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)

	close(release)
	require.Eventually(t, func() bool {
		resp3, err := http.Post(srv.URL+"/reindex", "", nil)
		if err != nil {
			return false
		}
		defer resp3.Body.Close()
		return resp3.StatusCode == http.StatusAccepted
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}
