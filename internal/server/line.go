package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// lineClient pushes replies to the messaging platform's reply endpoint.
// Reply tokens are single-use and short-lived, so the call carries its own
// bounded timeout.
type lineClient struct {
	replyURL string
	token    string
	client   *http.Client
}

func newLineClient(replyURL, token string) *lineClient {
	return &lineClient{
		replyURL: replyURL,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reply sends one text message for replyToken.
func (c *lineClient) Reply(ctx context.Context, replyToken, text string) error {
	body, _ := json.Marshal(map[string]any{
		"replyToken": replyToken,
		"messages":   []replyMessage{{Type: "text", Text: text}},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.replyURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("reply POST failed: %s", resp.Status)
	}
	return nil
}
