// Package llm generates food item lists through the OpenAI assistants
// API.  A generation run is asynchronous server side, so the client
// polls the run until it completes; the whole exchange can take
// several seconds and is always bounded by the caller's context.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNoContent is returned when a run completes without a usable
	// assistant message.
	ErrNoContent = errors.New("assistant returned no content")
)

const (
	apiBase      = "https://api.openai.com/v1"
	pollInterval = time.Second
	maxPolls     = 30
)

// Client drives one OpenAI assistant that writes pizzeria orders.  The
// assistant id is created out of band and supplied via configuration.
type Client struct {
	apiKey      string
	assistantID string
	http        *http.Client
}

// NewClient builds an assistant client.
func NewClient(apiKey, assistantID string) *Client {
	return &Client{
		apiKey:      apiKey,
		assistantID: assistantID,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// ItemList asks the assistant for an order sized for the given
// household and returns the generated item lines.
func (c *Client) ItemList(ctx context.Context, householdSize int) ([]string, error) {
	if c.apiKey == "" || c.assistantID == "" {
		return nil, errors.New("assistant not configured")
	}

	threadID, err := c.createThread(ctx)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Please create an order for a family of %d people.", householdSize)
	if err := c.addMessage(ctx, threadID, prompt); err != nil {
		return nil, err
	}
	runID, err := c.startRun(ctx, threadID)
	if err != nil {
		return nil, err
	}

	// Poll the run until it settles.  The context bounds the total wait.
	for i := 0; i < maxPolls; i++ {
		status, err := c.runStatus(ctx, threadID, runID)
		if err != nil {
			return nil, err
		}
		if status == "completed" {
			return c.latestItems(ctx, threadID)
		}
		if status == "failed" || status == "cancelled" || status == "expired" {
			return nil, fmt.Errorf("assistant run ended with status %q", status)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return nil, errors.New("assistant run did not complete in time")
}

func (c *Client) createThread(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/threads", nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) addMessage(ctx context.Context, threadID, content string) error {
	in := map[string]string{"role": "user", "content": content}
	return c.call(ctx, http.MethodPost, "/threads/"+threadID+"/messages", in, nil)
}

func (c *Client) startRun(ctx context.Context, threadID string) (string, error) {
	in := map[string]string{"assistant_id": c.assistantID}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/threads/"+threadID+"/runs", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) runStatus(ctx context.Context, threadID, runID string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) latestItems(ctx context.Context, threadID string) ([]string, error) {
	var out struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, &out); err != nil {
		return nil, err
	}
	for _, m := range out.Data {
		if m.Role != "assistant" || len(m.Content) == 0 {
			continue
		}
		items := ParseItemList(m.Content[0].Text.Value)
		if len(items) == 0 {
			return nil, ErrNoContent
		}
		return items, nil
	}
	return nil, ErrNoContent
}

func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("openai: %s %s returned HTTP %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ParseItemList extracts item lines out of the assistant's markdown
// list response.  Bullet markers and surrounding whitespace are
// stripped; blank lines are skipped.
func ParseItemList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}
