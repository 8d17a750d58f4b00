package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/anima-narrator/internal/handlers"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// apiClient talks to the narrator API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, client *http.Client) *apiClient {
	return &apiClient{baseURL: baseURL, http: client}
}

func (c *apiClient) testConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) listClasses(ctx context.Context) ([]handlers.ClassSummary, error) {
	var out []handlers.ClassSummary
	err := c.do(ctx, http.MethodGet, "/v1/classes", nil, http.StatusOK, &out)
	return out, err
}

func (c *apiClient) createGame(ctx context.Context, playerName, class string) (*handlers.GameResponse, error) {
	var out handlers.GameResponse
	req := handlers.CreateGameRequest{PlayerName: playerName, Class: class}
	if err := c.do(ctx, http.MethodPost, "/v1/games", req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) getGame(ctx context.Context, id string) (*handlers.GameResponse, error) {
	var out handlers.GameResponse
	if err := c.do(ctx, http.MethodGet, "/v1/games/"+id, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) sendCommand(ctx context.Context, id, message string) (*chat.CommandResponse, error) {
	var out chat.CommandResponse
	req := chat.CommandRequest{Message: message}
	if err := c.do(ctx, http.MethodPost, "/v1/games/"+id+"/commands", req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) confirmRoll(ctx context.Context, id string, useAlternative bool) (*chat.CommandResponse, error) {
	var out chat.CommandResponse
	req := chat.RollConfirmRequest{UseAlternative: useAlternative}
	if err := c.do(ctx, http.MethodPost, "/v1/games/"+id+"/roll", req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends body as JSON and decodes the reply into out when the status
// matches want. Otherwise the API's error message is returned.
func (c *apiClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
