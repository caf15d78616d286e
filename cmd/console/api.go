package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/chat"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// getJSON decodes a 200 response into out, or turns the API error body into an error.
func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return decodeResponse(resp, http.StatusOK, out)
}

func decodeResponse(resp *http.Response, want int, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func listUsers(client *http.Client, baseURL string) ([]actor.User, error) {
	var users []actor.User
	if err := getJSON(client, baseURL+"/v1/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func getChatLog(client *http.Client, baseURL, userID string, limit int) ([]chat.Entry, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("limit", fmt.Sprint(limit))
	var entries []chat.Entry
	if err := getJSON(client, baseURL+"/v1/chatlog?"+q.Encode(), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func sendChat(client *http.Client, baseURL, userID, message string) (*chat.ChatResponse, error) {
	jsonData, err := json.Marshal(chat.ChatRequest{UserID: userID, Message: message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/chat",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var chatResp chat.ChatResponse
	if err := decodeResponse(resp, http.StatusOK, &chatResp); err != nil {
		return nil, err
	}
	return &chatResp, nil
}

func clearHistory(client *http.Client, baseURL, userID string) error {
	req, err := http.NewRequest(http.MethodDelete, baseURL+"/v1/history/"+url.PathEscape(userID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return decodeResponse(resp, http.StatusNoContent, nil)
}

// listenToChatLog connects to the chat log stream and forwards entries to
// entryChan until the stream ends or ctx is cancelled.
func listenToChatLog(ctx context.Context, client *http.Client, baseURL, userID string, entryChan chan<- chat.Entry) error {
	streamURL := fmt.Sprintf("%s/v1/chatlog/stream?user_id=%s", baseURL, url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to chat log stream: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat log stream failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var eventType, data string

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line ends an event
			if eventType == "entry" && data != "" {
				var e chat.Entry
				if err := json.Unmarshal([]byte(data), &e); err == nil {
					select {
					case entryChan <- e:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			eventType, data = "", ""
			continue
		}

		if v, ok := strings.CutPrefix(line, "event: "); ok {
			eventType = v
		} else if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading chat log stream: %w", err)
	}
	return nil
}
