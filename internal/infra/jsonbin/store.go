// Package jsonbin persists tracker message ids per guild in a JSONBin.io bin.
package jsonbin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"boss_alert_bot/internal/domain/tracker"
)

const defaultTimeout = 10 * time.Second

// Store talks to the JSONBin v3 API. The bin record maps guild ids to their
// tracker message id, so channel ids are not persisted.
type Store struct {
	client  *http.Client
	baseURL string
	binID   string
	apiKey  string
}

var _ tracker.Store = (*Store)(nil)

// NewStore returns a Store; a nil client gets a default with a timeout.
func NewStore(baseURL, binID, apiKey string, client *http.Client) *Store {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Store{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		binID:   binID,
		apiKey:  apiKey,
	}
}

type latestResponse struct {
	Record map[string]json.RawMessage `json:"record"`
}

// latest fetches the whole record; a missing bin reads as empty.
func (s *Store) latest(ctx context.Context) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/b/%s/latest", s.baseURL, s.binID), nil)
	if err != nil {
		return nil, fmt.Errorf("build jsonbin request: %w", err)
	}
	req.Header.Set("X-Master-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jsonbin get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return map[string]json.RawMessage{}, nil
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode jsonbin record: %w", err)
	}
	if body.Record == nil {
		body.Record = map[string]json.RawMessage{}
	}
	return body.Record, nil
}

func (s *Store) Get(ctx context.Context, guildID string) (*tracker.Message, error) {
	record, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	raw, ok := record[guildID]
	if !ok {
		return nil, nil
	}
	id, err := decodeID(raw)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return &tracker.Message{GuildID: guildID, MessageID: id}, nil
}

// decodeID accepts both the stringified id and a bare JSON number written by
// older deployments.
func decodeID(raw json.RawMessage) (string, error) {
	if string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("jsonbin message_id is neither string nor number: %s", raw)
	}
	return n.String(), nil
}

// Set rewrites the guild's entry and keeps every other guild's. The
// read-modify-write is not atomic; writes only come from the subscribe command.
func (s *Store) Set(ctx context.Context, msg tracker.Message) error {
	record, err := s.latest(ctx)
	if err != nil {
		return err
	}
	id, err := json.Marshal(msg.MessageID)
	if err != nil {
		return fmt.Errorf("encode jsonbin record: %w", err)
	}
	record[msg.GuildID] = id

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode jsonbin record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/b/%s", s.baseURL, s.binID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build jsonbin request: %w", err)
	}
	req.Header.Set("X-Master-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("jsonbin put: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("jsonbin %s %s: status %d: %s",
		resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
