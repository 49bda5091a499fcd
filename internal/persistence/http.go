package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tatianab/franco-game/internal/models"
)

// Actions understood by the save API.
const (
	ActionSave   = "saveGame"
	ActionLoad   = "loadGame"
	ActionDelete = "deleteGame"
	ActionTest   = "test"
)

// Request is the body of every call to the save API.
type Request struct {
	Action   string           `json:"action"`
	UserID   string           `json:"userId"`
	GameData *models.Snapshot `json:"gameData,omitempty"`
}

const maxResponseBytes = 1 << 20

// HTTPStore talks to the remote save API: a single endpoint taking POSTed
// JSON requests.
type HTTPStore struct {
	endpoint string
	client   *http.Client
}

// NewHTTPStore returns a store for endpoint. A nil client means http.DefaultClient.
func NewHTTPStore(endpoint string, client *http.Client) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{endpoint: endpoint, client: client}
}

func (s *HTTPStore) Save(ctx context.Context, userID string, snap models.Snapshot) error {
	if snap.Inventory == nil {
		snap.Inventory = []string{}
	}
	_, err := s.call(ctx, Request{Action: ActionSave, UserID: userID, GameData: &snap})
	return err
}

func (s *HTTPStore) Load(ctx context.Context, userID string) (*models.Snapshot, error) {
	body, err := s.call(ctx, Request{Action: ActionLoad, UserID: userID})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if snap.CurrentRoom == "" {
		return nil, fmt.Errorf("%w: missing currentRoom", ErrMalformed)
	}
	if snap.Inventory == nil {
		snap.Inventory = []string{}
	}
	return &snap, nil
}

func (s *HTTPStore) Delete(ctx context.Context, userID string) error {
	_, err := s.call(ctx, Request{Action: ActionDelete, UserID: userID})
	if isStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

// Ping sends the test action.
func (s *HTTPStore) Ping(ctx context.Context) error {
	_, err := s.call(ctx, Request{Action: ActionTest})
	return err
}

func (s *HTTPStore) call(ctx context.Context, r Request) ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// The caller gave up; that says nothing about the store.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnreachable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
