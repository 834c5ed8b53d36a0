package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// RankEntry is one row of a scoreboard ranking.
type RankEntry struct {
	User  uuid.UUID `json:"user"`
	Score uint64    `json:"score"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// RoomStats describes the /rooms response.
type RoomStats struct {
	Connections int `json:"connections"`
	Rooms       []struct {
		ID       uuid.UUID `json:"id"`
		Sessions int       `json:"sessions"`
	} `json:"rooms"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: status %d", e.Status)
	}
	return fmt.Sprintf("request failed: status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is match ErrNotFound on 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

var (
	// ErrNotFound matches API errors with status 404.
	ErrNotFound = errors.New("not found")
	// ErrNilID is returned when a required id is the zero uuid.
	ErrNilID = errors.New("id is required")
)

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
