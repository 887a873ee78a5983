// Package audit records every mutating action to an append-only trail.
// Entries are persisted and additionally mirrored as structured JSON log
// lines for operators tailing the service output.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"opsboard.dev/internal/ids"
	"opsboard.dev/internal/obs"
)

// ListLimit caps audit retrieval to the most recent entries.
const ListLimit = 100

// Entry is one append-only audit row. Entries are never mutated or deleted.
type Entry struct {
	ID             string    `json:"id"`
	Action         string    `json:"action"`
	UserID         string    `json:"userId"`
	OrganizationID string    `json:"organizationId"`
	Allowed        bool      `json:"allowed"`
	Resource       string    `json:"resource,omitempty"`
	ResourceID     string    `json:"resourceId,omitempty"`
	Details        string    `json:"details,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store appends immutable entries and lists the most recent ones.
type Store interface {
	AppendAudit(ctx context.Context, e *Entry) error
	ListRecentAudit(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder is the audit trail front-end used by every mutating service.
type Recorder struct {
	store Store
	now   func() time.Time
}

// RecorderOption configures Recorder behavior.
type RecorderOption func(*Recorder)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder.
func NewRecorder(store Store, opts ...RecorderOption) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit: store is required")
	}
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record fills in identifier and timestamp, appends the entry and mirrors
// it to the structured log. The append is not retried; a failure is the
// caller's failure.
func (r *Recorder) Record(ctx context.Context, e Entry) (Entry, error) {
	e.Action = strings.TrimSpace(e.Action)
	if e.Action == "" {
		return Entry{}, fmt.Errorf("%w: audit action is required", errInvalidEntry)
	}
	e.ID = ids.New()
	e.CreatedAt = r.now().UTC()
	if err := r.store.AppendAudit(ctx, &e); err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	r.mirror(e)
	return e, nil
}

// List returns entries most-recent-first, capped at ListLimit.
func (r *Recorder) List(ctx context.Context) ([]Entry, error) {
	return r.store.ListRecentAudit(ctx, ListLimit)
}

var errInvalidEntry = errors.New("invalid audit entry")

func (r *Recorder) mirror(e Entry) {
	line := map[string]any{
		"ts":      e.CreatedAt.Format(time.RFC3339Nano),
		"type":    "audit",
		"action":  e.Action,
		"user_id": e.UserID,
		"org_id":  e.OrganizationID,
		"allowed": e.Allowed,
	}
	if e.Resource != "" {
		line["resource"] = e.Resource
	}
	if e.ResourceID != "" {
		line["resource_id"] = e.ResourceID
	}
	if e.Details != "" {
		line["details"] = e.Details
	}
	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	obs.Logger().Println(string(data))
}
