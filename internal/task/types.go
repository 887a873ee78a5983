package task

import (
	"strings"
	"time"
)

// Status is the lane a task sits in on the board.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// ParseStatus validates raw input against the closed status set.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusTodo, StatusInProgress, StatusDone:
		return Status(raw), true
	default:
		return "", false
	}
}

// Category classifies a task. The set is closed; three legacy aliases from
// an older theme are still accepted on update and translated before storage.
type Category string

const (
	CategoryClaims Category = "claims"
	CategoryEdu    Category = "edu"
	CategoryLoans  Category = "loans"
	CategoryOps    Category = "ops"
)

// ParseCategory validates raw input against the canonical category set only.
func ParseCategory(raw string) (Category, bool) {
	switch Category(raw) {
	case CategoryClaims, CategoryEdu, CategoryLoans, CategoryOps:
		return Category(raw), true
	default:
		return "", false
	}
}

// NormalizeCategory accepts the canonical set plus the legacy aliases
// work, personal and other, which map to ops, edu and claims.
func NormalizeCategory(raw string) (Category, bool) {
	if c, ok := ParseCategory(raw); ok {
		return c, true
	}
	switch strings.TrimSpace(raw) {
	case "work":
		return CategoryOps, true
	case "personal":
		return CategoryEdu, true
	case "other":
		return CategoryClaims, true
	default:
		return "", false
	}
}

// Task belongs to exactly one organization and is visible only to callers
// whose resolved scope contains that organization.
type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         Status    `json:"status"`
	Category       Category  `json:"category"`
	SortOrder      int       `json:"sortOrder"`
	OrganizationID string    `json:"organizationId"`
	CreatedBy      string    `json:"createdByUserId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateInput carries the caller-supplied fields for a new task.
type CreateInput struct {
	Title       string
	Description string
	Category    string
}

// Patch holds partial-update fields; nil means "leave unchanged".
type Patch struct {
	Title       *string
	Description *string
	Status      *string
	Category    *string
	SortOrder   *float64
}

// ReorderEntry moves one task to a lane position.
type ReorderEntry struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	SortOrder float64 `json:"sortOrder"`
}

// Change is a validated reorder mutation applied by the store.
type Change struct {
	ID        string
	Status    Status
	SortOrder int
}
