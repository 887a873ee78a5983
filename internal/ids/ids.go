// Package ids produces the identifiers used as primary keys everywhere:
// users, organizations, tasks and audit rows all share the same format.
package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a fresh ULID string. ULIDs sort by creation time, which keeps
// audit rows with equal timestamps in insertion order and makes task and
// organization keys index-friendly.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
