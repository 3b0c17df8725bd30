package watermark

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/pkg/kvstore"
)

// Tracker computes "new pending items since I last looked" per user and
// department. State lives behind a kvstore.Store so loss degrades to
// everything looking new, never to an error or a negative count.
type Tracker struct {
	store kvstore.Store
}

func NewTracker(store kvstore.Store) *Tracker {
	return &Tracker{store: store}
}

func key(userID uuid.UUID, dept model.Department) string {
	return fmt.Sprintf("watermark:%s:%s", userID, dept)
}

// LastSeen returns the acknowledged count, zero when absent or corrupt.
func (t *Tracker) LastSeen(userID uuid.UUID, dept model.Department) int {
	raw, ok := t.store.Get(key(userID, dept))
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// NewSince is clamped at zero: a transient dip in the pending count
// never produces a negative delta.
func (t *Tracker) NewSince(userID uuid.UUID, dept model.Department, currentPending int) int {
	delta := currentPending - t.LastSeen(userID, dept)
	if delta < 0 {
		return 0
	}
	return delta
}

// Acknowledge records the current count as seen. Idempotent.
func (t *Tracker) Acknowledge(userID uuid.UUID, dept model.Department, currentPending int) error {
	if currentPending < 0 {
		currentPending = 0
	}
	return t.store.Set(key(userID, dept), strconv.Itoa(currentPending))
}

// Reset clears the watermark so everything reads as new again.
func (t *Tracker) Reset(userID uuid.UUID, dept model.Department) error {
	return t.store.Set(key(userID, dept), "0")
}
