package watermark

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/pkg/kvstore"
)

func TestNewSinceClampsAtZero(t *testing.T) {
	tracker := NewTracker(kvstore.NewMemoryStore())
	user := uuid.New()

	// Nothing acknowledged yet: everything pending is new.
	assert.Equal(t, 7, tracker.NewSince(user, model.DepartmentSOSFU, 7))

	require.NoError(t, tracker.Acknowledge(user, model.DepartmentSOSFU, 7))
	assert.Equal(t, 0, tracker.NewSince(user, model.DepartmentSOSFU, 7))
	assert.Equal(t, 2, tracker.NewSince(user, model.DepartmentSOSFU, 9))

	// The queue shrank below the watermark; the delta never goes
	// negative.
	assert.Equal(t, 0, tracker.NewSince(user, model.DepartmentSOSFU, 3))
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	tracker := NewTracker(kvstore.NewMemoryStore())
	user := uuid.New()

	require.NoError(t, tracker.Acknowledge(user, model.DepartmentSEFIN, 4))
	require.NoError(t, tracker.Acknowledge(user, model.DepartmentSEFIN, 4))
	assert.Equal(t, 4, tracker.LastSeen(user, model.DepartmentSEFIN))

	// A negative count is stored as zero.
	require.NoError(t, tracker.Acknowledge(user, model.DepartmentSEFIN, -1))
	assert.Equal(t, 0, tracker.LastSeen(user, model.DepartmentSEFIN))
}

func TestWatermarksAreScopedPerUserAndDepartment(t *testing.T) {
	tracker := NewTracker(kvstore.NewMemoryStore())
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, tracker.Acknowledge(alice, model.DepartmentSOSFU, 5))

	assert.Equal(t, 5, tracker.LastSeen(alice, model.DepartmentSOSFU))
	assert.Equal(t, 0, tracker.LastSeen(alice, model.DepartmentSODPA))
	assert.Equal(t, 0, tracker.LastSeen(bob, model.DepartmentSOSFU))
}

func TestCorruptStateReadsAsZero(t *testing.T) {
	store := kvstore.NewMemoryStore()
	tracker := NewTracker(store)
	user := uuid.New()

	require.NoError(t, store.Set("watermark:"+user.String()+":SOSFU", "not-a-number"))
	assert.Equal(t, 0, tracker.LastSeen(user, model.DepartmentSOSFU))
	assert.Equal(t, 5, tracker.NewSince(user, model.DepartmentSOSFU, 5))

	require.NoError(t, store.Set("watermark:"+user.String()+":SOSFU", "-3"))
	assert.Equal(t, 0, tracker.LastSeen(user, model.DepartmentSOSFU))
}

func TestReset(t *testing.T) {
	tracker := NewTracker(kvstore.NewMemoryStore())
	user := uuid.New()

	require.NoError(t, tracker.Acknowledge(user, model.DepartmentSOSFU, 10))
	require.NoError(t, tracker.Reset(user, model.DepartmentSOSFU))
	assert.Equal(t, 10, tracker.NewSince(user, model.DepartmentSOSFU, 10))
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermarks.json")
	user := uuid.New()

	tracker := NewTracker(kvstore.NewFileStore(path))
	require.NoError(t, tracker.Acknowledge(user, model.DepartmentSOSFU, 6))

	// A fresh tracker over the same file sees the acknowledged count.
	reopened := NewTracker(kvstore.NewFileStore(path))
	assert.Equal(t, 6, reopened.LastSeen(user, model.DepartmentSOSFU))
}
