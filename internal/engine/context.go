package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/continuo/continuo/internal/storage"
	"github.com/continuo/continuo/pkg/types"
)

// defaultSnapshotTTL applies when a caller supplies no TTL. Snapshots are
// deliberately short-lived; long-term knowledge belongs in memories.
const defaultSnapshotTTL = 24 * time.Hour

// ContextService owns session-scoped context snapshots: a key/value
// overlay bridging successive caller sessions. One row exists per
// (session_id, context_type); last write wins, and pruning is governed by
// TTL alone with no decay scoring.
type ContextService struct {
	store storage.ContextStore
	now   func() time.Time
}

// NewContextService creates a context service.
func NewContextService(store storage.ContextStore) *ContextService {
	return &ContextService{store: store, now: time.Now}
}

// Put writes the snapshot for (sessionID, contextType), overwriting any
// previous value. A non-positive TTL uses the default.
func (s *ContextService) Put(ctx context.Context, sessionID, contextType string, data map[string]interface{}, importance float64, ttl time.Duration) error {
	if sessionID == "" || contextType == "" {
		return fmt.Errorf("%w: session_id and context_type are required", storage.ErrInvalidInput)
	}
	if !inUnitRange(importance) {
		return fmt.Errorf("%w: importance %v", ErrInvalidRange, importance)
	}
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	now := s.now()
	return s.store.PutSnapshot(ctx, &types.ContextSnapshot{
		SessionID:   sessionID,
		ContextType: contextType,
		ContextData: data,
		Importance:  importance,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Get returns the live snapshot for (sessionID, contextType), or
// storage.ErrNotFound when absent or expired.
func (s *ContextService) Get(ctx context.Context, sessionID, contextType string) (*types.ContextSnapshot, error) {
	return s.store.GetSnapshot(ctx, sessionID, contextType, s.now())
}

// Prune deletes expired snapshots and returns the count.
func (s *ContextService) Prune(ctx context.Context, now time.Time) (int, error) {
	return s.store.PruneSnapshots(ctx, now)
}
