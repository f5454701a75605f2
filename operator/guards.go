package operator

import (
	"context"

	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// relationGuard models a temporary partition relation as a scoped handle
// that removes the relation on release, so cleanup is unconditional on
// every exit path (success or error) rather than discipline-based (spec
// §9 "model each as a scoped handle that removes the relation on drop").
// Grounded on the teacher's pervasive defer-based resource discipline
// (e.g. every Iterator() caller in datalog/executor/join.go pairs a
// creation with a deferred Close()).
type relationGuard struct {
	store store
	id    string
}

// store is the minimal surface relationGuard needs; satisfied by
// storage.PageStore.
type store interface {
	RemoveRelation(ctx context.Context, id string) error
}

func newRelationGuard(s store, id string) *relationGuard {
	return &relationGuard{store: s, id: id}
}

// release removes the relation. Safe to call multiple times.
func (g *relationGuard) release(ctx context.Context) error {
	if g == nil || g.store == nil {
		return nil
	}
	err := g.store.RemoveRelation(ctx, g.id)
	g.store = nil
	return err
}

// pinSet models a block of pinned pages as a scoped handle whose release
// unpins every page, so block-nested-loop cannot leak pins even on error
// (spec §9 "Buffer-pool pinning"; §8 property 5).
type pinSet struct {
	pool *storage.BufferPool
	ids  []storage.PageID
}

func newPinSet(pool *storage.BufferPool) *pinSet {
	return &pinSet{pool: pool}
}

func (s *pinSet) pin(id storage.PageID) {
	s.ids = append(s.ids, id)
}

// release unpins every page pinned through this set. Safe to call once;
// callers invoke it via defer immediately after acquiring a block.
func (s *pinSet) release() {
	for _, id := range s.ids {
		s.pool.UnpinPage(id)
	}
	s.ids = nil
}
