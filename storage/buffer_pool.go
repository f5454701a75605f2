package storage

import (
	"context"
	"fmt"
	"sync"
)

// BufferPool caches pages and tracks pinning, so a block-nested-loop join
// can hold an outer block resident while it probes the inner relation
// (spec §3, §4.3.2). New code — the teacher has no page buffer pool of its
// own (it is a KV triple-store) — but the pin-count-guards-eviction shape
// follows the general buffer-manager pattern surveyed across the example
// pack, written in the teacher's plain mutex-guarded-struct idiom (as in
// executor.CachingIterator) rather than a concurrent/latch-based design,
// since spec §5 specifies single-threaded, cooperative-by-iteration
// scheduling with no need for fine-grained locking.
type BufferPool struct {
	store    PageStore
	capacity int

	mu     sync.Mutex
	frames map[PageID]*frame
	order  []PageID // insertion order, used to pick an eviction candidate
}

type frame struct {
	page   *Page
	pinned int
}

// NewBufferPool creates a pool backed by store with room for capacity
// resident pages.
func NewBufferPool(store PageStore, capacity int) *BufferPool {
	return &BufferPool{
		store:    store,
		capacity: capacity,
		frames:   make(map[PageID]*frame, capacity),
	}
}

// GetPage returns the already-resident frame for id, or fills it from
// store on a miss, optionally pinning it. Pinned pages are never evicted
// until UnpinPage is called a matching number of times.
func (p *BufferPool) GetPage(ctx context.Context, id PageID, pinned bool) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.frames[id]; ok {
		if pinned {
			f.pinned++
		}
		return f.page, nil
	}

	page, err := p.store.Page(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("storage: buffer pool miss on %s: %w", id, err)
	}

	if len(p.frames) >= p.capacity {
		if !p.evictLocked() {
			return nil, fmt.Errorf("storage: buffer pool full, no unpinned frame to evict")
		}
	}

	f := &frame{page: page}
	if pinned {
		f.pinned = 1
	}
	p.frames[id] = f
	p.order = append(p.order, id)
	return f.page, nil
}

// evictLocked removes the oldest unpinned frame. Caller holds p.mu.
func (p *BufferPool) evictLocked() bool {
	for i, id := range p.order {
		f, ok := p.frames[id]
		if !ok {
			continue
		}
		if f.pinned == 0 {
			delete(p.frames, id)
			p.order = append(p.order[:i], p.order[i+1:]...)
			return true
		}
	}
	return false
}

// UnpinPage decrements a page's pin count. It panics if the page was not
// pinned, matching the teacher's fail-fast-on-invariant-break idiom
// (e.g. StreamingRelation's double-iteration panic in relation.go).
func (p *BufferPool) UnpinPage(id PageID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.frames[id]
	if !ok || f.pinned == 0 {
		panic(fmt.Sprintf("storage: unpin of non-pinned page %s", id))
	}
	f.pinned--
}

// NumFreePages reports how many more pages could be admitted without
// evicting a pinned frame (spec §3, §6 bufferPool.numFreePages).
func (p *BufferPool) NumFreePages() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := p.capacity
	for _, f := range p.frames {
		if f.pinned > 0 {
			free--
		}
	}
	return free
}
