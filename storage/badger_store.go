package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/georgejdanforth/dbsys-hw2/catalog"
)

// BadgerPageStore implements PageStore on top of BadgerDB, mirroring the
// teacher's BadgerStore (datalog/storage/badger_store.go): same tuned
// badger.Options, the same NewTransaction+Iterator wrapping shape, and the
// same fmt.Errorf("...: %w", err) wrapping discipline. Where the teacher
// indexes datoms across five key spaces (EAVT/AEVT/...), this store keeps
// one key space per relation: a metadata key holding the schema and page
// count, and one key per page holding its packed tuples.
type BadgerPageStore struct {
	db *badger.DB
	mu sync.Mutex // guards page-count increments per relation
}

// NewBadgerPageStore opens (or creates) a BadgerDB database at path with
// the same read-heavy-workload tuning the teacher applies.
func NewBadgerPageStore(path string) (*BadgerPageStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.MemTableSize = 128 << 20
	opts.BlockCacheSize = 256 << 20
	opts.IndexCacheSize = 100 << 20
	opts.DetectConflicts = false
	opts.NumCompactors = 4
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open badger: %w", err)
	}
	return &BadgerPageStore{db: db}, nil
}

type relMeta struct {
	schema       catalog.Schema
	pageCapacity int
	pageCount    uint64
}

func metaKey(id string) []byte {
	return append([]byte("\x00meta\x00"), []byte(id)...)
}

func pageKey(id string, index uint64) []byte {
	k := append([]byte("\x00page\x00"), []byte(id)...)
	k = append(k, 0)
	idx := make([]byte, 8)
	binary.BigEndian.PutUint64(idx, index)
	return append(k, idx...)
}

func encodeMeta(m relMeta) []byte {
	buf := make([]byte, 0, 64)
	buf = appendUvarint(buf, uint64(len(m.schema.RelationName)))
	buf = append(buf, m.schema.RelationName...)
	buf = appendUvarint(buf, uint64(len(m.schema.Fields)))
	for _, f := range m.schema.Fields {
		buf = appendUvarint(buf, uint64(len(f.Name)))
		buf = append(buf, f.Name...)
		buf = appendUvarint(buf, uint64(f.Type.Kind))
		buf = appendUvarint(buf, uint64(f.Type.Len))
	}
	buf = appendUvarint(buf, uint64(m.pageCapacity))
	buf = appendUvarint(buf, m.pageCount)
	return buf
}

func appendUvarint(buf []byte, v uint64) []byte {
	tmp := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(tmp, v)
	return append(buf, tmp[:n]...)
}

func decodeMeta(b []byte) (relMeta, error) {
	r := &byteReader{b: b}
	nameLen, err := binary.ReadUvarint(r)
	if err != nil {
		return relMeta{}, err
	}
	name := string(r.take(int(nameLen)))

	fieldCount, err := binary.ReadUvarint(r)
	if err != nil {
		return relMeta{}, err
	}
	fields := make([]catalog.Field, fieldCount)
	for i := range fields {
		fnLen, err := binary.ReadUvarint(r)
		if err != nil {
			return relMeta{}, err
		}
		fname := string(r.take(int(fnLen)))
		kind, err := binary.ReadUvarint(r)
		if err != nil {
			return relMeta{}, err
		}
		clen, err := binary.ReadUvarint(r)
		if err != nil {
			return relMeta{}, err
		}
		fields[i] = catalog.Field{Name: fname, Type: catalog.FieldType{Kind: catalog.FieldKind(kind), Len: int(clen)}}
	}
	pageCapacity, err := binary.ReadUvarint(r)
	if err != nil {
		return relMeta{}, err
	}
	pageCount, err := binary.ReadUvarint(r)
	if err != nil {
		return relMeta{}, err
	}
	return relMeta{
		schema:       catalog.Schema{RelationName: name, Fields: fields},
		pageCapacity: int(pageCapacity),
		pageCount:    pageCount,
	}, nil
}

type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) ReadByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("storage: unexpected end of metadata")
	}
	c := r.b[r.pos]
	r.pos++
	return c, nil
}

func (r *byteReader) take(n int) []byte {
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (s *BadgerPageStore) CreateRelation(ctx context.Context, id string, schema catalog.Schema, pageCapacity int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(metaKey(id))
		if err == nil {
			return ErrRelationExists(id)
		}
		if err != badger.ErrKeyNotFound {
			return fmt.Errorf("storage: checking relation %q: %w", id, err)
		}
		meta := relMeta{schema: schema, pageCapacity: pageCapacity}
		return txn.Set(metaKey(id), encodeMeta(meta))
	})
}

func (s *BadgerPageStore) RemoveRelation(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := append([]byte("\x00page\x00"), []byte(id)...)
		prefix = append(prefix, 0)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			keys = append(keys, k)
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("storage: removing page of relation %q: %w", id, err)
			}
		}
		if err := txn.Delete(metaKey(id)); err != nil && err != badger.ErrKeyNotFound {
			return fmt.Errorf("storage: removing relation %q: %w", id, err)
		}
		return nil
	})
}

func (s *BadgerPageStore) RelationExists(ctx context.Context, id string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(metaKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (s *BadgerPageStore) Schema(ctx context.Context, id string) (catalog.Schema, error) {
	m, err := s.readMeta(id)
	if err != nil {
		return catalog.Schema{}, err
	}
	return m.schema, nil
}

func (s *BadgerPageStore) readMeta(id string) (relMeta, error) {
	var m relMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrRelationNotFound(id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeMeta(val)
			if err != nil {
				return err
			}
			m = decoded
			return nil
		})
	})
	return m, err
}

// InsertTuple appends a packed tuple to the relation's current last page,
// opening a fresh page when the last one is full (spec §4.1
// emitOutputTuple, implemented here at the storage layer since the
// storage collaborator owns page layout).
func (s *BadgerPageStore) InsertTuple(ctx context.Context, id string, tuple []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrRelationNotFound(id)
		}
		if err != nil {
			return err
		}
		var meta relMeta
		if err := item.Value(func(val []byte) error {
			decoded, err := decodeMeta(val)
			if err != nil {
				return err
			}
			meta = decoded
			return nil
		}); err != nil {
			return err
		}

		var page *Page
		if meta.pageCount > 0 {
			lastKey := pageKey(id, meta.pageCount-1)
			pageItem, err := txn.Get(lastKey)
			if err != nil && err != badger.ErrKeyNotFound {
				return err
			}
			if err == nil {
				if err := pageItem.Value(func(val []byte) error {
					page = decodePage(PageID{RelationID: id, Index: meta.pageCount - 1}, val, meta.pageCapacity)
					return nil
				}); err != nil {
					return err
				}
			}
		}

		if page == nil || page.Full() {
			page = NewPage(PageID{RelationID: id, Index: meta.pageCount}, meta.pageCapacity)
			meta.pageCount++
			if err := txn.Set(metaKey(id), encodeMeta(meta)); err != nil {
				return err
			}
		}
		page.Insert(tuple)
		if err := txn.Set(pageKey(id, page.ID.Index), encodePage(page)); err != nil {
			return fmt.Errorf("storage: writing page %s: %w", page.ID, err)
		}
		return nil
	})
}

func encodePage(p *Page) []byte {
	buf := make([]byte, 0)
	buf = appendUvarint(buf, uint64(len(p.tuples)))
	for _, t := range p.tuples {
		buf = appendUvarint(buf, uint64(len(t)))
		buf = append(buf, t...)
	}
	return buf
}

func decodePage(id PageID, b []byte, capacity int) *Page {
	p := NewPage(id, capacity)
	r := &byteReader{b: b}
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return p
	}
	for i := uint64(0); i < count; i++ {
		tlen, err := binary.ReadUvarint(r)
		if err != nil {
			return p
		}
		p.tuples = append(p.tuples, r.take(int(tlen)))
	}
	return p
}

// Page fetches the page at id.Index directly, independent of any cursor's
// position, used by BufferPool to fill a frame on a cache miss.
func (s *BadgerPageStore) Page(ctx context.Context, id PageID) (*Page, error) {
	meta, err := s.readMeta(id.RelationID)
	if err != nil {
		return nil, err
	}
	if id.Index >= meta.pageCount {
		return nil, fmt.Errorf("storage: page %s out of range", id)
	}
	var page *Page
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(id.RelationID, id.Index))
		if err != nil {
			return fmt.Errorf("storage: reading page %s: %w", id, err)
		}
		return item.Value(func(val []byte) error {
			page = decodePage(id, val, meta.pageCapacity)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Pages returns a restartable cursor over the relation's pages in index
// order, grounded on the teacher's BadgerIterator (Next/Seek/Close shape
// in datalog/storage/badger_store.go) but reading whole pages rather than
// per-datom keys.
func (s *BadgerPageStore) Pages(ctx context.Context, id string) (PageCursor, error) {
	meta, err := s.readMeta(id)
	if err != nil {
		return nil, err
	}
	return &badgerPageCursor{store: s, relationID: id, capacity: meta.pageCapacity, pageCount: meta.pageCount, index: 0, started: false}, nil
}

type badgerPageCursor struct {
	store      *BadgerPageStore
	relationID string
	capacity   int
	pageCount  uint64
	index      uint64
	started    bool
	current    *Page
}

func (c *badgerPageCursor) Next(ctx context.Context) (bool, error) {
	if c.index >= c.pageCount {
		return false, nil
	}
	var page *Page
	err := c.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(c.relationID, c.index))
		if err != nil {
			return fmt.Errorf("storage: reading page %d of %q: %w", c.index, c.relationID, err)
		}
		return item.Value(func(val []byte) error {
			page = decodePage(PageID{RelationID: c.relationID, Index: c.index}, val, c.capacity)
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	c.current = page
	c.index++
	c.started = true
	return true, nil
}

func (c *badgerPageCursor) Page() *Page {
	return c.current
}

func (c *badgerPageCursor) Reopen(ctx context.Context) error {
	meta, err := c.store.readMeta(c.relationID)
	if err != nil {
		return err
	}
	c.pageCount = meta.pageCount
	c.index = 0
	c.started = false
	c.current = nil
	return nil
}

func (c *badgerPageCursor) Close() error {
	return nil
}

func (s *BadgerPageStore) Close() error {
	return s.db.Close()
}
