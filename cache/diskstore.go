package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// DiskStore implements Store on a local LevelDB database. It backs local
// development and tests; production uses S3Store.
type DiskStore struct {
	db  *leveldb.DB
	now func() time.Time
}

type diskRecord struct {
	Body         []byte
	ContentType  string
	Metadata     map[string]string
	LastModified int64 // unix milliseconds
}

// DiskOption configures a DiskStore
type DiskOption func(*DiskStore)

// WithClock overrides the clock used to stamp LastModified on Put
func WithClock(now func() time.Time) DiskOption {
	return func(d *DiskStore) { d.now = now }
}

// OpenDiskStore opens (or creates) a LevelDB database at path
func OpenDiskStore(path string, opts ...DiskOption) (*DiskStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return newDiskStore(db, opts...), nil
}

// NewMemoryStore returns a DiskStore backed by in-memory LevelDB storage
func NewMemoryStore(opts ...DiskOption) (*DiskStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newDiskStore(db, opts...), nil
}

func newDiskStore(db *leveldb.DB, opts ...DiskOption) *DiskStore {
	d := &DiskStore{db: db, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *DiskStore) Close() error {
	return d.db.Close()
}

func entryKey(key string) []byte { return []byte("e:" + key) }

// Get implements Reader
func (d *DiskStore) Get(ctx context.Context, key string) (*Object, error) {
	b, err := d.db.Get(entryKey(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get %s: %w", key, err)
	}

	var rec diskRecord
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", key, err)
	}
	return &Object{
		Key:          key,
		Body:         rec.Body,
		ContentType:  rec.ContentType,
		Metadata:     rec.Metadata,
		LastModified: time.UnixMilli(rec.LastModified),
	}, nil
}

// Put implements Writer
func (d *DiskStore) Put(ctx context.Context, obj *Object) error {
	rec := diskRecord{
		Body:         obj.Body,
		ContentType:  obj.ContentType,
		Metadata:     obj.Metadata,
		LastModified: d.now().UnixMilli(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return fmt.Errorf("encode record %s: %w", obj.Key, err)
	}
	if err := d.db.Put(entryKey(obj.Key), buf.Bytes(), nil); err != nil {
		return fmt.Errorf("leveldb put %s: %w", obj.Key, err)
	}
	return nil
}
