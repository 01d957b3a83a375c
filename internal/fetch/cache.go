package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"tlmscope/internal/telemetry"
)

// DefaultCacheTTL bounds how long a cached response is served.
const DefaultCacheTTL = 10 * time.Minute

// SessionCache keeps successful responses for a plot session so a re-plot
// with a different selection does not query again. Entries live in an
// in-memory badger store, zstd compressed, and expire after ttl.
type SessionCache struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	ttl time.Duration
}

type refreshKey struct{}

// WithRefresh marks ctx so the orchestrator drops any cached response for
// the request and fetches again.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

func refresh(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

// NewSessionCache opens an in-memory cache. A non-positive ttl uses
// DefaultCacheTTL.
func NewSessionCache(ttl time.Duration) (*SessionCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session cache: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	return &SessionCache{db: db, enc: enc, dec: dec, ttl: ttl}, nil
}

// Key identifies a request by the hash of its JSON form.
func Key(req telemetry.Request) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// Put stores resp under req.
func (c *SessionCache) Put(req telemetry.Request, resp telemetry.Response) error {
	key, err := Key(req)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	val := c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/4))
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, val).WithTTL(c.ttl))
	})
}

// Get returns the cached response for req, if any.
func (c *SessionCache) Get(req telemetry.Request) (telemetry.Response, bool, error) {
	key, err := Key(req)
	if err != nil {
		return telemetry.Response{}, false, err
	}
	var val []byte
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return telemetry.Response{}, false, nil
	}
	if err != nil {
		return telemetry.Response{}, false, err
	}
	raw, err := c.dec.DecodeAll(val, nil)
	if err != nil {
		return telemetry.Response{}, false, fmt.Errorf("decode cached response: %w", err)
	}
	var resp telemetry.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return telemetry.Response{}, false, err
	}
	return resp, true, nil
}

// Forget drops the entry for req so the next fetch queries again.
func (c *SessionCache) Forget(req telemetry.Request) error {
	key, err := Key(req)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (c *SessionCache) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}
