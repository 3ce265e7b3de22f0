// Package tilecache serves map tiles from a store and fetches missing or
// expired ones through an injected Fetcher.
//
// Concurrent lookups are allowed everywhere. Fetches are collapsed per key,
// so one key is fetched at most once at a time, while distinct keys and
// resident keys proceed in parallel.
package tilecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg/cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/trackreel/trackreel/internal/storage"
)

// Key addresses one tile of one tile source.
type Key = storage.Key

// Fetcher retrieves the encoded image bytes of one tile.
type Fetcher func(ctx context.Context, key Key) ([]byte, error)

// ErrClosed is returned by lookups after Close.
var ErrClosed = errors.New("tile cache closed")

// TileFetchError reports a failed fetch. Failures are never cached.
type TileFetchError struct {
	Key Key
	Err error
}

func (e *TileFetchError) Error() string {
	return fmt.Sprintf("fetch tile %s: %v", e.Key, e.Err)
}

func (e *TileFetchError) Unwrap() error {
	return e.Err
}

// Options configure a Cache.
type Options struct {
	// TTL is the maximum age of a served entry. Zero means entries never
	// expire.
	TTL time.Duration
	// SweepInterval enables the background sweep started by Start.
	SweepInterval time.Duration
	// DecodedEntries bounds the in-process memo of decoded images.
	DecodedEntries int
	Logger         *slog.Logger
	// Now overrides the clock.
	Now func() time.Time
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Fetches   int64
	Errors    int64
	Evictions int64
}

// Cache is safe for concurrent use.
type Cache struct {
	store storage.Backend
	fetch Fetcher
	ttl   time.Duration
	sweep time.Duration
	now   func() time.Time
	log   *slog.Logger

	group   singleflight.Group
	decoded *cache.ShardedCache[string, image.Image]

	hits, misses, fetches, errs, evictions atomic.Int64

	// OTEL metrics
	hitCounter      metric.Int64Counter
	missCounter     metric.Int64Counter
	errorCounter    metric.Int64Counter
	evictionCounter metric.Int64Counter

	closed    atomic.Bool
	stopChan  chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a cache over store. Uses the global OTel meter for metrics
// (no-op if not configured).
func New(store storage.Backend, fetch Fetcher, opts Options) (*Cache, error) {
	if store == nil || fetch == nil {
		return nil, errors.New("tile cache needs a store and a fetcher")
	}
	c := &Cache{
		store:    store,
		fetch:    fetch,
		ttl:      opts.TTL,
		sweep:    opts.SweepInterval,
		now:      opts.Now,
		log:      opts.Logger,
		stopChan: make(chan struct{}),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	perShard := opts.DecodedEntries / cache.DefaultShardCount
	if perShard < 1 {
		perShard = 1
	}
	c.decoded = cache.NewSharded[string, image.Image](perShard, cache.StringHasher)

	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) initMetrics() error {
	m := meter()
	var err error

	c.hitCounter, err = m.Int64Counter("tilecache.hits",
		metric.WithDescription("Tile lookups served from the store"))
	if err != nil {
		return fmt.Errorf("creating hit counter: %w", err)
	}
	c.missCounter, err = m.Int64Counter("tilecache.misses",
		metric.WithDescription("Tile lookups that required a fetch"))
	if err != nil {
		return fmt.Errorf("creating miss counter: %w", err)
	}
	c.errorCounter, err = m.Int64Counter("tilecache.fetch.errors",
		metric.WithDescription("Failed tile fetches"))
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}
	c.evictionCounter, err = m.Int64Counter("tilecache.evictions",
		metric.WithDescription("Expired tiles removed from the store"))
	if err != nil {
		return fmt.Errorf("creating eviction counter: %w", err)
	}

	decodedLen, err := m.Int64ObservableGauge("tilecache.decoded.size",
		metric.WithDescription("Decoded tiles held in memory"))
	if err != nil {
		return fmt.Errorf("creating decoded gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(decodedLen, int64(c.decoded.Len()))
			return nil
		},
		decodedLen,
	)
	if err != nil {
		return fmt.Errorf("registering decoded callback: %w", err)
	}
	return nil
}

// Start launches the periodic sweep when a sweep interval is configured.
func (c *Cache) Start() {
	if c.sweep <= 0 || c.ttl <= 0 {
		return
	}
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.sweepLoop()
	})
}

// Close stops the sweep loop and rejects further lookups. The store is left
// open for its owner to close.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopChan)
	})
	c.wg.Wait()
	return nil
}

func (c *Cache) sweepLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			n, err := c.Sweep()
			if err != nil {
				c.log.Error("tile sweep failed", "error", err)
			} else if n > 0 {
				c.log.Debug("tile sweep complete", "evicted", n, "duration", time.Since(start))
			}
		}
	}
}

// Sweep deletes every stored entry older than the ttl.
func (c *Cache) Sweep() (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	keys, err := c.store.ExpiredBefore(c.now().Add(-c.ttl))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		// refreshed since the listing
		if _, _, live := c.lookup(k); live {
			continue
		}
		if err := c.store.Delete(k); err != nil {
			c.log.Warn("failed to evict tile", "tile", k.String(), "error", err)
			continue
		}
		n++
	}
	c.recordEvictions(n)
	return n, nil
}

func (c *Cache) recordEvictions(n int) {
	if n == 0 {
		return
	}
	c.evictions.Add(int64(n))
	c.evictionCounter.Add(context.Background(), int64(n))
}

// lookup returns the stored entry of key and whether it is within the ttl.
// It never deletes: replacing an expired entry is left to the key's flight.
func (c *Cache) lookup(key Key) (e storage.Entry, found, live bool) {
	e, err := c.store.Load(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn("tile store lookup failed", "tile", key.String(), "error", err)
		}
		return storage.Entry{}, false, false
	}
	if c.ttl > 0 && c.now().Sub(e.FetchedAt) > c.ttl {
		return e, true, false
	}
	return e, true, true
}

func (c *Cache) entry(ctx context.Context, key Key) (storage.Entry, error) {
	if c.closed.Load() {
		return storage.Entry{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return storage.Entry{}, err
	}
	srcAttr := metric.WithAttributes(attribute.Int("zoom", key.Zoom))

	if e, _, live := c.lookup(key); live {
		c.hits.Add(1)
		c.hitCounter.Add(ctx, 1, srcAttr)
		return e, nil
	}
	c.misses.Add(1)
	c.missCounter.Add(ctx, 1, srcAttr)

	// The flight outlives the caller that started it; every caller waits on
	// its own context.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.refresh(fetchCtx, key, srcAttr)
	})
	select {
	case <-ctx.Done():
		return storage.Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return storage.Entry{}, res.Err
		}
		return res.Val.(storage.Entry), nil
	}
}

// refresh runs inside the key's flight. It replaces a missing or expired
// entry with a fresh fetch.
func (c *Cache) refresh(ctx context.Context, key Key, attrs metric.MeasurementOption) (storage.Entry, error) {
	// a flight that just finished may have stored the key
	stale, found, live := c.lookup(key)
	if live {
		return stale, nil
	}

	c.fetches.Add(1)
	data, err := c.fetch(ctx, key)
	if err != nil {
		c.errs.Add(1)
		c.errorCounter.Add(ctx, 1, attrs)
		if found {
			if err := c.store.Delete(key); err == nil {
				c.recordEvictions(1)
			}
		}
		return storage.Entry{}, &TileFetchError{Key: key, Err: err}
	}
	if found {
		c.recordEvictions(1)
	}

	e := storage.Entry{
		Key:       key,
		Data:      data,
		FetchedAt: c.now(),
		Meta: map[string]any{
			"contentType": http.DetectContentType(data),
			"size":        len(data),
		},
	}
	if err := c.store.Save(e); err != nil {
		c.log.Warn("failed to store tile", "tile", key.String(), "error", err)
	}
	return e, nil
}

// GetOrFetch returns the encoded bytes of key, fetching them when the key is
// missing or older than the ttl.
func (c *Cache) GetOrFetch(ctx context.Context, key Key) ([]byte, error) {
	e, err := c.entry(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.Data, nil
}

// Image returns the decoded tile. PNG, JPEG and WebP are supported. Bytes
// that do not decode are dropped from the store and reported as a
// TileFetchError.
func (c *Cache) Image(ctx context.Context, key Key) (image.Image, error) {
	e, err := c.entry(ctx, key)
	if err != nil {
		return nil, err
	}
	memoKey := key.String() + "#" + strconv.FormatInt(e.FetchedAt.UnixNano(), 10)
	if img, ok := c.decoded.Get(memoKey); ok {
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(e.Data))
	if err != nil {
		_ = c.store.Delete(key)
		return nil, &TileFetchError{Key: key, Err: fmt.Errorf("decode: %w", err)}
	}
	c.decoded.Set(memoKey, img)
	return img, nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Fetches:   c.fetches.Load(),
		Errors:    c.errs.Load(),
		Evictions: c.evictions.Load(),
	}
}
