package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/jmhart/catalog-tracker/internal/metrics"
	"github.com/jmhart/catalog-tracker/internal/store"
	"github.com/jmhart/catalog-tracker/pkg/normalize"
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 250 * time.Millisecond

	// priceEpsilon guards float comparison; differences below it are noise.
	priceEpsilon = 1e-9
)

// Detector compares an observed product against its stored snapshot and
// produces change records. Work on the same (client, identity) is serialized
// through a keyed lock so concurrent runs cannot interleave a read-then-write.
type Detector struct {
	store store.Store
	log   *slog.Logger

	maxRetries   int
	retryBackoff time.Duration

	locks keyedMutex
}

// NewDetector creates a Detector with injected dependencies.
func NewDetector(s store.Store, opts ...DetectorOption) *Detector {
	d := &Detector{
		store:        s,
		log:          slog.Default(),
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectorOption configures the Detector.
type DetectorOption func(*Detector)

// WithDetectorLogger sets a custom logger.
func WithDetectorLogger(l *slog.Logger) DetectorOption {
	return func(d *Detector) {
		d.log = l
	}
}

// WithRetry sets the per-record store retry policy.
func WithRetry(maxRetries int, backoff time.Duration) DetectorOption {
	return func(d *Detector) {
		d.maxRetries = maxRetries
		d.retryBackoff = backoff
	}
}

// Detect diffs one observed product against its snapshot, overwrites the
// snapshot, and returns the change records to append to the run. A first
// sighting yields exactly one baseline record. Transient store failures are
// retried before the error is surfaced; no record is ever silently dropped.
func (d *Detector) Detect(
	ctx context.Context,
	runID string,
	p *normalize.Product,
) ([]domain.ChangeRecord, error) {
	start := time.Now()
	defer func() {
		metrics.DetectDuration.Observe(time.Since(start).Seconds())
	}()

	unlock := d.locks.lock(p.Client + "\x00" + p.Identity)
	defer unlock()

	var prev *domain.Snapshot
	err := d.withRetry(ctx, func() error {
		var getErr error
		prev, getErr = d.store.GetSnapshot(ctx, p.Client, p.Identity)
		if errors.Is(getErr, store.ErrSnapshotNotFound) {
			prev = nil
			return nil
		}
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %s: %w", p.Identity, err)
	}

	var changes []domain.ChangeRecord
	if prev == nil {
		changes = []domain.ChangeRecord{baselineRecord(runID, p)}
	} else {
		changes = diff(runID, prev, p)
	}

	snap := snapshotFrom(runID, p)
	if err := d.withRetry(ctx, func() error {
		return d.store.UpsertSnapshot(ctx, snap)
	}); err != nil {
		return nil, fmt.Errorf("upserting snapshot for %s: %w", p.Identity, err)
	}

	metrics.RecordsProcessedTotal.Inc()
	return changes, nil
}

func (d *Detector) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.retryBackoff * time.Duration(attempt)):
			}
		}
		if err = op(); err == nil {
			return nil
		}
	}
	return err
}

// diff emits one record per changed dimension. An unchanged product yields
// nothing; the snapshot overwrite alone refreshes updated_at.
func diff(runID string, prev *domain.Snapshot, p *normalize.Product) []domain.ChangeRecord {
	var out []domain.ChangeRecord

	if p.Price != nil && prev.Price != nil {
		if math.Abs(*p.Price-*prev.Price) > priceEpsilon {
			out = append(out, priceChange(runID, prev, p))
		}
	} else if (p.Price == nil) != (prev.Price == nil) {
		out = append(out, priceChange(runID, prev, p))
	}

	if p.Stock != prev.StockStatus {
		out = append(out, domain.ChangeRecord{
			RunID:       runID,
			Client:      p.Client,
			Identity:    p.Identity,
			ChangeType:  domain.ChangeStock,
			OldValue:    ptrTo(string(prev.StockStatus)),
			NewValue:    ptrTo(string(p.Stock)),
			NewValueRaw: nonEmpty(p.StockRaw),
		})
	}

	if !equalPtr(prev.Description, p.Description) {
		out = append(out, domain.ChangeRecord{
			RunID:      runID,
			Client:     p.Client,
			Identity:   p.Identity,
			ChangeType: domain.ChangeDescription,
			OldValue:   prev.Description,
			NewValue:   p.Description,
		})
	}

	return out
}

func priceChange(runID string, prev *domain.Snapshot, p *normalize.Product) domain.ChangeRecord {
	c := domain.ChangeRecord{
		RunID:       runID,
		Client:      p.Client,
		Identity:    p.Identity,
		ChangeType:  domain.ChangePrice,
		NewValueRaw: nonEmpty(p.PriceRaw),
	}
	if prev.Price != nil {
		c.OldValue = ptrTo(formatPrice(*prev.Price))
	}
	if p.Price != nil {
		c.NewValue = ptrTo(formatPrice(*p.Price))
	}
	if prev.Price != nil && p.Price != nil {
		c.Difference = ptrTo(normalize.Round2(*p.Price - *prev.Price))
	}
	return c
}

// baselineRecord marks the first sighting of an identity. The record is typed
// by the most specific observed field so baseline listings stay meaningful,
// and is flagged is_baseline so it never counts as a real change.
func baselineRecord(runID string, p *normalize.Product) domain.ChangeRecord {
	c := domain.ChangeRecord{
		RunID:      runID,
		Client:     p.Client,
		Identity:   p.Identity,
		ChangeType: domain.ChangeNew,
		IsBaseline: true,
	}

	switch {
	case p.Title != nil && p.Price != nil:
		c.NewValue = p.Title
	case p.Price != nil:
		c.ChangeType = domain.ChangePrice
		c.NewValue = ptrTo(formatPrice(*p.Price))
		c.NewValueRaw = nonEmpty(p.PriceRaw)
	case p.StockRaw != "":
		c.ChangeType = domain.ChangeStock
		c.NewValue = ptrTo(string(p.Stock))
		c.NewValueRaw = nonEmpty(p.StockRaw)
	case p.Description != nil:
		c.ChangeType = domain.ChangeDescription
		c.NewValue = p.Description
	default:
		c.NewValue = p.Title
	}

	return c
}

func snapshotFrom(runID string, p *normalize.Product) *domain.Snapshot {
	return &domain.Snapshot{
		Client:        p.Client,
		Identity:      p.Identity,
		Title:         p.Title,
		Price:         p.Price,
		StockStatus:   p.Stock,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
		ProductURL:    p.URL,
		SKU:           p.SKU,
		LastSeenRunID: runID,
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrTo[T any](v T) *T { return &v }

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// keyedMutex hands out refcounted per-key locks. Entries are dropped as soon
// as the last holder releases, so the map stays bounded by live contention.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (km *keyedMutex) lock(key string) (unlock func()) {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*keyedLock)
	}
	l, ok := km.locks[key]
	if !ok {
		l = &keyedLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		km.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
