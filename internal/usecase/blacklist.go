package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/core/port"
)

// Revocation describes a token being invalidated.
type Revocation struct {
	Token     string
	TTL       time.Duration
	SubjectID int64
}

// BlacklistOptions tunes the two-tier blacklist.
type BlacklistOptions struct {
	// SyncInterval bounds how stale the local set may grow before a miss
	// triggers a resync from the durable store.
	SyncInterval time.Duration
	// StoreTimeout caps every durable-store round trip.
	StoreTimeout time.Duration
	// FailClosed treats an unreachable store as "revoked" instead of
	// letting the request through on local knowledge alone.
	FailClosed bool
	// QueueSize bounds the async persistence queue. When full, Add
	// persists inline.
	QueueSize int
}

const (
	defaultSyncInterval = time.Minute
	defaultStoreTimeout = 300 * time.Millisecond
	defaultQueueSize    = 256
)

// Blacklist keeps revoked tokens in a local in-memory set backed by a shared
// durable store. Reads are served from the local set; the store is consulted
// on a miss and resynced periodically, so revocations made on one instance
// reach the others within the sync interval.
type Blacklist struct {
	store     port.RevocationStore
	publisher port.RevocationPublisher
	logger    *zap.Logger
	opts      BlacklistOptions

	mu    sync.RWMutex
	local map[string]time.Time

	lastSync atomic.Int64

	pending chan Revocation
	done    chan struct{}
	wg      sync.WaitGroup

	now func() time.Time
}

// NewBlacklist constructs the blacklist and starts its persistence worker.
// The publisher is optional; pass nil to disable revocation fan-out.
func NewBlacklist(store port.RevocationStore, publisher port.RevocationPublisher, logger *zap.Logger, opts BlacklistOptions) *Blacklist {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = defaultSyncInterval
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	b := &Blacklist{
		store:     store,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		local:     make(map[string]time.Time),
		pending:   make(chan Revocation, opts.QueueSize),
		done:      make(chan struct{}),
	}
	b.now = func() time.Time { return time.Now().UTC() }

	b.wg.Add(1)
	go b.persistWorker()

	return b
}

// WithClock overrides the internal clock for deterministic testing.
func (b *Blacklist) WithClock(clock func() time.Time) *Blacklist {
	if clock != nil {
		b.now = clock
	}
	return b
}

// Add revokes a token. The local set is updated synchronously so this
// instance rejects the token immediately; durable persistence and event
// fan-out happen on the worker.
func (b *Blacklist) Add(ctx context.Context, rev Revocation) error {
	if rev.Token == "" {
		return fmt.Errorf("blacklist: empty token")
	}

	b.mu.Lock()
	b.local[rev.Token] = b.now()
	b.mu.Unlock()

	select {
	case b.pending <- rev:
	default:
		// Queue full, take the store round trip on the caller.
		b.persist(ctx, rev)
	}

	return nil
}

// MergeRevoked inserts a token learned from a peer into the local set.
func (b *Blacklist) MergeRevoked(token string) {
	if token == "" {
		return
	}
	b.mu.Lock()
	b.local[token] = b.now()
	b.mu.Unlock()
}

// ContainsLocal reports whether the token is in the local set. It never
// touches the store and is safe on every request.
func (b *Blacklist) ContainsLocal(token string) bool {
	b.mu.RLock()
	_, ok := b.local[token]
	b.mu.RUnlock()
	return ok
}

// Contains reports whether the token is revoked, consulting the durable
// store when the local set cannot answer. Store failures resolve according
// to the configured fail mode.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b.ContainsLocal(token) {
		return true, nil
	}

	if b.stale() {
		if err := b.Resync(ctx); err != nil {
			return b.storeFailure(err)
		}
		if b.ContainsLocal(token) {
			return true, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, b.opts.StoreTimeout)
	defer cancel()

	revoked, err := b.store.Contains(lookupCtx, token)
	if err != nil {
		return b.storeFailure(err)
	}
	if revoked {
		b.MergeRevoked(token)
	}
	return revoked, nil
}

// Resync merges the durable store's view into the local set. The merge is a
// pure union: a local entry is never removed, even when its durable persist
// failed, so a token revoked on this instance stays rejected here until the
// process restarts. The lock is never held across the store round trip.
func (b *Blacklist) Resync(ctx context.Context) error {
	listCtx, cancel := context.WithTimeout(ctx, b.opts.StoreTimeout)
	defer cancel()

	tokens, err := b.store.List(listCtx)
	if err != nil {
		return fmt.Errorf("blacklist resync: %w", err)
	}

	now := b.now()

	b.mu.Lock()
	for _, token := range tokens {
		if _, ok := b.local[token]; !ok {
			b.local[token] = now
		}
	}
	b.mu.Unlock()

	b.lastSync.Store(now.UnixNano())
	return nil
}

// LastSync returns when the local set last converged with the store.
func (b *Blacklist) LastSync() time.Time {
	return time.Unix(0, b.lastSync.Load())
}

// Len reports the size of the local set.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.local)
}

// Close drains the persistence queue and stops the worker.
func (b *Blacklist) Close() {
	close(b.done)
	b.wg.Wait()
}

func (b *Blacklist) stale() bool {
	return b.now().Sub(time.Unix(0, b.lastSync.Load())) > b.opts.SyncInterval
}

func (b *Blacklist) storeFailure(err error) (bool, error) {
	if b.opts.FailClosed {
		b.logger.Warn("blacklist store unavailable, failing closed", zap.Error(err))
		return true, nil
	}
	b.logger.Warn("blacklist store unavailable, failing open", zap.Error(err))
	return false, nil
}

func (b *Blacklist) persistWorker() {
	defer b.wg.Done()
	for {
		select {
		case rev := <-b.pending:
			b.persist(context.Background(), rev)
		case <-b.done:
			for {
				select {
				case rev := <-b.pending:
					b.persist(context.Background(), rev)
				default:
					return
				}
			}
		}
	}
}

func (b *Blacklist) persist(parent context.Context, rev Revocation) {
	ctx, cancel := context.WithTimeout(parent, b.opts.StoreTimeout)
	defer cancel()

	if err := b.store.Add(ctx, rev.Token, rev.TTL); err != nil {
		// The token stays in the local set; peers converge on the next
		// resync once the store recovers.
		b.logger.Warn("persist revoked token", zap.Error(err))
	}

	if b.publisher == nil {
		return
	}

	now := b.now()
	event := domain.TokenRevokedEvent{
		EventID:   uuid.NewString(),
		Token:     rev.Token,
		SubjectID: rev.SubjectID,
		RevokedAt: now,
		ExpiresAt: now.Add(rev.TTL),
	}
	if err := b.publisher.PublishTokenRevoked(ctx, event); err != nil {
		b.logger.Warn("publish token revoked event", zap.Error(err))
	}
}
