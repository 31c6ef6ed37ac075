// Package store owns the canonical in-memory job record, the completed
// job history and the shop configuration. All mutation, whether from a
// local action or an inbound replicated snapshot, is serialized through
// one mutex; side effects are computed under the lock but fired after it
// is released, keeping the state machine pure and the dispatcher outside
// the mutation path.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pickit-labs/pickit/internal/cache"
	"github.com/pickit-labs/pickit/internal/errors"
	"github.com/pickit-labs/pickit/internal/job"
	"github.com/pickit-labs/pickit/internal/logfields"
	"github.com/pickit-labs/pickit/internal/metrics"
	"github.com/pickit-labs/pickit/internal/shop"
)

// Cache is the durable key-value persistence the store writes through.
type Cache interface {
	Save(key string, value any) error
	Load(key string, dst any) (bool, error)
}

// Notifier receives the pickup alert when a job reaches READY.
type Notifier interface {
	Notify(jobID, fileName string)
}

// Publisher pushes a snapshot of the active job (nil for empty) to the
// connected peer.
type Publisher func(snapshot *job.PrintJob) error

// Store is the job record store.
type Store struct {
	cache    Cache
	notifier Notifier
	rec      metrics.Recorder

	mu      sync.Mutex
	active  *job.PrintJob
	history []job.PrintJob
	shop    shop.Shop
	role    string
	linked  bool
	theme   string

	publish          Publisher
	onIdentityChange func()
}

// New creates a store over the given cache. notifier and rec may be nil.
func New(c Cache, notifier Notifier, rec metrics.Recorder) *Store {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Store{cache: c, notifier: notifier, rec: rec}
}

// SetPublisher wires the peer push hook. Called once at startup.
func (s *Store) SetPublisher(p Publisher) { s.publish = p }

// SetIdentityChangeHook wires the callback fired whenever role, shop
// identity or the linked flag changes. The session manager rebuilds its
// transport on this edge.
func (s *Store) SetIdentityChangeHook(fn func()) { s.onIdentityChange = fn }

// Load rehydrates the active job, history, shop config and session flags
// from the durable cache. Absent or corrupt values resolve to explicit
// defaults; a missing shop config gets a freshly generated identity that
// is persisted immediately so it survives the next restart.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadKey(cache.KeyActiveJob, &s.active)
	s.loadKey(cache.KeyJobHistory, &s.history)
	if s.history == nil {
		s.history = []job.PrintJob{}
	}
	if !s.loadKey(cache.KeyShopConfig, &s.shop) {
		s.shop = shop.NewDefault()
		s.saveLocked(cache.KeyShopConfig, s.shop)
	}
	s.loadKey(cache.KeyRole, &s.role)
	s.loadKey(cache.KeyLinked, &s.linked)
	s.loadKey(cache.KeyTheme, &s.theme)
}

func (s *Store) loadKey(key string, dst any) bool {
	ok, err := s.cache.Load(key, dst)
	if err != nil {
		slog.Warn("cached value unreadable, using default", logfields.CacheKey(key), logfields.Error(err))
		return false
	}
	return ok
}

// saveLocked persists one key best effort. Save failures are logged and
// never roll back the in-memory state.
func (s *Store) saveLocked(key string, value any) {
	if err := s.cache.Save(key, value); err != nil {
		s.rec.IncCacheWrite(false)
		slog.Warn("persist failed", logfields.Error(errors.CacheSaveFailed(key, err)))
		return
	}
	s.rec.IncCacheWrite(true)
}

// ActiveJob returns a snapshot of the active job, or nil.
func (s *Store) ActiveJob() *job.PrintJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Clone()
}

// History returns the completed jobs, most recent first.
func (s *Store) History() []job.PrintJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]job.PrintJob, len(s.history))
	copy(out, s.history)
	return out
}

// Shop returns the current shop configuration.
func (s *Store) Shop() shop.Shop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shop
}

// SetShop replaces the shop configuration. Changing the shop identity
// invalidates the current peer session.
func (s *Store) SetShop(cfg shop.Shop) {
	s.mu.Lock()
	identityChanged := cfg.ID != s.shop.ID
	s.shop = cfg
	s.saveLocked(cache.KeyShopConfig, s.shop)
	s.mu.Unlock()

	if identityChanged {
		s.fireIdentityChange()
	}
}

// Role returns the persisted device role ("shop", "customer" or empty).
func (s *Store) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// SetRole switches the device role and persists it.
func (s *Store) SetRole(role string) {
	s.mu.Lock()
	changed := role != s.role
	s.role = role
	s.saveLocked(cache.KeyRole, s.role)
	s.mu.Unlock()

	if changed {
		s.fireIdentityChange()
	}
}

// LinkedShop returns the linked shop id and whether the one-time link
// handshake has completed.
func (s *Store) LinkedShop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shop.ID, s.linked
}

// LinkShop records the scanned shop identity and completes the one-time
// link handshake on the customer side.
func (s *Store) LinkShop(shopID string) {
	s.mu.Lock()
	s.shop.ID = shopID
	s.shop.IsConfigured = true
	s.linked = true
	s.saveLocked(cache.KeyShopConfig, s.shop)
	s.saveLocked(cache.KeyLinked, s.linked)
	s.mu.Unlock()

	s.fireIdentityChange()
}

// UnlinkShop clears the link flag; the session tears down on this edge.
func (s *Store) UnlinkShop() {
	s.mu.Lock()
	s.linked = false
	s.saveLocked(cache.KeyLinked, s.linked)
	s.mu.Unlock()

	s.fireIdentityChange()
}

// Theme returns the persisted presentation theme preference.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme persists the presentation theme preference.
func (s *Store) SetTheme(theme string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
	s.saveLocked(cache.KeyTheme, s.theme)
}

// Quote prices a prospective job against the current rate card.
func (s *Store) Quote(req job.Request) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shop.Pricing.CostFor(req.PageCount, req.IsColor, req.IsDoubleSided)
}

func (s *Store) fireIdentityChange() {
	if s.onIdentityChange != nil {
		s.onIdentityChange()
	}
}

// pushSnapshot forwards the given snapshot to the peer, tolerating the
// disconnected case. Called outside the lock.
func (s *Store) pushSnapshot(snapshot *job.PrintJob) {
	if s.publish == nil {
		return
	}
	if err := s.publish(snapshot); err != nil {
		if errors.IsCategory(err, errors.CategorySession) {
			slog.Debug("no peer to push to")
			return
		}
		slog.Warn("peer push failed", logfields.Error(err))
	}
}

// CreateJob prices and registers a new print job as the active record,
// persists it and pushes it to the peer. Rejected while the shop is
// paused or while another job is still active.
func (s *Store) CreateJob(req job.Request) (*job.PrintJob, error) {
	if req.PageCount <= 0 {
		return nil, errors.ValidationFailed("pageCount", "must be positive")
	}
	if req.FileName == "" {
		return nil, errors.ValidationFailed("fileName", "must not be empty")
	}

	s.mu.Lock()
	if s.shop.IsPaused {
		id := s.shop.ID
		s.mu.Unlock()
		return nil, errors.ShopPaused(id)
	}
	if s.active != nil {
		id := s.active.ID
		s.mu.Unlock()
		return nil, errors.JobConflict(id)
	}
	created := job.New(req, s.shop.Pricing)
	s.active = created
	s.saveLocked(cache.KeyActiveJob, s.active)
	s.rec.IncTransition(string(created.Status))
	snapshot := created.Clone()
	s.mu.Unlock()

	s.pushSnapshot(snapshot)
	return snapshot, nil
}

// ApplyStatus is the single mutating operation for lifecycle
// transitions; local actions on either device flow through it. It is a
// no-op when jobID does not match the active job, guarding against
// stale messages from a superseded job. Entering READY fires the
// notification independently of persistence; entering COLLECTED moves
// the record into history and empties the active slot.
func (s *Store) ApplyStatus(jobID string, status job.Status) (*job.PrintJob, error) {
	if !status.Valid() {
		return nil, errors.ValidationFailed("status", "unknown status "+string(status))
	}

	s.mu.Lock()
	out := job.Advance(s.active, jobID, status, time.Now())
	result := s.commitLocked(out).Clone()
	s.mu.Unlock()

	s.runEffects(out)
	if out.Changed {
		if out.Archived != nil {
			s.pushSnapshot(out.Archived.Clone())
		} else {
			s.pushSnapshot(result.Clone())
		}
	}
	return result, nil
}

// SetActiveJob replaces the active record from a local (customer-side)
// action, persists it and pushes it to the peer. A nil job clears the
// slot and pushes the empty state.
func (s *Store) SetActiveJob(j *job.PrintJob) {
	s.mu.Lock()
	s.active = j.Clone()
	s.saveLocked(cache.KeyActiveJob, s.active)
	snapshot := s.active.Clone()
	s.mu.Unlock()

	s.pushSnapshot(snapshot)
}

// ApplyRemote applies an inbound replicated snapshot with last-writer-
// wins semantics. A snapshot for a job other than the current active one
// is silently dropped; replaying an equal snapshot is a no-op, so the
// ready alert cannot fire twice. Remote applications are never pushed
// back, which keeps the two sides from echoing.
func (s *Store) ApplyRemote(snapshot *job.PrintJob) {
	s.mu.Lock()
	if s.active != nil && snapshot != nil && snapshot.ID != s.active.ID {
		s.rec.IncStaleDrop()
		s.mu.Unlock()
		slog.Debug("dropping stale envelope", logfields.JobID(snapshot.ID))
		return
	}
	out := job.Reconcile(s.active, snapshot, time.Now())
	s.commitLocked(out)
	s.mu.Unlock()

	s.runEffects(out)
}

// commitLocked applies an outcome to the slots and persists what moved.
func (s *Store) commitLocked(out job.Outcome) *job.PrintJob {
	if !out.Changed {
		return s.active
	}
	s.active = out.Active
	if out.Archived != nil {
		s.history = append([]job.PrintJob{*out.Archived}, s.history...)
		s.saveLocked(cache.KeyJobHistory, s.history)
	}
	s.saveLocked(cache.KeyActiveJob, s.active)

	status := ""
	if out.Active != nil {
		status = string(out.Active.Status)
	} else if out.Archived != nil {
		status = string(out.Archived.Status)
	}
	if status != "" {
		s.rec.IncTransition(status)
	}
	return s.active
}

// runEffects dispatches owed side effects outside the lock. Notification
// failures are swallowed by the dispatcher and never block a transition.
func (s *Store) runEffects(out job.Outcome) {
	for _, eff := range out.Effects {
		switch eff {
		case job.EffectNotifyReady:
			target := out.Active
			if target == nil {
				target = out.Archived
			}
			if s.notifier != nil && target != nil {
				s.notifier.Notify(target.ID, target.FileName)
			}
		case job.EffectArchive:
			if out.Archived != nil {
				slog.Info("job collected", logfields.JobID(out.Archived.ID))
			}
		}
	}
}

// Flush persists every slot, used by the periodic durable-state job and
// at shutdown.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(cache.KeyActiveJob, s.active)
	s.saveLocked(cache.KeyJobHistory, s.history)
	s.saveLocked(cache.KeyShopConfig, s.shop)
	s.saveLocked(cache.KeyRole, s.role)
	s.saveLocked(cache.KeyLinked, s.linked)
	s.saveLocked(cache.KeyTheme, s.theme)
}
