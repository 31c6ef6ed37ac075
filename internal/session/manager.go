// Package session owns the lifecycle of the single peer connection per
// device. It is edge-triggered: a role change, shop identity change or
// customer link/unlink tears the transport down and rebuilds it; there is
// no retry loop or backoff. Connection volume is one peer at a time, so
// rebuild is always preferred over incremental reconfiguration.
package session

import (
	"log/slog"
	"sync"

	"github.com/pickit-labs/pickit/internal/errors"
	"github.com/pickit-labs/pickit/internal/job"
	"github.com/pickit-labs/pickit/internal/logfields"
	"github.com/pickit-labs/pickit/internal/metrics"
	"github.com/pickit-labs/pickit/internal/protocol"
	"github.com/pickit-labs/pickit/internal/transport"
)

// Role is which side of the peer pair this device plays.
type Role string

const (
	RoleNone     Role = ""
	RoleShop     Role = "shop"
	RoleCustomer Role = "customer"
)

// State is the session manager's connection state.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateDialing   State = "dialing"
	StateConnected State = "connected"
)

// Callbacks connect the session manager to the job record store without
// the packages depending on each other.
type Callbacks struct {
	// OnJobUpdate delivers an inbound replicated snapshot (nil clears
	// the active slot). The store serializes it with local mutations.
	OnJobUpdate func(snapshot *job.PrintJob)
	// ActiveJob returns the local active job for the reconnect push, or
	// nil when the slot is empty.
	ActiveJob func() *job.PrintJob
}

// Manager holds the exclusive transport handle for this device.
type Manager struct {
	tr  transport.Transport
	cb  Callbacks
	rec metrics.Recorder

	mu     sync.Mutex
	state  State
	role   Role
	shopID string
	linked bool
	link   transport.Link
	peer   string // shop side: address of the active customer (last-wins)
	gen    uint64 // invalidates callbacks from superseded links
}

// New creates an idle session manager. rec may be nil.
func New(tr transport.Transport, cb Callbacks, rec metrics.Recorder) *Manager {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Manager{tr: tr, cb: cb, rec: rec, state: StateIdle}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Configure re-evaluates the session after a role, shop identity or link
// change. Any prior transport is torn down first on every path. A
// transport-open failure is logged and leaves the device idle; the user
// recovers by re-triggering an identity change.
func (m *Manager) Configure(role Role, shopID string, linked bool) {
	m.mu.Lock()
	m.teardownLocked()
	m.role = role
	m.shopID = shopID
	m.linked = linked

	switch {
	case role == RoleShop && shopID != "":
		m.listenLocked()
	case role == RoleCustomer && linked && shopID != "":
		m.dialLocked()
	}
	m.setStateLocked(m.state)
	m.mu.Unlock()
}

// Close tears down the session for shutdown. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	m.teardownLocked()
	m.setStateLocked(StateIdle)
	m.mu.Unlock()
}

func (m *Manager) listenLocked() {
	key := transport.RendezvousKey(m.shopID)
	gen := m.gen
	link, err := m.tr.Listen(key, func(remote string, data []byte) {
		m.inbound(gen, remote, data)
	})
	if err != nil {
		slog.Warn("failed to open shop transport",
			logfields.ShopID(m.shopID), logfields.Error(errors.TransportOpenFailed(key, err)))
		return
	}
	m.link = link
	m.state = StateListening
	m.watchLink(gen, link)
	slog.Info("session listening", logfields.ShopID(m.shopID))
}

func (m *Manager) dialLocked() {
	key := transport.RendezvousKey(m.shopID)
	gen := m.gen
	link, err := m.tr.Dial(key, func(remote string, data []byte) {
		m.inbound(gen, remote, data)
	})
	if err != nil {
		slog.Warn("failed to open customer transport",
			logfields.ShopID(m.shopID), logfields.Error(errors.TransportOpenFailed(key, err)))
		return
	}
	m.link = link
	m.peer = key
	m.state = StateDialing

	// Announce ourselves. No timeout: a hung dial never reaches
	// connected and is superseded by the next identity change.
	data, err := protocol.Encode(protocol.Hello())
	if err == nil {
		err = link.SendTo(key, data)
	}
	if err != nil {
		slog.Warn("failed to announce to shop", logfields.ShopID(m.shopID), logfields.Error(err))
	}
	m.watchLink(gen, link)
	slog.Info("session dialing", logfields.ShopID(m.shopID))
}

// teardownLocked releases the current transport before a new one may be
// constructed. Closing an already-closed link is a no-op.
func (m *Manager) teardownLocked() {
	if m.link != nil {
		_ = m.link.Close()
		m.rec.IncSessionTeardown(string(m.role))
	}
	m.link = nil
	m.peer = ""
	m.state = StateIdle
	m.gen++
}

// watchLink drops the session back to idle when the transport reports
// the connection lost. Reconnection stays edge-triggered; no polling.
func (m *Manager) watchLink(gen uint64, link transport.Link) {
	go func() {
		<-link.Done()
		m.mu.Lock()
		if m.gen == gen {
			m.link = nil
			m.peer = ""
			m.setStateLocked(StateIdle)
			slog.Warn("peer connection lost", logfields.Role(string(m.role)))
		}
		m.mu.Unlock()
	}()
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	m.rec.SetSessionState(string(s))
}

// inbound handles one message from the peer link. Job updates are handed
// to the store's serialized mutation path; they are never processed
// concurrently with a local mutation.
func (m *Manager) inbound(gen uint64, remote string, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		slog.Warn("dropping undecodable peer message", logfields.Error(err))
		return
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.rec.IncEnvelope(metrics.DirectionReceived, string(env.Kind))

	switch env.Kind {
	case protocol.KindHello:
		m.helloLocked(remote)
		return // helloLocked unlocks
	case protocol.KindJobUpdate:
		m.mu.Unlock()
		if m.cb.OnJobUpdate != nil {
			m.cb.OnJobUpdate(env.Payload)
		}
	default:
		m.mu.Unlock()
	}
}

// helloLocked is entered with the lock held and releases it before
// running callbacks or network sends.
func (m *Manager) helloLocked(remote string) {
	switch m.role {
	case RoleShop:
		// At most one accepted peer; a second inbound connection
		// replaces the first.
		if m.peer != "" && m.peer != remote {
			slog.Info("replacing connected customer", logfields.Remote(remote))
		}
		m.peer = remote
		firstContact := m.state != StateConnected
		if firstContact {
			m.setStateLocked(StateConnected)
			m.rec.IncSessionEstablished(string(m.role))
		}
		link := m.link
		m.mu.Unlock()

		if link != nil && remote != "" {
			data, err := protocol.Encode(protocol.Hello())
			if err == nil {
				err = link.SendTo(remote, data)
			}
			if err != nil {
				slog.Warn("failed to confirm customer connection", logfields.Error(err))
			}
		}
		if firstContact {
			slog.Info("customer connected", logfields.Remote(remote))
		}

	case RoleCustomer:
		if m.state != StateDialing {
			m.mu.Unlock()
			return
		}
		m.setStateLocked(StateConnected)
		m.rec.IncSessionEstablished(string(m.role))
		m.mu.Unlock()
		slog.Info("connected to shop", logfields.ShopID(m.shopID))

		// Recover state after a reload: push the locally cached active
		// job to the shop as soon as the session opens.
		if m.cb.ActiveJob != nil {
			if snapshot := m.cb.ActiveJob(); snapshot != nil {
				if err := m.Publish(snapshot); err != nil {
					slog.Warn("reconnect push failed", logfields.Error(err))
				}
			}
		}

	default:
		m.mu.Unlock()
	}
}

// Publish sends a snapshot of the active job (nil for "no active job")
// to the connected peer. Transport failures are returned for logging but
// never fatal; the peers converge on the next exchange.
func (m *Manager) Publish(snapshot *job.PrintJob) error {
	m.mu.Lock()
	link := m.link
	peer := m.peer
	m.mu.Unlock()

	if link == nil || peer == "" {
		return errors.NoPeer()
	}
	data, err := protocol.Encode(protocol.JobUpdate(snapshot))
	if err != nil {
		return err
	}
	if err := link.SendTo(peer, data); err != nil {
		return errors.SendFailed(err)
	}
	m.rec.IncEnvelope(metrics.DirectionSent, string(protocol.KindJobUpdate))
	return nil
}
