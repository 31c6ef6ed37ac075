package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickit-labs/pickit/internal/job"
	"github.com/pickit-labs/pickit/internal/protocol"
	"github.com/pickit-labs/pickit/internal/transport"
)

const (
	eventuallyWait = 2 * time.Second
	eventuallyTick = 10 * time.Millisecond
)

type sentMsg struct {
	remote string
	data   []byte
}

type fakeLink struct {
	mu         sync.Mutex
	addr       string
	sent       []sentMsg
	done       chan struct{}
	closeCount int
}

func (l *fakeLink) Addr() string { return l.addr }

func (l *fakeLink) SendTo(remote string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, sentMsg{remote: remote, data: data})
	return nil
}

func (l *fakeLink) Done() <-chan struct{} { return l.done }

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeCount++
	return nil
}

func (l *fakeLink) sentTo(remote string) []protocol.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	var envs []protocol.Envelope
	for _, m := range l.sent {
		if m.remote != remote {
			continue
		}
		env, err := protocol.Decode(m.data)
		if err == nil {
			envs = append(envs, env)
		}
	}
	return envs
}

type fakeTransport struct {
	mu       sync.Mutex
	failOpen bool
	links    []*fakeLink
	handlers []transport.Handler
	listens  []string
	dials    []string
}

func (t *fakeTransport) open(addr string, h transport.Handler) (*fakeLink, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOpen {
		return nil, errors.New("transport unavailable")
	}
	link := &fakeLink{addr: addr, done: make(chan struct{})}
	t.links = append(t.links, link)
	t.handlers = append(t.handlers, h)
	return link, nil
}

func (t *fakeTransport) Listen(key string, h transport.Handler) (transport.Link, error) {
	link, err := t.open(key, h)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.listens = append(t.listens, key)
	t.mu.Unlock()
	return link, nil
}

func (t *fakeTransport) Dial(key string, h transport.Handler) (transport.Link, error) {
	link, err := t.open("_INBOX.fake", h)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.dials = append(t.dials, key)
	t.mu.Unlock()
	return link, nil
}

func (t *fakeTransport) lastLink() *fakeLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.links) == 0 {
		return nil
	}
	return t.links[len(t.links)-1]
}

func (t *fakeTransport) deliver(i int, remote string, env protocol.Envelope) {
	t.mu.Lock()
	h := t.handlers[i]
	t.mu.Unlock()
	data, _ := protocol.Encode(env)
	h(remote, data)
}

func TestConfigureShopListens(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{}, nil)

	m.Configure(RoleShop, "SHOP-1234", false)

	assert.Equal(t, StateListening, m.State())
	assert.Equal(t, []string{transport.RendezvousKey("SHOP-1234")}, tr.listens)
}

func TestConfigureWithoutRoleStaysIdle(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{}, nil)

	m.Configure(RoleNone, "SHOP-1234", false)
	assert.Equal(t, StateIdle, m.State())

	m.Configure(RoleShop, "", false)
	assert.Equal(t, StateIdle, m.State())
}

func TestConfigureCustomerRequiresLink(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{}, nil)

	m.Configure(RoleCustomer, "SHOP-1234", false)
	assert.Equal(t, StateIdle, m.State(), "unlinked customer must not dial")

	m.Configure(RoleCustomer, "SHOP-1234", true)
	assert.Equal(t, StateDialing, m.State())
	assert.Equal(t, []string{transport.RendezvousKey("SHOP-1234")}, tr.dials)

	// Dialing announces the customer to the shop.
	envs := tr.lastLink().sentTo(transport.RendezvousKey("SHOP-1234"))
	require.Len(t, envs, 1)
	assert.Equal(t, protocol.KindHello, envs[0].Kind)
}

func TestReconfigureTearsDownPriorTransport(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{}, nil)

	m.Configure(RoleShop, "SHOP-1111", false)
	first := tr.lastLink()
	m.Configure(RoleShop, "SHOP-2222", false)

	assert.Equal(t, 1, first.closeCount)
	assert.Equal(t, StateListening, m.State())
	assert.Equal(t, transport.RendezvousKey("SHOP-2222"), tr.lastLink().addr)

	// Close after teardown is also safe.
	m.Close()
	m.Close()
	assert.Equal(t, StateIdle, m.State())
}

func TestTransportOpenFailureLeavesIdle(t *testing.T) {
	tr := &fakeTransport{failOpen: true}
	m := New(tr, Callbacks{}, nil)

	m.Configure(RoleShop, "SHOP-1234", false)
	assert.Equal(t, StateIdle, m.State())

	m.Configure(RoleCustomer, "SHOP-1234", true)
	assert.Equal(t, StateIdle, m.State())
}

func TestShopAcceptsHelloAndConfirms(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{}, nil)
	m.Configure(RoleShop, "SHOP-1234", false)

	tr.deliver(0, "_INBOX.customer-1", protocol.Hello())

	assert.Equal(t, StateConnected, m.State())
	envs := tr.lastLink().sentTo("_INBOX.customer-1")
	require.Len(t, envs, 1)
	assert.Equal(t, protocol.KindHello, envs[0].Kind)
}

func TestShopSecondHelloReplacesPeer(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{}, nil)
	m.Configure(RoleShop, "SHOP-1234", false)

	tr.deliver(0, "_INBOX.customer-1", protocol.Hello())
	tr.deliver(0, "_INBOX.customer-2", protocol.Hello())
	assert.Equal(t, StateConnected, m.State())

	// Publishes now go to the replacement peer only.
	snapshot := &job.PrintJob{ID: "job-1", Status: job.StatusInQueue}
	require.NoError(t, m.Publish(snapshot))

	link := tr.lastLink()
	assert.Len(t, link.sentTo("_INBOX.customer-1"), 1) // the hello confirmation only
	envs := link.sentTo("_INBOX.customer-2")
	require.Len(t, envs, 2)
	assert.Equal(t, protocol.KindJobUpdate, envs[1].Kind)
	assert.True(t, envs[1].Payload.Equal(snapshot))
}

func TestCustomerConnectPushesActiveJob(t *testing.T) {
	cached := &job.PrintJob{ID: "job-9", FileName: "cv.pdf", Status: job.StatusPrinting}
	tr := &fakeTransport{}
	m := New(tr, Callbacks{ActiveJob: func() *job.PrintJob { return cached }}, nil)
	m.Configure(RoleCustomer, "SHOP-1234", true)

	// Shop confirms the announcement.
	tr.deliver(0, "", protocol.Hello())

	assert.Equal(t, StateConnected, m.State())
	envs := tr.lastLink().sentTo(transport.RendezvousKey("SHOP-1234"))
	require.Len(t, envs, 2, "hello announcement plus reconnect push")
	assert.Equal(t, protocol.KindJobUpdate, envs[1].Kind)
	assert.True(t, envs[1].Payload.Equal(cached))
}

func TestCustomerConnectWithoutActiveJobPushesNothing(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{ActiveJob: func() *job.PrintJob { return nil }}, nil)
	m.Configure(RoleCustomer, "SHOP-1234", true)

	tr.deliver(0, "", protocol.Hello())

	assert.Equal(t, StateConnected, m.State())
	envs := tr.lastLink().sentTo(transport.RendezvousKey("SHOP-1234"))
	assert.Len(t, envs, 1, "only the hello announcement")
}

func TestInboundJobUpdateDispatchesToStore(t *testing.T) {
	var got []*job.PrintJob
	tr := &fakeTransport{}
	m := New(tr, Callbacks{OnJobUpdate: func(s *job.PrintJob) { got = append(got, s) }}, nil)
	m.Configure(RoleShop, "SHOP-1234", false)

	snapshot := &job.PrintJob{ID: "job-1", Status: job.StatusReady}
	tr.deliver(0, "_INBOX.customer-1", protocol.JobUpdate(snapshot))
	tr.deliver(0, "_INBOX.customer-1", protocol.JobUpdate(nil))

	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(snapshot))
	assert.Nil(t, got[1], "null payload must be delivered as an empty slot")
}

func TestStaleHandlerIgnoredAfterReconfigure(t *testing.T) {
	var got int
	tr := &fakeTransport{}
	m := New(tr, Callbacks{OnJobUpdate: func(*job.PrintJob) { got++ }}, nil)
	m.Configure(RoleShop, "SHOP-1111", false)
	m.Configure(RoleShop, "SHOP-2222", false)

	// A late message on the superseded link's handler must be dropped.
	tr.deliver(0, "_INBOX.old", protocol.JobUpdate(&job.PrintJob{ID: "job-1"}))
	assert.Zero(t, got)

	tr.deliver(1, "_INBOX.new", protocol.JobUpdate(&job.PrintJob{ID: "job-1"}))
	assert.Equal(t, 1, got)
}

func TestConnectionLossReturnsToIdle(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{}, nil)
	m.Configure(RoleShop, "SHOP-1234", false)

	link := tr.lastLink()
	close(link.done)

	assert.Eventually(t, func() bool { return m.State() == StateIdle },
		eventuallyWait, eventuallyTick)
}

func TestPublishWithoutPeer(t *testing.T) {
	tr := &fakeTransport{}
	m := New(tr, Callbacks{}, nil)

	err := m.Publish(&job.PrintJob{ID: "job-1"})
	assert.Error(t, err)

	// Listening but no accepted customer yet: still no peer.
	m.Configure(RoleShop, "SHOP-1234", false)
	err = m.Publish(&job.PrintJob{ID: "job-1"})
	assert.Error(t, err)
}
