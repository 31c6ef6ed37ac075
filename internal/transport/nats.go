package transport

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATS implements Transport over a NATS server. The rendezvous key maps
// directly onto a subject; the dialing side announces its reply inbox so
// the listener can address it.
type NATS struct {
	url  string
	opts []nats.Option
}

// NewNATS creates a transport connecting to the given NATS URL.
func NewNATS(url string, opts ...nats.Option) *NATS {
	if url == "" {
		url = nats.DefaultURL
	}
	return &NATS{url: url, opts: opts}
}

// Listen opens the shop side of a peer link under the rendezvous key.
func (t *NATS) Listen(key string, h Handler) (Link, error) {
	link, err := t.open("pickit-listen-" + key)
	if err != nil {
		return nil, err
	}
	link.addr = key

	if _, err := link.conn.Subscribe(key, func(m *nats.Msg) {
		h(m.Reply, m.Data)
	}); err != nil {
		link.conn.Close()
		return nil, fmt.Errorf("subscribe %q: %w", key, err)
	}
	if err := link.conn.Flush(); err != nil {
		link.conn.Close()
		return nil, fmt.Errorf("flush subscription: %w", err)
	}

	slog.Debug("transport listening", "key", key)
	return link, nil
}

// Dial opens the customer side: an auto-assigned inbox subject through
// which the shop addresses this device.
func (t *NATS) Dial(key string, h Handler) (Link, error) {
	link, err := t.open("pickit-dial-" + key)
	if err != nil {
		return nil, err
	}
	inbox := nats.NewInbox()
	link.addr = inbox
	link.reply = inbox

	if _, err := link.conn.Subscribe(inbox, func(m *nats.Msg) {
		h(m.Reply, m.Data)
	}); err != nil {
		link.conn.Close()
		return nil, fmt.Errorf("subscribe inbox: %w", err)
	}
	if err := link.conn.Flush(); err != nil {
		link.conn.Close()
		return nil, fmt.Errorf("flush subscription: %w", err)
	}

	slog.Debug("transport dialing", "key", key, "inbox", inbox)
	return link, nil
}

func (t *NATS) open(name string) (*natsLink, error) {
	done := make(chan struct{})
	var once sync.Once

	opts := append([]nats.Option{
		nats.Name(name),
		nats.ClosedHandler(func(*nats.Conn) {
			once.Do(func() { close(done) })
		}),
	}, t.opts...)

	conn, err := nats.Connect(t.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", t.url, err)
	}

	return &natsLink{conn: conn, done: done}, nil
}

type natsLink struct {
	conn  *nats.Conn
	addr  string
	reply string // announced on every send from the dialing side
	done  chan struct{}
}

func (l *natsLink) Addr() string { return l.addr }

func (l *natsLink) SendTo(remote string, data []byte) error {
	if l.reply != "" {
		return l.conn.PublishRequest(remote, l.reply, data)
	}
	return l.conn.Publish(remote, data)
}

func (l *natsLink) Done() <-chan struct{} { return l.done }

// Close tears down the connection. Safe to call more than once; the
// closed handler fires at most once.
func (l *natsLink) Close() error {
	l.conn.Close()
	return nil
}
