// Package transport provides the rendezvous-keyed peer link between the
// shop and customer devices. Any substrate offering a keyed listen/dial
// primitive and an ordered bidirectional message channel satisfies the
// interface; the production implementation runs over NATS core.
package transport

// RendezvousKey derives the stable rendezvous identifier both roles use
// to find each other. Deterministic and collision-free for distinct shop
// identities: a fixed namespace prefix concatenated with the shop id.
func RendezvousKey(shopID string) string {
	return "pickit.shop." + shopID
}

// Handler receives one inbound message. remote is the reply address of
// the sender when it announced one, otherwise empty.
type Handler func(remote string, data []byte)

// Transport opens peer links under a rendezvous key.
type Transport interface {
	// Listen opens the shop side: inbound messages sent to the
	// rendezvous key are delivered to h in arrival order.
	Listen(key string, h Handler) (Link, error)
	// Dial opens the customer side under an auto-assigned address;
	// messages sent to that address are delivered to h in arrival order.
	Dial(key string, h Handler) (Link, error)
}

// Link is one open transport endpoint. Close is idempotent; closing an
// already-closed link is a no-op.
type Link interface {
	// Addr is this endpoint's own address: the rendezvous key on the
	// listening side, the auto-assigned inbox on the dialing side.
	Addr() string
	// SendTo delivers one message to the given remote address. Messages
	// between the same pair of endpoints arrive in send order.
	SendTo(remote string, data []byte) error
	// Done is closed when the underlying connection is lost or the link
	// is closed.
	Done() <-chan struct{}
	Close() error
}
