// Package protocol defines the replication envelope exchanged between
// the shop and customer devices. Replication is last-writer-wins at the
// envelope level: a received snapshot replaces the local record verbatim.
// That is safe because each side is the sole writer for its subset of
// transitions (the shop drives queue/print/ready, the customer drives
// creation), so no merge or causal ordering is needed.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pickit-labs/pickit/internal/job"
)

// Kind discriminates envelope types on the wire.
type Kind string

const (
	// KindHello announces a peer. The customer sends it to the
	// rendezvous subject to open a session; the shop answers it to the
	// announcing peer to confirm.
	KindHello Kind = "HELLO"
	// KindJobUpdate carries a full snapshot of the active job, or null
	// for "no active job".
	KindJobUpdate Kind = "JOB_UPDATE"
)

// Envelope is the single message shape of the replication protocol.
type Envelope struct {
	Kind    Kind          `json:"kind"`
	Payload *job.PrintJob `json:"payload"`
}

// Hello builds a session announcement.
func Hello() Envelope {
	return Envelope{Kind: KindHello}
}

// JobUpdate builds a snapshot envelope. A nil snapshot encodes as a null
// payload and clears the receiver's active slot.
func JobUpdate(snapshot *job.PrintJob) Envelope {
	return Envelope{Kind: KindJobUpdate, Payload: snapshot}
}

// Encode serializes an envelope for the peer link.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Decode parses an envelope received from the peer link, rejecting
// unknown kinds.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Kind {
	case KindHello, KindJobUpdate:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("unknown envelope kind %q", env.Kind)
	}
}
