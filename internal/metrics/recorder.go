// Package metrics provides observability hooks for the peer session and
// replication core. Components receive a Recorder through dependency
// injection; NoopRecorder is the default so metrics stay optional.
package metrics

// Direction labels envelope flow relative to this device.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Recorder defines observability hooks for session and replication
// metrics. Implementations may forward to Prometheus etc. All methods
// must be safe on a NoopRecorder (allowing optional injection).
type Recorder interface {
	IncSessionEstablished(role string)
	IncSessionTeardown(role string)
	SetSessionState(state string)
	IncEnvelope(direction Direction, kind string)
	IncStaleDrop()
	IncTransition(status string)
	IncNotification(target string, success bool)
	IncCacheWrite(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncSessionEstablished(string)  {}
func (NoopRecorder) IncSessionTeardown(string)     {}
func (NoopRecorder) SetSessionState(string)        {}
func (NoopRecorder) IncEnvelope(Direction, string) {}
func (NoopRecorder) IncStaleDrop()                 {}
func (NoopRecorder) IncTransition(string)          {}
func (NoopRecorder) IncNotification(string, bool)  {}
func (NoopRecorder) IncCacheWrite(bool)            {}
