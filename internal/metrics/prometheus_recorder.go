package metrics

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

// sessionStates enumerates the gauge states exported for the session
// manager, one gauge value per state with the current one set to 1.
var sessionStates = []string{"idle", "listening", "dialing", "connected"}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	sessions      *prom.CounterVec
	teardowns     *prom.CounterVec
	sessionState  *prom.GaugeVec
	envelopes     *prom.CounterVec
	staleDrops    prom.Counter
	transitions   *prom.CounterVec
	notifications *prom.CounterVec
	cacheWrites   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.sessions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pickit",
			Name:      "sessions_established_total",
			Help:      "Peer sessions that reached the connected state",
		}, []string{"role"})
		pr.teardowns = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pickit",
			Name:      "session_teardowns_total",
			Help:      "Transport teardowns triggered by role or identity changes",
		}, []string{"role"})
		pr.sessionState = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "pickit",
			Name:      "session_state",
			Help:      "Current session manager state (1 for the active state)",
		}, []string{"state"})
		pr.envelopes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pickit",
			Name:      "envelopes_total",
			Help:      "Replication envelopes by direction and kind",
		}, []string{"direction", "kind"})
		pr.staleDrops = prom.NewCounter(prom.CounterOpts{
			Namespace: "pickit",
			Name:      "stale_envelopes_dropped_total",
			Help:      "Inbound envelopes dropped for referencing a superseded job",
		})
		pr.transitions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pickit",
			Name:      "job_transitions_total",
			Help:      "Job lifecycle transitions by target status",
		}, []string{"status"})
		pr.notifications = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pickit",
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts by target and result",
		}, []string{"target", "result"})
		pr.cacheWrites = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pickit",
			Name:      "cache_writes_total",
			Help:      "Durable cache writes by result",
		}, []string{"result"})
		reg.MustRegister(pr.sessions, pr.teardowns, pr.sessionState, pr.envelopes,
			pr.staleDrops, pr.transitions, pr.notifications, pr.cacheWrites)
	})
	return pr
}

func (p *PrometheusRecorder) IncSessionEstablished(role string) {
	if p == nil || p.sessions == nil {
		return
	}
	p.sessions.WithLabelValues(role).Inc()
}

func (p *PrometheusRecorder) IncSessionTeardown(role string) {
	if p == nil || p.teardowns == nil {
		return
	}
	p.teardowns.WithLabelValues(role).Inc()
}

func (p *PrometheusRecorder) SetSessionState(state string) {
	if p == nil || p.sessionState == nil {
		return
	}
	for _, s := range sessionStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		p.sessionState.WithLabelValues(s).Set(v)
	}
}

func (p *PrometheusRecorder) IncEnvelope(direction Direction, kind string) {
	if p == nil || p.envelopes == nil {
		return
	}
	p.envelopes.WithLabelValues(string(direction), kind).Inc()
}

func (p *PrometheusRecorder) IncStaleDrop() {
	if p == nil || p.staleDrops == nil {
		return
	}
	p.staleDrops.Inc()
}

func (p *PrometheusRecorder) IncTransition(status string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncNotification(target string, success bool) {
	if p == nil || p.notifications == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.notifications.WithLabelValues(target, res).Inc()
}

func (p *PrometheusRecorder) IncCacheWrite(success bool) {
	if p == nil || p.cacheWrites == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.cacheWrites.WithLabelValues(res).Inc()
}
