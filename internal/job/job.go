// Package job defines the print job record and its lifecycle state
// machine. The state machine is pure: transitions return the side effects
// they owe instead of firing them, so dispatch stays outside the mutation
// path.
package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/pickit-labs/pickit/internal/shop"
)

// Status is the lifecycle state of a print job.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusInQueue        Status = "IN_QUEUE"
	StatusPrinting       Status = "PRINTING"
	StatusReady          Status = "READY"
	StatusCollected      Status = "COLLECTED"
)

// statusOrder fixes the forward progression of the lifecycle.
var statusOrder = map[Status]int{
	StatusPendingPayment: 0,
	StatusInQueue:        1,
	StatusPrinting:       2,
	StatusReady:          3,
	StatusCollected:      4,
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Terminal reports whether a job in this state has left the active slot
// permanently.
func (s Status) Terminal() bool { return s == StatusCollected }

// CanAdvanceTo reports whether next is the immediate forward successor of
// s. The lifecycle has no skips and no backward moves.
func (s Status) CanAdvanceTo(next Status) bool {
	a, ok := statusOrder[s]
	b, ok2 := statusOrder[next]
	return ok && ok2 && b == a+1
}

// PrintJob is the unit of replication between the shop and customer
// devices. Every field except Status is immutable after creation;
// Timestamp is set once, when the job reaches its terminal state.
type PrintJob struct {
	ID            string    `json:"id"`
	FileName      string    `json:"fileName"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	PageCount     int       `json:"pageCount"`
	IsColor       bool      `json:"isColor"`
	IsDoubleSided bool      `json:"isDoubleSided"`
	Cost          int       `json:"cost"`
	Status        Status    `json:"status"`
	Timestamp     time.Time `json:"timestamp,omitzero"`
}

// Request carries the customer-entered fields of a new print job.
type Request struct {
	FileName      string `json:"fileName"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	PageCount     int    `json:"pageCount"`
	IsColor       bool   `json:"isColor"`
	IsDoubleSided bool   `json:"isDoubleSided"`
}

// New builds a print job from a customer request, pricing it against the
// shop's rate card. The id is assigned here and never changes.
func New(req Request, pricing shop.Pricing) *PrintJob {
	return &PrintJob{
		ID:            uuid.NewString(),
		FileName:      req.FileName,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PageCount:     req.PageCount,
		IsColor:       req.IsColor,
		IsDoubleSided: req.IsDoubleSided,
		Cost:          pricing.CostFor(req.PageCount, req.IsColor, req.IsDoubleSided),
		Status:        StatusPendingPayment,
	}
}

// Equal compares two snapshots field for field. Replication treats equal
// snapshots as already applied.
func (j *PrintJob) Equal(other *PrintJob) bool {
	if j == nil || other == nil {
		return j == other
	}
	return j.ID == other.ID &&
		j.FileName == other.FileName &&
		j.CustomerName == other.CustomerName &&
		j.CustomerPhone == other.CustomerPhone &&
		j.PageCount == other.PageCount &&
		j.IsColor == other.IsColor &&
		j.IsDoubleSided == other.IsDoubleSided &&
		j.Cost == other.Cost &&
		j.Status == other.Status &&
		j.Timestamp.Equal(other.Timestamp)
}

// Clone returns a copy of the job, or nil for nil.
func (j *PrintJob) Clone() *PrintJob {
	if j == nil {
		return nil
	}
	c := *j
	return &c
}
