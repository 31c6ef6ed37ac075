package job

import "time"

// Effect identifies a side effect owed after a state change has been
// applied. The caller dispatches effects after releasing its write lock.
type Effect string

const (
	// EffectNotifyReady fires the pickup alert (chime + system
	// notification). Owed exactly once per transition into READY.
	EffectNotifyReady Effect = "notify-ready"
	// EffectArchive records that the job left the active slot for the
	// history sequence.
	EffectArchive Effect = "archive"
)

// Outcome is the result of applying a status change or an inbound
// snapshot to the active slot.
type Outcome struct {
	// Active is the content of the active slot after the change; nil
	// when the slot is empty.
	Active *PrintJob
	// Archived is set when the change moved a job into history.
	Archived *PrintJob
	// Effects are owed side effects, in order.
	Effects []Effect
	// Changed is false when the change was a no-op (stale id, repeated
	// status, equal snapshot).
	Changed bool
}

// Advance applies newStatus to the active job. It is a no-op when the
// slot is empty, when jobID does not match the active job (stale or
// superseded message), or when the job already carries newStatus.
//
// Entering READY owes the notify effect; entering COLLECTED stamps the
// record, moves it out of the active slot and owes the archive effect.
func Advance(active *PrintJob, jobID string, newStatus Status, now time.Time) Outcome {
	if active == nil || active.ID != jobID {
		return Outcome{Active: active}
	}
	if active.Status == newStatus {
		return Outcome{Active: active}
	}

	updated := active.Clone()
	updated.Status = newStatus

	switch newStatus {
	case StatusReady:
		return Outcome{Active: updated, Effects: []Effect{EffectNotifyReady}, Changed: true}
	case StatusCollected:
		updated.Timestamp = now
		return Outcome{Archived: updated, Effects: []Effect{EffectArchive}, Changed: true}
	default:
		return Outcome{Active: updated, Changed: true}
	}
}

// Reconcile replaces the active slot with an inbound snapshot
// (last-writer-wins) and derives the effects the replacement owes. A nil
// snapshot empties the slot. Applying an equal snapshot twice is a no-op,
// which keeps replayed envelopes from double-firing the ready alert.
func Reconcile(active, snapshot *PrintJob, now time.Time) Outcome {
	if active.Equal(snapshot) {
		return Outcome{Active: active}
	}
	if snapshot == nil {
		return Outcome{Changed: true}
	}

	next := snapshot.Clone()
	out := Outcome{Active: next, Changed: true}

	wasReady := active != nil && active.ID == next.ID && statusOrder[active.Status] >= statusOrder[StatusReady]
	if next.Status == StatusReady && !wasReady {
		out.Effects = append(out.Effects, EffectNotifyReady)
	}
	if next.Status == StatusCollected {
		if next.Timestamp.IsZero() {
			next.Timestamp = now
		}
		out.Active = nil
		out.Archived = next
		out.Effects = append(out.Effects, EffectArchive)
	}
	return out
}
