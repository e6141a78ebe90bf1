package auction

import "time"

// Phase is the effective auction phase as seen by this client. It refines
// the server status with wall-clock knowledge so the UI never shows a live
// countdown for an auction whose window has already elapsed.
type Phase string

const (
	PhaseScheduled Phase = "Scheduled"
	PhaseOpen      Phase = "Open"
	PhaseReveal    Phase = "Reveal"
	PhaseClosed    Phase = "Closed"
)

// Countdown is a non-negative decomposition of a remaining duration.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// PhaseView is what the bidding panel renders each second.
type PhaseView struct {
	Phase Phase `json:"phase"`
	// Remaining counts down to endAt while Open, or to startAt while
	// Scheduled. Zero in Reveal/Closed.
	Remaining Countdown `json:"remaining"`
	// StartingSoon is set when a SCHEDULED auction's startAt has elapsed
	// but the server has not yet flipped it to OPEN. The client does not
	// promote the phase itself.
	StartingSoon bool `json:"startingSoon"`
}

// Decompose splits d into days/hours/minutes/seconds, clamping every field
// to zero for non-positive durations.
func Decompose(d time.Duration) Countdown {
	if d <= 0 {
		return Countdown{}
	}
	secs := int(d / time.Second)
	return Countdown{
		Days:    secs / 86400,
		Hours:   (secs % 86400) / 3600,
		Minutes: (secs % 3600) / 60,
		Seconds: secs % 60,
	}
}

// Resolve derives the effective phase view for a at the given instant.
func Resolve(a *Auction, now time.Time) PhaseView {
	switch a.Status {
	case StatusScheduled:
		if !now.Before(a.StartAt) {
			return PhaseView{Phase: PhaseScheduled, StartingSoon: true}
		}
		return PhaseView{Phase: PhaseScheduled, Remaining: Decompose(a.StartAt.Sub(now))}
	case StatusOpen:
		if !now.Before(a.EndAt) {
			// Bidding window elapsed; report Reveal ahead of the next
			// poll instead of showing a stale open countdown.
			return PhaseView{Phase: PhaseReveal}
		}
		return PhaseView{Phase: PhaseOpen, Remaining: Decompose(a.EndAt.Sub(now))}
	case StatusReveal:
		return PhaseView{Phase: PhaseReveal}
	default:
		return PhaseView{Phase: PhaseClosed}
	}
}

// Terminal reports whether the view can no longer change without new
// server state.
func (v PhaseView) Terminal() bool {
	return v.Phase == PhaseClosed
}
