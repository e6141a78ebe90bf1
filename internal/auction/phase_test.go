package auction

import (
	"testing"
	"time"
)

func TestDecompose(t *testing.T) {
	c := Decompose(2*24*time.Hour + 3*time.Hour + 15*time.Minute + 42*time.Second)
	if c.Days != 2 || c.Hours != 3 || c.Minutes != 15 || c.Seconds != 42 {
		t.Fatalf("unexpected decomposition: %+v", c)
	}
}

func TestDecomposeClampsToZero(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second, -48 * time.Hour} {
		c := Decompose(d)
		if c != (Countdown{}) {
			t.Fatalf("expected all-zero countdown for %v, got %+v", d, c)
		}
	}
}

func TestDecomposeSubSecond(t *testing.T) {
	c := Decompose(900 * time.Millisecond)
	if c != (Countdown{}) {
		t.Fatalf("sub-second remainder should render as zero, got %+v", c)
	}
}

func TestResolveScheduled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{
		Status:  StatusScheduled,
		StartAt: now.Add(2*24*time.Hour + 3*time.Hour),
		EndAt:   now.Add(5 * 24 * time.Hour),
	}
	v := Resolve(a, now)
	if v.Phase != PhaseScheduled {
		t.Fatalf("expected Scheduled, got %s", v.Phase)
	}
	if v.StartingSoon {
		t.Fatal("StartingSoon should be false before startAt")
	}
	if v.Remaining.Days != 2 || v.Remaining.Hours != 3 {
		t.Fatalf("countdown should target startAt: %+v", v.Remaining)
	}
}

func TestResolveScheduledPastStart(t *testing.T) {
	// The server has not flipped the status yet. The client flags the
	// imminent start but does not promote the phase on its own.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{Status: StatusScheduled, StartAt: now.Add(-time.Minute), EndAt: now.Add(time.Hour)}
	v := Resolve(a, now)
	if v.Phase != PhaseScheduled {
		t.Fatalf("client must not promote Scheduled to Open, got %s", v.Phase)
	}
	if !v.StartingSoon {
		t.Fatal("StartingSoon should be set once startAt has elapsed")
	}
	if v.Remaining != (Countdown{}) {
		t.Fatalf("no countdown while starting soon, got %+v", v.Remaining)
	}
}

func TestResolveOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{Status: StatusOpen, StartAt: now.Add(-time.Hour), EndAt: now.Add(90 * time.Second)}
	v := Resolve(a, now)
	if v.Phase != PhaseOpen {
		t.Fatalf("expected Open, got %s", v.Phase)
	}
	if v.Remaining.Minutes != 1 || v.Remaining.Seconds != 30 {
		t.Fatalf("countdown should target endAt: %+v", v.Remaining)
	}
}

func TestResolveOpenPastEnd(t *testing.T) {
	// Reading through a stale OPEN record after endAt yields Reveal.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{Status: StatusOpen, StartAt: now.Add(-2 * time.Hour), EndAt: now.Add(-time.Second)}
	v := Resolve(a, now)
	if v.Phase != PhaseReveal {
		t.Fatalf("expected Reveal for elapsed open window, got %s", v.Phase)
	}
	if v.Remaining != (Countdown{}) {
		t.Fatalf("no countdown in Reveal, got %+v", v.Remaining)
	}
}

func TestResolveOpenAtExactEnd(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{Status: StatusOpen, EndAt: now}
	if v := Resolve(a, now); v.Phase != PhaseReveal {
		t.Fatalf("endAt itself is no longer open, got %s", v.Phase)
	}
}

func TestResolveRevealAndClosed(t *testing.T) {
	now := time.Now()
	if v := Resolve(&Auction{Status: StatusReveal}, now); v.Phase != PhaseReveal {
		t.Fatalf("expected Reveal, got %s", v.Phase)
	}
	if v := Resolve(&Auction{Status: StatusClosed}, now); v.Phase != PhaseClosed {
		t.Fatalf("expected Closed, got %s", v.Phase)
	}
}

func TestTerminal(t *testing.T) {
	if (PhaseView{Phase: PhaseReveal}).Terminal() {
		t.Fatal("Reveal is not terminal; close still changes the view")
	}
	if !(PhaseView{Phase: PhaseClosed}).Terminal() {
		t.Fatal("Closed should be terminal")
	}
}
