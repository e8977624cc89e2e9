package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestBreaker(now *time.Time) *Breaker {
	b := New(Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             10 * time.Second,
		HalfOpenMaxRequests: 1,
	})
	b.now = func() time.Time { return *now }
	return b
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)

	for i := 0; i < 2; i++ {
		if err := b.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: expected underlying error, got %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("open breaker should reject without calling fn, err=%v called=%v", err, called)
	}
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)
	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return errBoom })

	now = now.Add(11 * time.Second)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe should run, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)
	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return errBoom })

	now = now.Add(11 * time.Second)
	_ = b.Execute(func() error { return errBoom })
	if b.State() != StateOpen {
		t.Fatalf("expected reopen, got %s", b.State())
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := newTestBreaker(&now)
	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errBoom })
	if b.State() != StateClosed {
		t.Fatalf("non-consecutive failures should not trip, got %s", b.State())
	}
}
