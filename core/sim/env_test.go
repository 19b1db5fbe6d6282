package sim

import (
	"testing"
	"time"
)

var testStart = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestProcessesRunInRegistrationOrderAtSameTimestamp(t *testing.T) {
	env := NewEnvironment(testStart, nil)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		env.Process(name, func(p *Proc) error {
			order = append(order, p.Name())
			return nil
		})
	}
	env.Run(time.Time{})
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected FIFO order a,b,c got %v", order)
	}
}

func TestSleepAdvancesClock(t *testing.T) {
	env := NewEnvironment(testStart, nil)
	var woke time.Time
	env.Process("sleeper", func(p *Proc) error {
		if err := p.Sleep(42 * time.Minute); err != nil {
			return err
		}
		woke = env.Now()
		return nil
	})
	env.Run(time.Time{})
	if want := testStart.Add(42 * time.Minute); !woke.Equal(want) {
		t.Fatalf("woke at %v want %v", woke, want)
	}
}

func TestInterleavedSleepsFireInTimestampOrder(t *testing.T) {
	env := NewEnvironment(testStart, nil)
	var order []string
	env.Process("slow", func(p *Proc) error {
		if err := p.Sleep(10 * time.Minute); err != nil {
			return err
		}
		order = append(order, "slow")
		return nil
	})
	env.Process("fast", func(p *Proc) error {
		if err := p.Sleep(5 * time.Minute); err != nil {
			return err
		}
		order = append(order, "fast")
		return nil
	})
	env.Run(time.Time{})
	if len(order) != 2 || order[0] != "fast" || order[1] != "slow" {
		t.Fatalf("expected fast,slow got %v", order)
	}
}

func TestRunStopsAtHorizon(t *testing.T) {
	env := NewEnvironment(testStart, nil)
	ticks := 0
	env.Process("ticker", func(p *Proc) error {
		for {
			if err := p.Sleep(time.Hour); err != nil {
				return err
			}
			ticks++
		}
	})
	horizon := testStart.Add(3*time.Hour + 30*time.Minute)
	env.Run(horizon)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks before horizon, got %d", ticks)
	}
	if !env.Now().Equal(horizon) {
		t.Fatalf("clock at %v want %v", env.Now(), horizon)
	}
	if !env.Stopped() {
		t.Fatal("environment should be stopped after Run")
	}
}

func TestSleepUntilClampsToNow(t *testing.T) {
	env := NewEnvironment(testStart, nil)
	var ran bool
	env.Process("p", func(p *Proc) error {
		if err := p.SleepUntil(testStart.Add(-time.Hour)); err != nil {
			return err
		}
		if env.Now().Before(testStart) {
			t.Errorf("clock went backwards: %v", env.Now())
		}
		ran = true
		return nil
	})
	env.Run(time.Time{})
	if !ran {
		t.Fatal("process did not run")
	}
}

func TestSuspendAndWake(t *testing.T) {
	env := NewEnvironment(testStart, nil)
	var waiter *Proc
	var resumedAt time.Time
	env.Process("waiter", func(p *Proc) error {
		waiter = p
		if err := p.Suspend(); err != nil {
			return err
		}
		resumedAt = env.Now()
		return nil
	})
	env.Process("waker", func(p *Proc) error {
		if err := p.Sleep(15 * time.Minute); err != nil {
			return err
		}
		env.Wake(waiter)
		return nil
	})
	env.Run(time.Time{})
	if want := testStart.Add(15 * time.Minute); !resumedAt.Equal(want) {
		t.Fatalf("waiter resumed at %v want %v", resumedAt, want)
	}
}

func TestShutdownReleasesSuspendedProcesses(t *testing.T) {
	env := NewEnvironment(testStart, nil)
	var gotErr error
	env.Process("stuck", func(p *Proc) error {
		gotErr = p.Suspend()
		return gotErr
	})
	env.Run(time.Time{})
	if gotErr != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", gotErr)
	}
}
