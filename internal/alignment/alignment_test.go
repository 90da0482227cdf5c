// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package alignment

import (
	"log/slog"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/wneessen/waybar-landmark/internal/logger"
	"github.com/wneessen/waybar-landmark/internal/vartype"
)

type mockActuator struct {
	mu       sync.Mutex
	triggers int
}

func (m *mockActuator) Trigger([]time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers++
}

func (m *mockActuator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.triggers
}

func heading(deg float64) vartype.VarFloat64 {
	return vartype.NewVariable(deg)
}

func testTracker(t *testing.T) (*Tracker, *mockActuator) {
	t.Helper()
	act := &mockActuator{}
	return New(DefaultOptions(), act, logger.New(slog.LevelError)), act
}

func TestNew(t *testing.T) {
	t.Run("new tracker starts not aligned", func(t *testing.T) {
		tracker, _ := testTracker(t)
		if tracker.Aligned() {
			t.Error("expected new tracker to not be aligned")
		}
		if tracker.Pending() {
			t.Error("expected new tracker to have no pending transition")
		}
	})
	t.Run("nil actuator is replaced", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker := New(DefaultOptions(), nil, logger.New(slog.LevelError))
			tracker.Update(90, heading(90))
			time.Sleep(DefaultAlignDelay * 2)
			synctest.Wait()
			if !tracker.Aligned() {
				t.Error("expected tracker to be aligned")
			}
		})
	})
}

func TestTracker_Update(t *testing.T) {
	t.Run("alignment is committed after the align delay", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, act := testTracker(t)
			tracker.Update(100, heading(90))
			if !tracker.Pending() {
				t.Fatal("expected a pending transition")
			}

			time.Sleep(DefaultAlignDelay - time.Millisecond)
			synctest.Wait()
			if tracker.Aligned() {
				t.Fatal("expected alignment to not be committed before the delay elapsed")
			}

			time.Sleep(time.Millisecond * 2)
			synctest.Wait()
			if !tracker.Aligned() {
				t.Fatal("expected alignment to be committed after the delay elapsed")
			}
			if act.count() != 1 {
				t.Errorf("expected one haptic trigger, got %d", act.count())
			}
		})
	})
	t.Run("losing alignment takes the longer unalign delay", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, act := testTracker(t)
			tracker.Update(0, heading(0))
			time.Sleep(DefaultAlignDelay + time.Millisecond)
			synctest.Wait()
			if !tracker.Aligned() {
				t.Fatal("expected tracker to be aligned")
			}

			tracker.Update(0, heading(90))
			time.Sleep(DefaultUnalignDelay - time.Millisecond)
			synctest.Wait()
			if !tracker.Aligned() {
				t.Fatal("expected tracker to still be aligned before the unalign delay elapsed")
			}

			time.Sleep(time.Millisecond * 2)
			synctest.Wait()
			if tracker.Aligned() {
				t.Fatal("expected tracker to not be aligned after the unalign delay elapsed")
			}
			if act.count() != 1 {
				t.Errorf("expected losing alignment to not trigger haptics, got %d triggers", act.count())
			}
		})
	})
	t.Run("a superseding sample cancels the pending transition", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, act := testTracker(t)
			tracker.Update(10, heading(0))
			time.Sleep(DefaultAlignDelay / 2)
			tracker.Update(60, heading(0))

			time.Sleep(time.Second)
			synctest.Wait()
			if tracker.Aligned() {
				t.Error("expected cancelled transition to never commit")
			}
			if act.count() != 0 {
				t.Errorf("expected no haptic trigger, got %d", act.count())
			}
		})
	})
	t.Run("each sample restarts the delay", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, _ := testTracker(t)
			for i := 0; i < 5; i++ {
				tracker.Update(5, heading(0))
				time.Sleep(DefaultAlignDelay - time.Millisecond*10)
			}
			synctest.Wait()
			if tracker.Aligned() {
				t.Fatal("expected alignment to not be committed while samples keep arriving")
			}
			time.Sleep(time.Millisecond * 20)
			synctest.Wait()
			if !tracker.Aligned() {
				t.Error("expected alignment to be committed once samples settle")
			}
		})
	})
	t.Run("brief jitter near the boundary does not flicker", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, act := testTracker(t)
			tracker.Update(14, heading(0))
			time.Sleep(DefaultAlignDelay + time.Millisecond)
			synctest.Wait()

			tracker.Update(16, heading(0))
			time.Sleep(DefaultUnalignDelay / 2)
			tracker.Update(14, heading(0))
			time.Sleep(time.Second)
			synctest.Wait()

			if !tracker.Aligned() {
				t.Error("expected tracker to stay aligned")
			}
			if act.count() != 1 {
				t.Errorf("expected exactly one haptic trigger, got %d", act.count())
			}
		})
	})
	t.Run("repeated identical samples trigger haptics only once", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, act := testTracker(t)
			for i := 0; i < 20; i++ {
				tracker.Update(200, heading(195))
				time.Sleep(DefaultAlignDelay * 2)
			}
			synctest.Wait()
			if !tracker.Aligned() {
				t.Error("expected tracker to be aligned")
			}
			if act.count() != 1 {
				t.Errorf("expected exactly one haptic trigger, got %d", act.count())
			}
		})
	})
	t.Run("every new alignment triggers haptics again", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, act := testTracker(t)
			for i := 0; i < 3; i++ {
				tracker.Update(0, heading(0))
				time.Sleep(DefaultAlignDelay * 2)
				tracker.Update(0, heading(180))
				time.Sleep(DefaultUnalignDelay * 2)
			}
			synctest.Wait()
			if act.count() != 3 {
				t.Errorf("expected three haptic triggers, got %d", act.count())
			}
		})
	})
	t.Run("absent heading keeps the tracker not aligned", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, act := testTracker(t)
			var none vartype.VarFloat64
			for bearing := 0.0; bearing < 360; bearing += 7.5 {
				tracker.Update(bearing, none)
				if tracker.Pending() {
					t.Fatal("expected no transition to be scheduled without a heading")
				}
				time.Sleep(time.Millisecond * 50)
			}
			time.Sleep(time.Second)
			synctest.Wait()
			if tracker.Aligned() {
				t.Error("expected tracker to not be aligned without a heading")
			}
			if act.count() != 0 {
				t.Errorf("expected no haptic trigger, got %d", act.count())
			}
		})
	})
	t.Run("losing the heading clears alignment immediately", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tracker, _ := testTracker(t)
			tracker.Update(0, heading(0))
			time.Sleep(DefaultAlignDelay * 2)
			synctest.Wait()
			if !tracker.Aligned() {
				t.Fatal("expected tracker to be aligned")
			}
			tracker.Update(0, vartype.VarFloat64{})
			if tracker.Aligned() {
				t.Error("expected tracker to not be aligned after the heading was lost")
			}
		})
	})
}

func TestTracker_OnChange(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracker, _ := testTracker(t)
		var mu sync.Mutex
		var changes []bool
		tracker.OnChange(func(aligned bool) {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, aligned)
		})

		tracker.Update(0, heading(0))
		time.Sleep(DefaultAlignDelay * 2)
		tracker.Update(0, heading(90))
		time.Sleep(DefaultUnalignDelay * 2)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()
		if len(changes) != 2 {
			t.Fatalf("expected 2 state changes, got %d", len(changes))
		}
		if !changes[0] || changes[1] {
			t.Errorf("expected changes to be [true false], got %v", changes)
		}
	})
}

func TestTracker_Reset(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracker, act := testTracker(t)
		tracker.Update(0, heading(0))
		tracker.Reset()
		time.Sleep(time.Second)
		synctest.Wait()
		if tracker.Aligned() {
			t.Error("expected reset to cancel the pending transition")
		}
		if act.count() != 0 {
			t.Errorf("expected no haptic trigger, got %d", act.count())
		}

		tracker.Update(0, heading(0))
		time.Sleep(DefaultAlignDelay * 2)
		synctest.Wait()
		if !tracker.Aligned() {
			t.Fatal("expected tracker to be usable after reset")
		}
		tracker.Reset()
		if tracker.Aligned() {
			t.Error("expected reset to clear the aligned state")
		}
	})
}

func TestTracker_Close(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracker, act := testTracker(t)
		called := false
		tracker.OnChange(func(bool) { called = true })

		tracker.Update(0, heading(0))
		tracker.Close()
		if tracker.Pending() {
			t.Error("expected close to cancel the pending transition")
		}

		time.Sleep(time.Second)
		synctest.Wait()
		if called {
			t.Error("expected no callback after close")
		}
		if act.count() != 0 {
			t.Errorf("expected no haptic trigger after close, got %d", act.count())
		}

		tracker.Update(0, heading(0))
		time.Sleep(time.Second)
		synctest.Wait()
		if tracker.Aligned() || tracker.Pending() {
			t.Error("expected samples after close to be ignored")
		}
	})
}
