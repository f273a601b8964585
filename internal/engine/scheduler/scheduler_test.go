package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/internal/engine/heartbeat"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC)

type call struct {
	at      time.Time
	timeout time.Duration
}

// fakeRunner отдает статусы по очереди и пишет время каждого вызова в calls
type fakeRunner struct {
	clock    *fakeclock.FakeClock
	calls    chan call
	mu       sync.Mutex
	statuses []models.Status
	err      error
	during   func()
	block    bool
	canceled chan struct{}
}

func newFakeRunner(clk *fakeclock.FakeClock) *fakeRunner {
	return &fakeRunner{clock: clk, calls: make(chan call, 16), canceled: make(chan struct{}, 1)}
}

func (r *fakeRunner) Run(ctx context.Context, _ *models.Monitor, timeout time.Duration) (*models.Heartbeat, error) {
	r.calls <- call{at: r.clock.Now(), timeout: timeout}

	r.mu.Lock()
	status := models.StatusUp
	if len(r.statuses) > 0 {
		status = r.statuses[0]
		r.statuses = r.statuses[1:]
	}
	during, block, err := r.during, r.block, r.err
	r.during = nil
	r.mu.Unlock()

	if during != nil {
		during()
	}
	if block {
		<-ctx.Done()
		r.canceled <- struct{}{}
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &models.Heartbeat{Status: status, Time: r.clock.Now()}, nil
}

func (r *fakeRunner) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-r.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a check cycle")
		return call{}
	}
}

func (r *fakeRunner) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-r.calls:
		t.Fatalf("unexpected check cycle at %s", c.at)
	case <-time.After(50 * time.Millisecond):
	}
}

type gauge struct {
	mu    sync.Mutex
	value int
}

func (g *gauge) SetScheduled(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = n
}

func (g *gauge) get() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func fixedMonitor() *models.Monitor {
	return &models.Monitor{ID: "m1", Name: "api", Interval: 10, RetryInterval: 3}
}

func newScheduler(r *fakeRunner, clk *fakeclock.FakeClock, g *gauge) *Scheduler {
	var observer Observer
	if g != nil {
		observer = g
	}
	return New(r, clk, Config{BaseTick: time.Second, TimeoutRatio: 0.8}, observer, nil)
}

func TestFixedIntervalTimeline(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	g := &gauge{}
	s := newScheduler(r, clk, g)

	require.NoError(t, s.Start(fixedMonitor()))
	defer s.StopAll()
	assert.Equal(t, 1, g.get())

	first := r.next(t)
	assert.Equal(t, t0, first.at)
	assert.Equal(t, 8*time.Second, first.timeout)

	clk.WaitForWatcherAndIncrement(9 * time.Second)
	r.none(t)

	clk.Increment(time.Second)
	assert.Equal(t, t0.Add(10*time.Second), r.next(t).at)
}

func TestRetryIntervalWhilePending(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	r.statuses = []models.Status{models.StatusPending, models.StatusUp}
	s := newScheduler(r, clk, nil)

	require.NoError(t, s.Start(fixedMonitor()))
	defer s.StopAll()
	r.next(t)

	clk.WaitForWatcherAndIncrement(3 * time.Second)
	second := r.next(t)
	assert.Equal(t, t0.Add(3*time.Second), second.at)
	assert.Equal(t, 2400*time.Millisecond, second.timeout)

	// после UP снова основной интервал
	clk.WaitForWatcherAndIncrement(3 * time.Second)
	r.none(t)
	clk.Increment(7 * time.Second)
	assert.Equal(t, t0.Add(13*time.Second), r.next(t).at)
}

func TestMissedFiresAreDropped(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	r.during = func() { clk.Increment(35 * time.Second) }
	s := newScheduler(r, clk, nil)

	require.NoError(t, s.Start(fixedMonitor()))
	defer s.StopAll()
	r.next(t)

	// запуски на 10, 20 и 30 секундах пропущены, следующий на 40
	clk.WaitForWatcherAndIncrement(4 * time.Second)
	r.none(t)
	clk.Increment(time.Second)
	assert.Equal(t, t0.Add(40*time.Second), r.next(t).at)
	r.none(t)
}

func TestStopCancelsInFlightCycle(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	r.block = true
	g := &gauge{}
	s := newScheduler(r, clk, g)

	require.NoError(t, s.Start(fixedMonitor()))
	r.next(t)

	assert.True(t, s.Stop("m1"))
	// Stop вернулся только после отмены цикла
	select {
	case <-r.canceled:
	default:
		t.Fatal("in-flight cycle was not canceled before Stop returned")
	}
	assert.False(t, s.Running("m1"))
	assert.Equal(t, 0, g.get())
	assert.False(t, s.Stop("m1"))
}

func TestStartTwiceAndReschedule(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	s := newScheduler(r, clk, nil)
	defer s.StopAll()

	m := fixedMonitor()
	require.NoError(t, s.Start(m))
	r.next(t)
	assert.ErrorIs(t, s.Start(m), ErrAlreadyScheduled)

	m.Interval = 30
	require.NoError(t, s.Reschedule(m))
	r.next(t)
	assert.True(t, s.Running("m1"))
	assert.Equal(t, 1, s.Count())

	clk.WaitForWatcherAndIncrement(29 * time.Second)
	r.none(t)
	clk.Increment(time.Second)
	r.next(t)
}

func TestConcurrentReschedulesAllSucceed(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	s := newScheduler(r, clk, nil)
	defer s.StopAll()

	require.NoError(t, s.Start(fixedMonitor()))
	r.next(t)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := fixedMonitor()
			m.Interval = 10 + i
			errs[i] = s.Reschedule(m)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, s.Running("m1"))
	assert.Equal(t, 1, s.Count())
}

func TestNonMonotonicStopsTimeline(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	r.err = fmt.Errorf("%w: monitor m1", heartbeat.ErrNonMonotonic)
	s := newScheduler(r, clk, nil)

	require.NoError(t, s.Start(fixedMonitor()))
	r.next(t)

	assert.Eventually(t, func() bool { return !s.Running("m1") }, time.Second, 5*time.Millisecond)
}

func TestOtherErrorsKeepTimeline(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	r.err = fmt.Errorf("failed to append heartbeat: connection reset")
	s := newScheduler(r, clk, nil)

	require.NoError(t, s.Start(fixedMonitor()))
	defer s.StopAll()
	r.next(t)

	clk.WaitForWatcherAndIncrement(10 * time.Second)
	r.next(t)
	assert.True(t, s.Running("m1"))
}

func TestRecurringSlots(t *testing.T) {
	clk := fakeclock.NewFakeClock(t0)
	r := newFakeRunner(clk)
	s := newScheduler(r, clk, nil)

	m := fixedMonitor()
	m.Schedule = &models.RecurringSchedule{StartAt: t0.Add(30 * time.Second), Interval: 60}

	require.NoError(t, s.Start(m))
	defer s.StopAll()
	r.none(t)

	clk.WaitForWatcherAndIncrement(30 * time.Second)
	first := r.next(t)
	assert.Equal(t, 48*time.Second, first.timeout)
	assert.False(t, first.at.Before(t0.Add(30*time.Second)))

	clk.WaitForWatcherAndIncrement(30 * time.Second)
	r.none(t)

	clk.WaitForWatcherAndIncrement(30 * time.Second)
	r.next(t)
	r.none(t)
}

func TestSlotIndex(t *testing.T) {
	anchor := t0
	assert.Equal(t, int64(-1), SlotIndex(anchor, time.Minute, anchor.Add(-time.Second)))
	assert.Equal(t, int64(0), SlotIndex(anchor, time.Minute, anchor))
	assert.Equal(t, int64(0), SlotIndex(anchor, time.Minute, anchor.Add(59*time.Second)))
	assert.Equal(t, int64(2), SlotIndex(anchor, time.Minute, anchor.Add(2*time.Minute)))
	assert.Equal(t, int64(-1), SlotIndex(anchor, 0, anchor))
}

func TestJitterBounds(t *testing.T) {
	s := New(nil, fakeclock.NewFakeClock(t0), Config{MaxJitter: 5 * time.Second}, nil, nil)

	for range 100 {
		d := s.jitter(2 * time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 2*time.Second)
	}
	s.config.MaxJitter = 0
	assert.Equal(t, time.Duration(0), s.jitter(time.Minute))
}
