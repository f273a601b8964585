package heartbeat

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"Vigil/internal/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type step struct {
	success     bool
	maintenance bool
}

func ok() step   { return step{success: true} }
func fail() step { return step{} }
func maint() step {
	return step{maintenance: true}
}

func run(t *testing.T, m *models.Monitor, steps ...step) []*models.Heartbeat {
	t.Helper()

	var prev *models.Heartbeat
	beats := make([]*models.Heartbeat, 0, len(steps))
	for i, s := range steps {
		outcome := &models.ProbeResult{Success: s.success, Message: "probe"}
		hb, err := Next(m, prev, outcome, s.maintenance, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		beats = append(beats, hb)
		prev = hb
	}
	return beats
}

func statuses(beats []*models.Heartbeat) []models.Status {
	out := make([]models.Status, len(beats))
	for i, b := range beats {
		out[i] = b.Status
	}
	return out
}

func important(beats []*models.Heartbeat) []bool {
	out := make([]bool, len(beats))
	for i, b := range beats {
		out[i] = b.Important
	}
	return out
}

func TestRetriesBeforeDown(t *testing.T) {
	m := &models.Monitor{ID: "m1", MaxRetries: 2}

	beats := run(t, m, fail(), fail(), fail())

	assert.Equal(t, []models.Status{models.StatusPending, models.StatusPending, models.StatusDown}, statuses(beats))
	assert.Equal(t, []bool{false, false, true}, important(beats))
	assert.Equal(t, 3, beats[2].Retries)
}

func TestZeroRetriesSkipsPending(t *testing.T) {
	m := &models.Monitor{ID: "m1", MaxRetries: 0}

	beats := run(t, m, ok(), fail())

	assert.Equal(t, []models.Status{models.StatusUp, models.StatusDown}, statuses(beats))
	assert.Equal(t, []bool{true, true}, important(beats))
}

func TestRecoveryResetsRetries(t *testing.T) {
	m := &models.Monitor{ID: "m1", MaxRetries: 1}

	beats := run(t, m, fail(), fail(), fail(), ok(), fail())

	assert.Equal(t, []models.Status{
		models.StatusPending, models.StatusDown, models.StatusDown, models.StatusUp, models.StatusPending,
	}, statuses(beats))
	assert.Equal(t, []bool{false, true, false, true, false}, important(beats))
	assert.Equal(t, 0, beats[3].Retries)
	assert.Equal(t, 1, beats[4].Retries)
}

func TestPendingBlipIsNotATransition(t *testing.T) {
	m := &models.Monitor{ID: "m1", MaxRetries: 3}

	beats := run(t, m, ok(), fail(), ok())

	assert.Equal(t, []models.Status{models.StatusUp, models.StatusPending, models.StatusUp}, statuses(beats))
	assert.Equal(t, []bool{true, false, false}, important(beats))
}

func TestMaintenanceOverridesOutcome(t *testing.T) {
	m := &models.Monitor{ID: "m1", MaxRetries: 0}

	for _, success := range []bool{true, false} {
		prev := &models.Heartbeat{MonitorID: "m1", Time: t0, Status: models.StatusUp, Settled: models.StatusUp}
		hb, err := Next(m, prev, &models.ProbeResult{Success: success}, true, t0.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, models.StatusMaintenance, hb.Status)
		assert.True(t, hb.Important)
		assert.Equal(t, 0, hb.Retries)
	}
}

func TestMaintenanceEntryAndExit(t *testing.T) {
	m := &models.Monitor{ID: "m1", MaxRetries: 0}

	beats := run(t, m, ok(), maint(), maint(), ok(), maint(), fail())

	assert.Equal(t, []models.Status{
		models.StatusUp, models.StatusMaintenance, models.StatusMaintenance,
		models.StatusUp, models.StatusMaintenance, models.StatusDown,
	}, statuses(beats))
	assert.Equal(t, []bool{true, true, false, true, true, true}, important(beats))
}

func TestMaintenanceWithoutOutcome(t *testing.T) {
	m := &models.Monitor{ID: "m1"}

	hb, err := Next(m, nil, nil, true, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMaintenance, hb.Status)
	assert.True(t, hb.Important)
	assert.Nil(t, hb.Latency)
}

func TestUpsideDownInvertsOutcome(t *testing.T) {
	normal := &models.Monitor{ID: "m1", MaxRetries: 1}
	inverted := &models.Monitor{ID: "m1", MaxRetries: 1, UpsideDown: true}

	priors := []*models.Heartbeat{
		nil,
		{Time: t0, Status: models.StatusUp, Settled: models.StatusUp},
		{Time: t0, Status: models.StatusDown, Settled: models.StatusDown, Retries: 4},
		{Time: t0, Status: models.StatusPending, Settled: models.StatusUp, Retries: 1},
	}

	for _, prev := range priors {
		now := t0.Add(time.Minute)
		for _, success := range []bool{true, false} {
			want, err := Next(normal, prev, &models.ProbeResult{Success: success}, false, now)
			require.NoError(t, err)
			got, err := Next(inverted, prev, &models.ProbeResult{Success: !success}, false, now)
			require.NoError(t, err)

			assert.Equal(t, want.Status, got.Status)
			assert.Equal(t, want.Important, got.Important)
			assert.Equal(t, want.Retries, got.Retries)
		}
	}
}

func TestResendInterval(t *testing.T) {
	m := &models.Monitor{ID: "m1", MaxRetries: 0, ResendInterval: 2}

	beats := run(t, m, fail(), fail(), fail(), fail(), fail())

	resend := make([]bool, len(beats))
	for i, b := range beats {
		resend[i] = b.Resend
	}
	assert.Equal(t, []bool{true, false, false, false, false}, important(beats))
	assert.Equal(t, []bool{false, false, true, false, true}, resend)
	for _, b := range beats {
		assert.Equal(t, models.StatusDown, b.Status)
	}
}

func TestResendIntervalZeroRepeatsEveryCycle(t *testing.T) {
	m := &models.Monitor{ID: "m1", ResendInterval: 0}

	beats := run(t, m, fail(), fail(), fail())

	assert.True(t, beats[0].ShouldNotify())
	assert.True(t, beats[1].Resend)
	assert.True(t, beats[2].Resend)
}

func TestNegativeResendIntervalNeverRepeats(t *testing.T) {
	m := &models.Monitor{ID: "m1", ResendInterval: -1}

	beats := run(t, m, fail(), fail(), fail(), fail())

	for _, b := range beats[1:] {
		assert.False(t, b.ShouldNotify())
	}
}

// Пока монитор в PENDING счетчик повторов стоит на месте
func TestResendCounterPausesWhilePending(t *testing.T) {
	m := &models.Monitor{ID: "m1", MaxRetries: 0, ResendInterval: 3}

	beats := run(t, m, fail(), fail(), fail())
	require.Equal(t, 2, beats[2].DownCount)

	// лимит повторов подняли, монитор снова подтверждает падение
	m.MaxRetries = 10
	prev := beats[2]
	pending, err := Next(m, prev, &models.ProbeResult{}, false, prev.Time.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, pending.Status)
	assert.Equal(t, 2, pending.DownCount)
	assert.False(t, pending.ShouldNotify())

	pending2, err := Next(m, pending, &models.ProbeResult{}, false, pending.Time.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, pending2.DownCount)

	// вернули лимит: следующий DOWN это третий цикл падения, а не пятый
	m.MaxRetries = 0
	down, err := Next(m, pending2, &models.ProbeResult{}, false, pending2.Time.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDown, down.Status)
	assert.False(t, down.Important)
	assert.True(t, down.Resend)
	assert.Equal(t, 0, down.DownCount)
}

func TestDurationAndMonotonicTime(t *testing.T) {
	m := &models.Monitor{ID: "m1"}

	first, err := Next(m, nil, &models.ProbeResult{Success: true}, false, t0)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Duration)

	second, err := Next(m, first, &models.ProbeResult{Success: true}, false, t0.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 90, second.Duration)

	_, err = Next(m, second, &models.ProbeResult{Success: true}, false, second.Time)
	assert.True(t, errors.Is(err, ErrNonMonotonic))

	_, err = Next(m, second, &models.ProbeResult{Success: true}, false, second.Time.Add(-time.Second))
	assert.ErrorIs(t, err, ErrNonMonotonic)
}

func TestOutcomeFieldsCopied(t *testing.T) {
	latency := 12.5
	m := &models.Monitor{ID: "m1"}

	hb, err := Next(m, nil, &models.ProbeResult{Success: true, Latency: &latency, Message: "200 - OK"}, false, t0)
	require.NoError(t, err)
	assert.Equal(t, "m1", hb.MonitorID)
	assert.Equal(t, "200 - OK", hb.Message)
	require.NotNil(t, hb.Latency)
	assert.Equal(t, 12.5, *hb.Latency)
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		m := &models.Monitor{
			ID:             "m1",
			MaxRetries:     rng.Intn(4),
			ResendInterval: rng.Intn(4) - 1,
			UpsideDown:     rng.Intn(2) == 0,
		}

		steps := make([]step, 60)
		for i := range steps {
			steps[i] = step{success: rng.Intn(3) > 0, maintenance: rng.Intn(10) == 0}
		}
		beats := run(t, m, steps...)

		var lastImportant *models.Status
		for i, b := range beats {
			// счетчик не превышает лимит пока статус не DOWN
			if b.Status == models.StatusPending {
				assert.LessOrEqual(t, b.Retries, m.MaxRetries)
			}
			if b.Status == models.StatusUp {
				assert.Equal(t, 0, b.Retries)
			}
			if steps[i].maintenance {
				assert.Equal(t, models.StatusMaintenance, b.Status)
			}
			if b.Important {
				if lastImportant != nil {
					assert.NotEqual(t, *lastImportant, b.Status, "round %d beat %d", round, i)
				}
				status := b.Status
				lastImportant = &status
			}
		}
	}
}
