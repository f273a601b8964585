// Package heartbeat вычисляет следующий heartbeat монитора по результату проверки.
// Функции пакета чистые: время, прошлый heartbeat и статус обслуживания передаются явно.
package heartbeat

import (
	"errors"
	"fmt"
	"time"

	"Vigil/internal/backend/models"
)

var ErrNonMonotonic = errors.New("heartbeat time must be after the previous heartbeat")

const maintenanceMessage = "Under maintenance"

// Next возвращает новый heartbeat. prev может быть nil для первого цикла,
// outcome может быть nil если проверка не выполнялась
func Next(monitor *models.Monitor, prev *models.Heartbeat, outcome *models.ProbeResult, underMaintenance bool, now time.Time) (*models.Heartbeat, error) {
	hb := &models.Heartbeat{
		MonitorID: monitor.ID,
		Time:      now,
	}

	// PENDING означает что статус еще не подтвержден
	settled := models.StatusPending
	if prev != nil {
		if !now.After(prev.Time) {
			return nil, fmt.Errorf("%w: monitor %s, previous %s, now %s",
				ErrNonMonotonic, monitor.ID, prev.Time.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
		}
		hb.Duration = int(now.Sub(prev.Time) / time.Second)
		settled = settledStatus(prev)
	}

	if underMaintenance {
		hb.Status = models.StatusMaintenance
		hb.Message = maintenanceMessage
		hb.Important = settled != models.StatusMaintenance
		hb.Settled = models.StatusMaintenance
		return hb, nil
	}

	success := false
	if outcome != nil {
		success = outcome.Success
		hb.Latency = outcome.Latency
		hb.Message = outcome.Message
	}
	if monitor.UpsideDown {
		success = !success
	}

	if success {
		hb.Status = models.StatusUp
		hb.Important = settled != models.StatusUp
		hb.Settled = models.StatusUp
		return hb, nil
	}

	retries, downCount := 0, 0
	if prev != nil {
		retries, downCount = prev.Retries, prev.DownCount
	}
	hb.Retries = retries + 1

	if hb.Retries <= monitor.MaxRetries {
		// счетчик повторных уведомлений не идет пока статус не подтвержден
		hb.Status = models.StatusPending
		hb.Settled = settled
		hb.DownCount = downCount
		return hb, nil
	}

	hb.Status = models.StatusDown
	hb.Settled = models.StatusDown
	if settled != models.StatusDown {
		hb.Important = true
		return hb, nil
	}

	hb.DownCount = downCount + 1
	if resendDue(monitor.ResendInterval, hb.DownCount) {
		hb.Resend = true
		hb.DownCount = 0
	}
	return hb, nil
}

func settledStatus(prev *models.Heartbeat) models.Status {
	if prev.Status != models.StatusPending {
		return prev.Status
	}
	return prev.Settled
}

// resendDue 0 значит каждый цикл, отрицательное значение отключает повтор
func resendDue(interval, downCount int) bool {
	if interval < 0 {
		return false
	}
	return downCount >= max(interval, 1)
}
