package constants

import "time"

const (
	HTTPTimeout = 30 * time.Second
	PingTimeout = 30 * time.Second
	DNSTimeout  = 5 * time.Second
	TCPTimeout  = 15 * time.Second

	// RadiusTimeout и RadiusRetries значения клиента RADIUS по умолчанию
	RadiusTimeout     = 2500 * time.Millisecond
	RadiusRetries     = 1
	RadiusDefaultPort = 1812

	MQTTDefaultInterval = 20 * time.Second

	DefaultIntervalSeconds = 60

	// ProbeTimeoutRatio доля интервала, отведенная на одну проверку
	ProbeTimeoutRatio = 0.8
)

// ProbeTimeout таймаут проверки для интервала
func ProbeTimeout(interval time.Duration, ratio float64) time.Duration {
	if ratio <= 0 || ratio > 1 {
		ratio = ProbeTimeoutRatio
	}
	return time.Duration(float64(interval) * ratio)
}
