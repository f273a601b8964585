package runner

import (
	"fmt"

	"Vigil/internal/backend/models"
)

type Factory struct {
	httpRunner   *HTTPRunner
	tcpRunner    *TCPRunner
	pingRunner   *PingRunner
	dnsRunner    *DNSRunner
	mqttRunner   *MQTTRunner
	radiusRunner *RadiusRunner
	pushRunner   *PushRunner
}

func NewFactory(
	http *HTTPRunner,
	tcp *TCPRunner,
	ping *PingRunner,
	dns *DNSRunner,
	mqtt *MQTTRunner,
	radius *RadiusRunner,
	push *PushRunner,
) *Factory {
	return &Factory{
		httpRunner:   http,
		tcpRunner:    tcp,
		pingRunner:   ping,
		dnsRunner:    dns,
		mqttRunner:   mqtt,
		radiusRunner: radius,
		pushRunner:   push,
	}
}

func (f *Factory) GetProber(monitorType models.MonitorType) (Prober, error) {
	var prober Prober
	configured := false
	switch monitorType {
	case models.MonitorTypeHTTP:
		prober, configured = f.httpRunner, f.httpRunner != nil
	case models.MonitorTypePort:
		prober, configured = f.tcpRunner, f.tcpRunner != nil
	case models.MonitorTypePing:
		prober, configured = f.pingRunner, f.pingRunner != nil
	case models.MonitorTypeDNS:
		prober, configured = f.dnsRunner, f.dnsRunner != nil
	case models.MonitorTypeMQTT:
		prober, configured = f.mqttRunner, f.mqttRunner != nil
	case models.MonitorTypeRadius:
		prober, configured = f.radiusRunner, f.radiusRunner != nil
	case models.MonitorTypePush:
		prober, configured = f.pushRunner, f.pushRunner != nil
	default:
		return nil, fmt.Errorf("unknown monitor type: %s", monitorType)
	}
	if !configured {
		return nil, fmt.Errorf("prober for %s is not configured", monitorType)
	}
	return prober, nil
}
