package runner

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"Vigil/internal/backend/models"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

func TestTCPRunner(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	m := &models.Monitor{ID: "m1", Type: models.MonitorTypePort, Port: &models.PortSettings{Hostname: "127.0.0.1", Port: addr.Port}}

	res, err := NewTCPRunner().Probe(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, strconv.Itoa(addr.Port))

	ln.Close()
	_, err = NewTCPRunner().Probe(context.Background(), m)
	assert.Error(t, err)
}

func startDNSServer(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			resp := new(dns.Msg)
			resp.SetReply(req)
			q := req.Question[0]
			switch {
			case q.Name == "example.com." && q.Qtype == dns.TypeA:
				rr, _ := dns.NewRR("example.com. 300 IN A 93.184.216.34")
				resp.Answer = append(resp.Answer, rr)
			case q.Name == "example.com.":
			default:
				resp.Rcode = dns.RcodeNameError
			}
			_ = w.WriteMsg(resp)
		}),
	}
	go func() { _ = server.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })

	return pc.LocalAddr().(*net.UDPAddr).Port
}

func TestDNSRunner(t *testing.T) {
	port := startDNSServer(t)
	runner := NewDNSRunner()
	ctx := context.Background()

	m := &models.Monitor{ID: "m1", Type: models.MonitorTypeDNS, DNS: &models.DNSSettings{
		Hostname: "example.com", Resolver: "127.0.0.1", Port: port, RecordType: "A",
	}}
	res, err := runner.Probe(ctx, m)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Records: 93.184.216.34 (ttl 300s)", res.Message)

	m.DNS.RecordType = "MX"
	res, err = runner.Probe(ctx, m)
	require.NoError(t, err)
	assert.False(t, res.Success)

	m.DNS.Hostname = "missing.test"
	m.DNS.RecordType = "A"
	res, err = runner.Probe(ctx, m)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "DNS error: NXDOMAIN", res.Message)

	m.DNS.RecordType = "BOGUS"
	_, err = runner.Probe(ctx, m)
	assert.Error(t, err)
}

func startRadiusServer(t *testing.T, secret string, handler radius.Handler) int {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &radius.PacketServer{
		SecretSource: radius.StaticSecretSource([]byte(secret)),
		Handler:      handler,
	}
	go func() { _ = server.Serve(pc) }()
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	return pc.LocalAddr().(*net.UDPAddr).Port
}

func radiusMonitor(port int) *models.Monitor {
	return &models.Monitor{ID: "m1", Type: models.MonitorTypeRadius, Radius: &models.RadiusSettings{
		Hostname: "127.0.0.1", Port: port, Secret: "s3cret", Username: "probe", Password: "pw",
		CallingStationID: "00-11-22", CalledStationID: "nas-1", TimeoutMs: 300, Retries: 1,
	}}
}

func TestRadiusRunnerAcceptAndReject(t *testing.T) {
	var calling, called string
	port := startRadiusServer(t, "s3cret", radius.HandlerFunc(func(w radius.ResponseWriter, r *radius.Request) {
		calling = rfc2865.CallingStationID_GetString(r.Packet)
		called = rfc2865.CalledStationID_GetString(r.Packet)
		code := radius.CodeAccessReject
		if rfc2865.UserName_GetString(r.Packet) == "probe" && rfc2865.UserPassword_GetString(r.Packet) == "pw" {
			code = radius.CodeAccessAccept
		}
		_ = w.Write(r.Response(code))
	}))

	m := radiusMonitor(port)
	res, err := NewRadiusRunner().Probe(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "00-11-22", calling)
	assert.Equal(t, "nas-1", called)

	m.Radius.Password = "wrong"
	res, err = NewRadiusRunner().Probe(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Access-Reject", res.Message)
}

func TestRadiusRunnerRetriesOnTimeout(t *testing.T) {
	var requests atomic.Int32
	port := startRadiusServer(t, "s3cret", radius.HandlerFunc(func(w radius.ResponseWriter, r *radius.Request) {
		requests.Add(1)
	}))

	_, err := NewRadiusRunner().Probe(context.Background(), radiusMonitor(port))
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return requests.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestBrokerURL(t *testing.T) {
	cases := []struct {
		hostname string
		port     int
		want     string
	}{
		{"broker.example.com", 1883, "mqtt://broker.example.com:1883"},
		{"mqtt://broker.example.com", 1883, "mqtt://broker.example.com:1883"},
		{"mqtts://secure-broker.com", 8883, "mqtts://secure-broker.com:8883"},
		{"ws://localhost", 8080, "ws://localhost:8080"},
		{"wss://secure.example.com", 8083, "wss://secure.example.com:8083"},
		{"http://broker.local", 80, "http://broker.local:80"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BrokerURL(c.hostname, c.port))
	}

	broker, err := pahoBroker("https://broker.local:443")
	require.NoError(t, err)
	assert.Equal(t, "wss://broker.local:443", broker)
}

func TestPushRunner(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	runner := NewPushRunner(clk)
	m := &models.Monitor{ID: "m1", Type: models.MonitorTypePush, Interval: 60, Push: &models.PushSettings{Token: "tok"}}

	_, err := runner.Probe(context.Background(), m)
	assert.ErrorIs(t, err, ErrNoBeacon)

	runner.Record("m1", Beacon{Status: models.StatusUp, Message: "job done"})
	res, err := runner.Probe(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "job done", res.Message)

	runner.Record("m1", Beacon{Status: models.StatusDown, Message: "job failed"})
	res, err = runner.Probe(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, res.Success)

	clk.Increment(61 * time.Second)
	_, err = runner.Probe(context.Background(), m)
	assert.ErrorIs(t, err, ErrNoBeacon)
}

func TestFactory(t *testing.T) {
	f := NewFactory(NewHTTPRunner(nil, ""), NewTCPRunner(), nil, NewDNSRunner(), nil, nil, nil)

	p, err := f.GetProber(models.MonitorTypeHTTP)
	require.NoError(t, err)
	assert.IsType(t, &HTTPRunner{}, p)

	_, err = f.GetProber(models.MonitorTypePing)
	assert.Error(t, err)

	_, err = f.GetProber("smtp")
	assert.Error(t, err)
}
