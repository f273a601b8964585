package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/internal/backend/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	kind  models.NotificationType
	err   error
	panic bool

	mu   sync.Mutex
	sent []Message
}

func (p *recordingProvider) Type() models.NotificationType { return p.kind }

func (p *recordingProvider) Send(_ context.Context, _ *models.Notification, msg Message) error {
	if p.panic {
		panic("provider exploded")
	}
	p.mu.Lock()
	p.sent = append(p.sent, msg)
	p.mu.Unlock()
	return p.err
}

func (p *recordingProvider) messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}

func seedNotifications(t *testing.T, notifications ...*models.Notification) *storage.Memory {
	t.Helper()
	mem := storage.NewMemory()
	for _, n := range notifications {
		require.NoError(t, mem.Notifications.Create(context.Background(), n))
	}
	return mem
}

var downBeat = &models.Heartbeat{MonitorID: "m1", Status: models.StatusDown, Message: "connection refused", Important: true}

func TestDispatchIsolatesFailingProvider(t *testing.T) {
	mem := seedNotifications(t,
		&models.Notification{ID: "n1", Name: "hook", Type: models.NotificationWebhook, Active: true},
		&models.Notification{ID: "n2", Name: "bus", Type: models.NotificationRedis, Active: true},
	)
	failing := &recordingProvider{kind: models.NotificationWebhook, err: NormalizeError("Network error", nil)}
	working := &recordingProvider{kind: models.NotificationRedis}

	d := NewDispatcher(mem.Notifications, time.Second, nil, failing, working)
	m := &models.Monitor{ID: "m1", Name: "api", NotificationIDs: []string{"n1", "n2"}}

	err := d.Dispatch(context.Background(), m, downBeat)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error: Network error")
	require.Len(t, working.messages(), 1)
	assert.Equal(t, "[api] [Down] connection refused", working.messages()[0].Text)
}

func TestDispatchJoinsEveryProviderError(t *testing.T) {
	mem := seedNotifications(t,
		&models.Notification{ID: "n1", Name: "hook", Type: models.NotificationWebhook, Active: true},
		&models.Notification{ID: "n2", Name: "bus", Type: models.NotificationRedis, Active: true},
	)
	hookErr := errors.New("hook down")
	busErr := errors.New("bus down")

	d := NewDispatcher(mem.Notifications, time.Second, nil,
		&recordingProvider{kind: models.NotificationWebhook, err: hookErr},
		&recordingProvider{kind: models.NotificationRedis, err: busErr},
	)
	err := d.Dispatch(context.Background(), &models.Monitor{ID: "m1", Name: "api", NotificationIDs: []string{"n1", "n2"}}, downBeat)

	require.Error(t, err)
	assert.ErrorIs(t, err, hookErr)
	assert.ErrorIs(t, err, busErr)
	assert.Contains(t, err.Error(), `notification "hook"`)
	assert.Contains(t, err.Error(), `notification "bus"`)
}

func TestDispatchRecoversProviderPanic(t *testing.T) {
	mem := seedNotifications(t,
		&models.Notification{ID: "n1", Name: "hook", Type: models.NotificationWebhook, Active: true},
		&models.Notification{ID: "n2", Name: "bus", Type: models.NotificationRedis, Active: true},
	)
	working := &recordingProvider{kind: models.NotificationRedis}

	d := NewDispatcher(mem.Notifications, time.Second, nil, &recordingProvider{kind: models.NotificationWebhook, panic: true}, working)
	err := d.Dispatch(context.Background(), &models.Monitor{ID: "m1", Name: "api", NotificationIDs: []string{"n1", "n2"}}, downBeat)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Len(t, working.messages(), 1)
}

func TestDispatchSkipsInactiveAndAppliesTemplate(t *testing.T) {
	mem := seedNotifications(t,
		&models.Notification{ID: "n1", Name: "off", Type: models.NotificationRedis, Active: false},
		&models.Notification{ID: "n2", Name: "on", Type: models.NotificationRedis, Active: true, Template: "{{NAME}} is {{STATUS}}: {{msg}}"},
	)
	p := &recordingProvider{kind: models.NotificationRedis}

	d := NewDispatcher(mem.Notifications, time.Second, nil, p)
	err := d.Dispatch(context.Background(), &models.Monitor{ID: "m1", Name: "api", NotificationIDs: []string{"n1", "n2"}}, downBeat)
	require.NoError(t, err)

	msgs := p.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "api is Down: [api] [Down] connection refused", msgs[0].Text)
	assert.Equal(t, downBeat, msgs[0].Heartbeat)
}

func TestDispatchWithoutNotifications(t *testing.T) {
	d := NewDispatcher(storage.NewMemory().Notifications, time.Second, nil)
	assert.NoError(t, d.Dispatch(context.Background(), &models.Monitor{ID: "m1"}, downBeat))
}

func TestDispatchUnknownProvider(t *testing.T) {
	mem := seedNotifications(t, &models.Notification{ID: "n1", Name: "hook", Type: models.NotificationWebhook, Active: true})
	d := NewDispatcher(mem.Notifications, time.Second, nil)

	err := d.Dispatch(context.Background(), &models.Monitor{ID: "m1", NotificationIDs: []string{"n1"}}, downBeat)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestSendTestUsesDummyValues(t *testing.T) {
	p := &recordingProvider{kind: models.NotificationRedis}
	d := NewDispatcher(storage.NewMemory().Notifications, time.Second, nil, p)

	err := d.SendTest(context.Background(), &models.Notification{Name: "bus", Type: models.NotificationRedis, Template: "{{name}} / {{status}}"})
	require.NoError(t, err)

	require.Len(t, p.messages(), 1)
	assert.Equal(t, "Monitor Name not available / Test", p.messages()[0].Text)
}

func webhookNotification(url, contentType string) *models.Notification {
	n := &models.Notification{Name: "hook", Type: models.NotificationWebhook, Active: true, Webhook: &models.WebhookSettings{URL: url, ContentType: contentType}}
	n.ApplyDefaults()
	return n
}

func TestWebhookJSONBody(t *testing.T) {
	var got map[string]interface{}
	var contentType, custom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		custom = r.Header.Get("X-Token")
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := webhookNotification(srv.URL, "json")
	n.Webhook.Headers = map[string]string{"X-Token": "abc"}
	m := &models.Monitor{ID: "m1", Name: "api", Type: models.MonitorTypeHTTP, HTTP: &models.HTTPSettings{URL: "https://x", BasicAuthPassword: "pw"}}

	err := NewWebhookProvider(WebhookConfig{}, nil).Send(context.Background(), n, Message{Text: "hello", Monitor: m, Heartbeat: downBeat})
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "abc", custom)
	assert.Equal(t, "hello", got["msg"])
	assert.Equal(t, "api", got["monitor"].(map[string]interface{})["name"])
	assert.Nil(t, got["monitor"].(map[string]interface{})["http"].(map[string]interface{})["basic_auth_password"])
	assert.Equal(t, float64(models.StatusDown), got["heartbeat"].(map[string]interface{})["status"])
}

func TestWebhookFormAndCustomBodies(t *testing.T) {
	var body, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		contentType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	provider := NewWebhookProvider(WebhookConfig{}, nil)
	msg := Message{Text: "hello", Monitor: &models.Monitor{Name: "api"}, Heartbeat: downBeat}

	require.NoError(t, provider.Send(context.Background(), webhookNotification(srv.URL, "form"), msg))
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	values, err := url.ParseQuery(body)
	require.NoError(t, err)
	assert.Contains(t, values.Get("data"), `"msg":"hello"`)

	custom := webhookNotification(srv.URL, "custom")
	custom.Webhook.BodyTemplate = `{"text":"{{name}} {{status}}"}`
	require.NoError(t, provider.Send(context.Background(), custom, msg))
	assert.Equal(t, `{"text":"api Down"}`, body)
	assert.Equal(t, "application/json", contentType)
}

func TestWebhookErrorIncludesResponseData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("{ \"error\": \"Invalid request\" }"))
	}))
	defer srv.Close()

	err := NewWebhookProvider(WebhookConfig{}, nil).Send(context.Background(), webhookNotification(srv.URL, "json"), Message{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, `Error: Request failed with status code 400 {"error":"Invalid request"}`, err.Error())
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	provider := NewWebhookProvider(WebhookConfig{Retries: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: 5 * time.Millisecond}, nil)
	err := provider.Send(context.Background(), webhookNotification(srv.URL, "json"), Message{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWebhookTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	err := NewWebhookProvider(WebhookConfig{}, nil).Send(context.Background(), webhookNotification(target, "json"), Message{Text: "x"})
	require.Error(t, err)
	var transport *TransportError
	assert.True(t, errors.As(err, &transport))
}

type fakePublisher struct {
	channel string
	message interface{}
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) error {
	f.channel, f.message = channel, message
	return f.err
}

func TestRedisProvider(t *testing.T) {
	pub := &fakePublisher{}
	n := &models.Notification{Name: "bus", Type: models.NotificationRedis, Redis: &models.RedisSettings{}}
	n.ApplyDefaults()

	require.NoError(t, NewRedisProvider(pub).Send(context.Background(), n, Message{Text: "hello"}))
	assert.Equal(t, "vigil:notifications", pub.channel)
	assert.Equal(t, "hello", pub.message.(payload).Msg)

	pub.err = errors.New("connection reset")
	err := NewRedisProvider(pub).Send(context.Background(), n, Message{Text: "hello"})
	assert.EqualError(t, err, "Error: connection reset")
}
