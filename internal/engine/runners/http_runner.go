package runner

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/internal/engine/oauth"
)

type HTTPRunner struct {
	transport *http.Transport
	tokens    TokenProvider
	userAgent string
}

func NewHTTPRunner(tokens TokenProvider, userAgent string) *HTTPRunner {
	if userAgent == "" {
		userAgent = "Vigil/1.0"
	}
	return &HTTPRunner{
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		tokens:    tokens,
		userAgent: userAgent,
	}
}

type httpResponse struct {
	result     *models.ProbeResult
	statusCode int
}

func (r *HTTPRunner) Probe(ctx context.Context, monitor *models.Monitor) (*models.ProbeResult, error) {
	settings := monitor.HTTP
	if settings == nil {
		return nil, errors.New("http settings are missing")
	}

	client := r.configureClient(settings)

	if settings.OAuth == nil {
		resp, err := r.do(ctx, client, settings, "")
		if err != nil {
			return nil, err
		}
		return resp.result, nil
	}

	if r.tokens == nil {
		return nil, errors.New("oauth is not configured")
	}

	var last *httpResponse
	err := r.tokens.WithToken(ctx, settings.OAuth, func(ctx context.Context, token string) error {
		resp, err := r.do(ctx, client, settings, token)
		if err != nil {
			return err
		}
		last = resp
		if resp.statusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", oauth.ErrUnauthorized, resp.result.Message)
		}
		return nil
	})

	// повторный 401 после обновления токена остается обычным неуспешным ответом
	if last != nil && (err == nil || errors.Is(err, oauth.ErrUnauthorized)) {
		return last.result, nil
	}
	return nil, err
}

func (r *HTTPRunner) do(ctx context.Context, client *http.Client, settings *models.HTTPSettings, token string) (*httpResponse, error) {
	var body io.Reader
	if settings.Body != "" {
		body = strings.NewReader(settings.Body)
	}

	req, err := http.NewRequestWithContext(ctx, settings.Method, settings.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range settings.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	if body != nil && req.Header.Get("Content-Type") == "" && looksLikeJSON(settings.Body) {
		req.Header.Set("Content-Type", "application/json")
	}
	if settings.BasicAuthUser != "" {
		req.SetBasicAuth(settings.BasicAuthUser, settings.BasicAuthPassword)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	message := fmt.Sprintf("%d - %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if expiry := certificateInfo(resp.TLS, time.Now()); expiry != "" {
		message += " | " + expiry
	}

	result := models.NewFailureResult(elapsed, message)
	if settings.Accepts(resp.StatusCode) {
		result = models.NewSuccessResult(elapsed, message)
	}
	return &httpResponse{result: result, statusCode: resp.StatusCode}, nil
}

func (r *HTTPRunner) configureClient(settings *models.HTTPSettings) *http.Client {
	transport := r.transport
	if settings.IgnoreTLS {
		transport = r.transport.Clone()
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	client := &http.Client{Transport: transport}

	maxRedirects := settings.MaxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if maxRedirects < 0 {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return client
}

// certificateInfo срок действия сертификата сервера для сообщения heartbeat
func certificateInfo(state *tls.ConnectionState, now time.Time) string {
	if state == nil || len(state.PeerCertificates) == 0 {
		return ""
	}
	cert := state.PeerCertificates[0]
	days := int(cert.NotAfter.Sub(now).Hours() / 24)
	if days < 0 {
		return fmt.Sprintf("certificate expired %d days ago", -days)
	}
	return fmt.Sprintf("certificate expires in %d days", days)
}

func looksLikeJSON(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
