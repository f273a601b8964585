package runner

import (
	"context"

	"Vigil/internal/backend/models"
)

// Prober выполняет одну проверку монитора. Таймаут задается дедлайном ctx.
// Ошибка означает неуспешную проверку и превращается вызывающим в результат
type Prober interface {
	Probe(ctx context.Context, monitor *models.Monitor) (*models.ProbeResult, error)
}

// TokenProvider кеш OAuth токенов, см. oauth.Cache
type TokenProvider interface {
	WithToken(ctx context.Context, settings *models.OAuthSettings, call func(ctx context.Context, token string) error) error
}
