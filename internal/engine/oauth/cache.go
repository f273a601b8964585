package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"Vigil/internal/backend/models"

	"code.cloudfoundry.org/clock"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	ExpirySkew   time.Duration
	FetchTimeout time.Duration
}

// Cache кеш токенов по паре endpoint + client id. Одновременные промахи
// по одному ключу выполняют один запрос к серверу авторизации
type Cache struct {
	exchanger Exchanger
	clock     clock.Clock
	entries   *gocache.Cache
	group     singleflight.Group
	mu        sync.Mutex // запись и сравнивающее удаление записей
	config    Config
	logger    *slog.Logger
}

func NewCache(exchanger Exchanger, clk clock.Clock, cfg Config, logger *slog.Logger) *Cache {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.ExpirySkew < 0 {
		cfg.ExpirySkew = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		exchanger: exchanger,
		clock:     clk,
		// истечение проверяем сами по clock, go-cache только хранит записи
		entries: gocache.New(gocache.NoExpiration, 10*time.Minute),
		config:  cfg,
		logger:  logger.With("component", "oauth_cache"),
	}
}

func cacheKey(settings *models.OAuthSettings) string {
	return settings.TokenURL + "|" + settings.ClientID
}

// GetToken возвращает действующий токен, при необходимости запрашивая новый
func (c *Cache) GetToken(ctx context.Context, settings *models.OAuthSettings) (string, error) {
	key := cacheKey(settings)

	if tok, ok := c.lookup(key); ok {
		return tok.AccessToken, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		if tok, ok := c.lookup(key); ok {
			return tok, nil
		}
		// запрос не привязан к отмене первого вызывающего, его результат ждут все
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.FetchTimeout)
		defer cancel()

		tok, err := c.exchanger.Exchange(fetchCtx, settings)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries.Set(key, tok, gocache.NoExpiration)
		c.mu.Unlock()

		c.logger.Debug("oauth token refreshed",
			"token_url", settings.TokenURL,
			"client_id", settings.ClientID,
			"expires_at", tok.Expiry,
		)
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("failed to obtain oauth token",
				"token_url", settings.TokenURL,
				"client_id", settings.ClientID,
				"error", res.Err,
			)
			return "", fmt.Errorf("failed to obtain oauth token: %w", res.Err)
		}
		return res.Val.(*Token).AccessToken, nil
	}
}

func (c *Cache) lookup(key string) (*Token, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	tok := v.(*Token)
	// просроченная запись остается до перезаписи новым токеном
	if !tok.Expiry.IsZero() && !c.clock.Now().Add(c.config.ExpirySkew).Before(tok.Expiry) {
		return nil, false
	}
	return tok, true
}

// Invalidate удаляет токен из кеша, следующий GetToken запросит новый.
// Уже идущий запрос не отсоединяется: новые вызовы ждут его результат
func (c *Cache) Invalidate(settings *models.OAuthSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Delete(cacheKey(settings))
}

// invalidateToken удаляет запись только если в ней все еще отвергнутый токен.
// Поздний 401 на старый токен не выбрасывает уже полученный новый
func (c *Cache) invalidateToken(settings *models.OAuthSettings, rejected string) bool {
	key := cacheKey(settings)

	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries.Get(key)
	if !ok || v.(*Token).AccessToken != rejected {
		return false
	}
	c.entries.Delete(key)
	return true
}

// WithToken выполняет call с токеном. Если call вернул ErrUnauthorized,
// токен инвалидируется и call повторяется один раз с новым токеном
func (c *Cache) WithToken(ctx context.Context, settings *models.OAuthSettings, call func(ctx context.Context, token string) error) error {
	token, err := c.GetToken(ctx, settings)
	if err != nil {
		return err
	}

	err = call(ctx, token)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	invalidated := c.invalidateToken(settings, token)
	c.logger.Info("oauth token rejected, refreshing",
		"token_url", settings.TokenURL,
		"client_id", settings.ClientID,
		"invalidated", invalidated,
	)

	token, err = c.GetToken(ctx, settings)
	if err != nil {
		return err
	}
	return call(ctx, token)
}
