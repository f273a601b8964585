package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"Vigil/internal/backend/models"

	"code.cloudfoundry.org/clock"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// Token выданный токен и момент истечения по часам кеша. Нулевой Expiry означает бессрочный
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// Exchanger получает новый токен у сервера авторизации
type Exchanger interface {
	Exchange(ctx context.Context, settings *models.OAuthSettings) (*Token, error)
}

// ClientCredentials grant_type=client_credentials через golang.org/x/oauth2
type ClientCredentials struct {
	client *http.Client
	clock  clock.Clock
}

func NewClientCredentials(client *http.Client, clk clock.Clock) *ClientCredentials {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if clk == nil {
		clk = clock.NewClock()
	}
	return &ClientCredentials{client: client, clock: clk}
}

func (c *ClientCredentials) Exchange(ctx context.Context, settings *models.OAuthSettings) (*Token, error) {
	cfg := clientcredentials.Config{
		ClientID: settings.ClientID,
		TokenURL: settings.TokenURL,
		Scopes:   strings.Fields(settings.Scopes),
	}

	switch settings.AuthMethod {
	case models.AuthMethodClientSecretPost:
		cfg.ClientSecret = settings.ClientSecret
		cfg.AuthStyle = oauth2.AuthStyleInParams
	case models.AuthMethodPrivateKeyJWT:
		assertion, err := SignAssertion(settings, c.clock.Now())
		if err != nil {
			return nil, err
		}
		cfg.AuthStyle = oauth2.AuthStyleInParams
		cfg.EndpointParams = url.Values{
			"client_assertion_type": {clientAssertionType},
			"client_assertion":      {assertion},
		}
	case "", models.AuthMethodClientSecretBasic:
		cfg.ClientSecret = settings.ClientSecret
		cfg.AuthStyle = oauth2.AuthStyleInHeader
	default:
		return nil, fmt.Errorf("unsupported oauth auth method %q", settings.AuthMethod)
	}

	issuedAt := c.clock.Now()
	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, c.client))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenRequest, describeTokenError(err))
	}
	if tok.AccessToken == "" {
		return nil, ErrEmptyToken
	}

	return &Token{
		AccessToken: tok.AccessToken,
		Expiry:      expiry(tok, issuedAt),
	}, nil
}

// expiry считает истечение от issuedAt по expires_in, чтобы не зависеть от системных часов
func expiry(tok *oauth2.Token, issuedAt time.Time) time.Time {
	var seconds int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = int64(v)
	case int64:
		seconds = v
	case json.Number:
		seconds, _ = v.Int64()
	case string:
		seconds, _ = strconv.ParseInt(v, 10, 64)
	}
	if seconds > 0 {
		return issuedAt.Add(time.Duration(seconds) * time.Second)
	}
	return tok.Expiry
}

func describeTokenError(err error) string {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		if retrieve.ErrorCode != "" {
			if retrieve.ErrorDescription != "" {
				return fmt.Sprintf("%s: %s", retrieve.ErrorCode, retrieve.ErrorDescription)
			}
			return retrieve.ErrorCode
		}
		if retrieve.Response != nil {
			return retrieve.Response.Status
		}
	}
	return err.Error()
}
