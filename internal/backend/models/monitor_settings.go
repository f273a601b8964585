package models

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"Vigil/internal/shared/constants"
)

type OAuthAuthMethod string

const (
	AuthMethodClientSecretBasic OAuthAuthMethod = "client_secret_basic"
	AuthMethodClientSecretPost  OAuthAuthMethod = "client_secret_post"
	AuthMethodPrivateKeyJWT     OAuthAuthMethod = "private_key_jwt"
)

type HTTPSettings struct {
	URL                 string            `json:"url" yaml:"url"`
	Method              string            `json:"method" yaml:"method"`
	Headers             map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body                string            `json:"body,omitempty" yaml:"body,omitempty"`
	AcceptedStatusCodes []string          `json:"accepted_status_codes" yaml:"accepted_status_codes"`
	IgnoreTLS           bool              `json:"ignore_tls" yaml:"ignore_tls"`
	MaxRedirects        int               `json:"max_redirects" yaml:"max_redirects"`
	BasicAuthUser       string            `json:"basic_auth_user,omitempty" yaml:"basic_auth_user,omitempty"`
	BasicAuthPassword   string            `json:"basic_auth_password,omitempty" yaml:"basic_auth_password,omitempty"`
	OAuth               *OAuthSettings    `json:"oauth,omitempty" yaml:"oauth,omitempty"`
}

// OAuthSettings параметры client credentials гранта. Audience не поддерживается
type OAuthSettings struct {
	TokenURL     string          `json:"token_url" yaml:"token_url"`
	ClientID     string          `json:"client_id" yaml:"client_id"`
	ClientSecret string          `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	Scopes       string          `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	AuthMethod   OAuthAuthMethod `json:"auth_method" yaml:"auth_method"`
	PrivateKey   string          `json:"private_key,omitempty" yaml:"private_key,omitempty"`
}

type PortSettings struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	Port     int    `json:"port" yaml:"port"`
}

type PingSettings struct {
	Hostname   string `json:"hostname" yaml:"hostname"`
	Count      int    `json:"count" yaml:"count"`
	Privileged bool   `json:"privileged" yaml:"privileged"`
}

type MQTTSettings struct {
	Hostname       string `json:"hostname" yaml:"hostname"`
	Port           int    `json:"port" yaml:"port"`
	Username       string `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	Topic          string `json:"topic" yaml:"topic"`
	SuccessMessage string `json:"success_message,omitempty" yaml:"success_message,omitempty"`
}

type PushSettings struct {
	Token string `json:"token" yaml:"token"`
}

type RadiusSettings struct {
	Hostname         string `json:"hostname" yaml:"hostname"`
	Port             int    `json:"port" yaml:"port"`
	Secret           string `json:"secret" yaml:"secret"`
	Username         string `json:"username" yaml:"username"`
	Password         string `json:"password" yaml:"password"`
	CalledStationID  string `json:"called_station_id,omitempty" yaml:"called_station_id,omitempty"`
	CallingStationID string `json:"calling_station_id,omitempty" yaml:"calling_station_id,omitempty"`
	TimeoutMs        int    `json:"timeout_ms" yaml:"timeout_ms"`
	Retries          int    `json:"retries" yaml:"retries"`
}

type DNSSettings struct {
	Hostname   string `json:"hostname" yaml:"hostname"`
	Resolver   string `json:"resolver" yaml:"resolver"`
	Port       int    `json:"port" yaml:"port"`
	RecordType string `json:"record_type" yaml:"record_type"`
}

func (s *HTTPSettings) applyDefaults() {
	if s.Method == "" {
		s.Method = http.MethodGet
	}
	s.Method = strings.ToUpper(s.Method)
	if len(s.AcceptedStatusCodes) == 0 {
		s.AcceptedStatusCodes = []string{"200-299"}
	}
	if s.MaxRedirects == 0 {
		s.MaxRedirects = 10
	}
	if s.OAuth != nil && s.OAuth.AuthMethod == "" {
		s.OAuth.AuthMethod = AuthMethodClientSecretBasic
	}
}

func (s *HTTPSettings) validate() error {
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q", s.URL)
	}
	for _, codes := range s.AcceptedStatusCodes {
		if _, _, err := ParseStatusRange(codes); err != nil {
			return err
		}
	}
	if s.OAuth != nil {
		return s.OAuth.Validate()
	}
	return nil
}

// Validate отклоняет неполную OAuth конфигурацию на этапе настройки
func (o *OAuthSettings) Validate() error {
	if o.TokenURL == "" {
		return errors.New("oauth token_url is required")
	}
	if o.ClientID == "" {
		return errors.New("oauth client_id is required")
	}

	switch o.AuthMethod {
	case "", AuthMethodClientSecretBasic, AuthMethodClientSecretPost:
		if o.ClientSecret == "" {
			return errors.New("oauth client_secret is required")
		}
	case AuthMethodPrivateKeyJWT:
		if o.PrivateKey == "" {
			return errors.New("oauth private_key is required for private_key_jwt")
		}
	default:
		return fmt.Errorf("unsupported oauth auth method %q", o.AuthMethod)
	}
	return nil
}

// ParseStatusRange разбирает "200-299" или "301"
func ParseStatusRange(value string) (int, int, error) {
	lo, hi, isRange := strings.Cut(strings.TrimSpace(value), "-")
	from, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid status code %q", value)
	}
	if !isRange {
		return from, from, nil
	}
	to, err := strconv.Atoi(hi)
	if err != nil || to < from {
		return 0, 0, fmt.Errorf("invalid status code range %q", value)
	}
	return from, to, nil
}

// Accepts проверяет попадает ли код ответа в разрешенные диапазоны
func (s *HTTPSettings) Accepts(statusCode int) bool {
	for _, codes := range s.AcceptedStatusCodes {
		from, to, err := ParseStatusRange(codes)
		if err != nil {
			continue
		}
		if statusCode >= from && statusCode <= to {
			return true
		}
	}
	return false
}

func (s *PortSettings) validate() error {
	if s.Hostname == "" {
		return errors.New("hostname is required")
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	return nil
}

func (s *PingSettings) validate() error {
	if s.Hostname == "" {
		return errors.New("hostname is required")
	}
	return nil
}

func (s *MQTTSettings) validate() error {
	if s.Hostname == "" {
		return errors.New("hostname is required")
	}
	if s.Topic == "" {
		return errors.New("topic is required")
	}
	return nil
}

func (s *PushSettings) validate() error {
	return nil
}

func (s *RadiusSettings) applyDefaults() {
	if s.Port == 0 {
		s.Port = constants.RadiusDefaultPort
	}
	if s.TimeoutMs == 0 {
		s.TimeoutMs = int(constants.RadiusTimeout.Milliseconds())
	}
	if s.Retries == 0 {
		s.Retries = constants.RadiusRetries
	}
}

func (s *RadiusSettings) validate() error {
	if s.Hostname == "" {
		return errors.New("hostname is required")
	}
	if s.Secret == "" {
		return errors.New("secret is required")
	}
	if s.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

func (s *DNSSettings) applyDefaults() {
	if s.Resolver == "" {
		s.Resolver = "1.1.1.1"
	}
	if s.Port == 0 {
		s.Port = 53
	}
	if s.RecordType == "" {
		s.RecordType = "A"
	}
	s.RecordType = strings.ToUpper(s.RecordType)
}

func (s *DNSSettings) validate() error {
	if s.Hostname == "" {
		return errors.New("hostname is required")
	}
	return nil
}
