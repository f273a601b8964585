package validator

import (
	"net"
	"net/url"
	"strings"
)

// ValidateTarget проверяет адрес для http мониторов
func ValidateTarget(target string) bool {
	if target == "" {
		return false
	}

	// Проверяем правильность ip 192.168.1.1:8080
	if _, _, err := net.SplitHostPort(target); err == nil {
		return true
	}

	// Проверяем правильность url http://api.com
	if u, err := url.Parse(target); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return u.Host != ""
	}

	// Проверяем правильность упрощенные ссылки google.com
	if !strings.Contains(target, "://") {
		return true
	}

	return false
}

// ValidateHostname проверяет hostname для port/ping/dns/radius мониторов
func ValidateHostname(hostname string) bool {
	if hostname == "" || strings.ContainsAny(hostname, " /\\") {
		return false
	}
	if net.ParseIP(hostname) != nil {
		return true
	}
	for _, label := range strings.Split(strings.TrimSuffix(hostname, "."), ".") {
		if label == "" || len(label) > 63 {
			return false
		}
	}
	return true
}
