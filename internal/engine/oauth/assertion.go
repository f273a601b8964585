package oauth

import (
	"fmt"
	"time"

	"Vigil/internal/backend/models"
	"Vigil/pkg/uuidutil"

	"github.com/golang-jwt/jwt/v5"
)

const assertionLifetime = 5 * time.Minute

// SignAssertion client_assertion для private_key_jwt, подписанный RS256 ключом из настроек (PEM)
func SignAssertion(settings *models.OAuthSettings, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(settings.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse oauth private key: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    settings.ClientID,
		Subject:   settings.ClientID,
		Audience:  jwt.ClaimStrings{settings.TokenURL},
		ID:        uuidutil.New(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign client assertion: %w", err)
	}
	return signed, nil
}
