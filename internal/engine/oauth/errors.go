package oauth

import "errors"

var (
	// ErrUnauthorized сигнал от вызывающего кода: сервер отклонил токен (401)
	ErrUnauthorized = errors.New("unauthorized")

	ErrTokenRequest = errors.New("token request failed")
	ErrEmptyToken   = errors.New("token endpoint returned an empty access token")
)
