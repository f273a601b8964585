package uuidutil

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func New() string {
	return uuid.New().String()
}

func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NewToken возвращает случайный токен для push мониторов
func NewToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(buf)
}
