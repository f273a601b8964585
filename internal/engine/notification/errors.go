package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownProvider = errors.New("unknown notification provider")

// TransportError ошибка отправки в виде "Error: <сообщение> <данные ответа>"
type TransportError struct {
	Message string
	Data    string
}

func (e *TransportError) Error() string {
	if e.Data == "" {
		return "Error: " + e.Message
	}
	return "Error: " + e.Message + " " + e.Data
}

// NormalizeError объединяет сообщение и данные ответа в одну ошибку.
// JSON сжимается, остальные значения сериализуются
func NormalizeError(message string, data interface{}) error {
	return &TransportError{Message: message, Data: stringify(data)}
}

func stringify(data interface{}) string {
	switch v := data.(type) {
	case nil:
		return ""
	case string:
		return compactJSON([]byte(v))
	case []byte:
		return compactJSON(v)
	case error:
		return v.Error()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

func compactJSON(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if json.Valid(trimmed) && json.Compact(&buf, trimmed) == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(raw))
}
