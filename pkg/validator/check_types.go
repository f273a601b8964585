package validator

// ValidateMonitorType проверяет что тип монитора входит в поддерживаемый набор
func ValidateMonitorType(monitorType string) bool {
	validTypes := map[string]bool{
		"http":   true,
		"port":   true,
		"ping":   true,
		"mqtt":   true,
		"push":   true,
		"radius": true,
		"dns":    true,
	}

	// Если не входит в validTypes вернет false
	return validTypes[monitorType]
}
