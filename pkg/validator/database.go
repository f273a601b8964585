package validator

import (
	"errors"
	"regexp"
)

var ErrInvalidDatabaseName = errors.New("Invalid database name. A database name can only consist of letters, numbers and underscores")

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateDatabaseName единственная защита от SQL инъекций при подстановке имени
// базы в CREATE DATABASE, вызывать до любой интерполяции
func ValidateDatabaseName(name string) error {
	if !databaseNamePattern.MatchString(name) {
		return ErrInvalidDatabaseName
	}
	return nil
}
