package services

import "errors"

var (
	ErrMonitorNotFound      = errors.New("monitor not found")
	ErrMaintenanceNotFound  = errors.New("maintenance window not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrMonitorInactive      = errors.New("monitor is not active")
)
