package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"Vigil/internal/backend/models"
	"Vigil/internal/engine/maintenance"

	"gopkg.in/yaml.v3"
)

var ErrInvalidDefinitions = errors.New("invalid definitions")

// Definitions файл с мониторами, окнами обслуживания и уведомлениями
type Definitions struct {
	Notifications []*NotificationDefinition `yaml:"notifications"`
	Maintenance   []*MaintenanceDefinition  `yaml:"maintenance"`
	Monitors      []*MonitorDefinition      `yaml:"monitors"`
}

type MonitorDefinition struct {
	models.Monitor `yaml:",inline"`
	Paused         bool `yaml:"paused"`
}

type MaintenanceDefinition struct {
	models.MaintenanceWindow `yaml:",inline"`
	Disabled                 bool `yaml:"disabled"`
}

type NotificationDefinition struct {
	models.Notification `yaml:",inline"`
	Disabled            bool `yaml:"disabled"`
}

// LoadDefinitions читает и проверяет файл определений
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file: %w", err)
	}
	return ParseDefinitions(bytes.NewReader(data))
}

// ParseDefinitions неизвестные поля считаются ошибкой
func ParseDefinitions(r io.Reader) (*Definitions, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs Definitions
	if err := dec.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinitions, err)
	}

	defs.normalize()
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return &defs, nil
}

func (d *Definitions) normalize() {
	for _, n := range d.Notifications {
		n.Active = !n.Disabled
		n.ApplyDefaults()
	}
	for _, w := range d.Maintenance {
		w.Active = !w.Disabled
	}
	for _, m := range d.Monitors {
		m.Active = !m.Paused
		m.ApplyDefaults()
	}
}

// Validate проверяет каждую запись и ссылки между ними
func (d *Definitions) Validate() error {
	var errs []error

	notifications := make(map[string]bool, len(d.Notifications))
	for i, n := range d.Notifications {
		if err := requireUniqueID(notifications, "notification", i, n.ID); err != nil {
			errs = append(errs, err)
		}
		if err := n.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("notification %q: %w", n.ID, err))
		}
	}

	windows := make(map[string]bool, len(d.Maintenance))
	for i, w := range d.Maintenance {
		if err := requireUniqueID(windows, "maintenance window", i, w.ID); err != nil {
			errs = append(errs, err)
		}
		if err := maintenance.ValidateWindow(&w.MaintenanceWindow); err != nil {
			errs = append(errs, fmt.Errorf("maintenance window %q: %w", w.ID, err))
		}
	}

	monitors := make(map[string]bool, len(d.Monitors))
	for i, m := range d.Monitors {
		if err := requireUniqueID(monitors, "monitor", i, m.ID); err != nil {
			errs = append(errs, err)
		}
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("monitor %q: %w", m.ID, err))
		}
		for _, id := range m.NotificationIDs {
			if !notifications[id] {
				errs = append(errs, fmt.Errorf("%w: monitor %q references unknown notification %q", ErrInvalidDefinitions, m.ID, id))
			}
		}
		for _, id := range m.MaintenanceIDs {
			if !windows[id] {
				errs = append(errs, fmt.Errorf("%w: monitor %q references unknown maintenance window %q", ErrInvalidDefinitions, m.ID, id))
			}
		}
	}

	// окна ссылаются на мониторы, поэтому проверяем после сбора id мониторов
	for _, w := range d.Maintenance {
		for _, id := range w.MonitorIDs {
			if !monitors[id] {
				errs = append(errs, fmt.Errorf("%w: maintenance window %q references unknown monitor %q", ErrInvalidDefinitions, w.ID, id))
			}
		}
	}

	return errors.Join(errs...)
}

func requireUniqueID(seen map[string]bool, kind string, index int, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s #%d has no id", ErrInvalidDefinitions, kind, index+1)
	}
	if seen[id] {
		return fmt.Errorf("%w: duplicate %s id %q", ErrInvalidDefinitions, kind, id)
	}
	seen[id] = true
	return nil
}

// MonitorModels копии мониторов для импорта
func (d *Definitions) MonitorModels() []*models.Monitor {
	out := make([]*models.Monitor, 0, len(d.Monitors))
	for _, def := range d.Monitors {
		m := def.Monitor
		out = append(out, &m)
	}
	return out
}

func (d *Definitions) MaintenanceModels() []*models.MaintenanceWindow {
	out := make([]*models.MaintenanceWindow, 0, len(d.Maintenance))
	for _, def := range d.Maintenance {
		w := def.MaintenanceWindow
		out = append(out, &w)
	}
	return out
}

func (d *Definitions) NotificationModels() []*models.Notification {
	out := make([]*models.Notification, 0, len(d.Notifications))
	for _, def := range d.Notifications {
		n := def.Notification
		out = append(out, &n)
	}
	return out
}
