// Package storage persists retrieval items behind a small adapter/driver
// registry so the same engine runs on SQLite, Postgres or MongoDB.
package storage

import (
	"errors"
)

// Manager owns the adapter matched to a raw connection and the driver
// built for its dialect. A zero Manager (no Start, or Start(nil)) is a
// valid no-op: Driver returns nil and Build does nothing.
type Manager struct {
	adapter Adapter
	driver  Driver
}

func NewManager() *Manager {
	return &Manager{}
}

// Start matches conn against the registered adapters and builds the
// driver for the resulting dialect. A nil conn leaves the manager inert.
func (m *Manager) Start(conn any) error {
	if conn == nil {
		return nil
	}
	a, err := lookupAdapter(conn)
	if err != nil {
		return err
	}
	d, err := lookupDriver(a)
	if err != nil {
		return err
	}
	m.adapter = a
	m.driver = d
	return nil
}

func (m *Manager) Adapter() Adapter { return m.adapter }
func (m *Manager) Driver() Driver   { return m.driver }

func (m *Manager) Dialect() string {
	if m.adapter == nil {
		return ""
	}
	return m.adapter.Dialect()
}

// Build runs pending schema migrations. Safe to call repeatedly.
func (m *Manager) Build() error {
	if m.driver == nil {
		return nil
	}
	return m.driver.Migrate()
}

var ErrNoAdapter = errors.New("no adapter registered for connection type")
