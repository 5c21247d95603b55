package storage

import (
	"fmt"
)

// Adapter wraps a raw connection and names its dialect.
type Adapter interface {
	Dialect() string
}

// Driver executes schema migrations for one dialect. Drivers that also
// implement Repos expose the item repository used by the engine.
type Driver interface {
	Dialect() string
	Migrate() error
}

type adapterMatcher func(conn any) bool
type adapterFactory func(conn any) (Adapter, error)
type driverFactory func(adapter Adapter) (Driver, error)

type adapterEntry struct {
	match   adapterMatcher
	factory adapterFactory
}

var (
	adapterRegistry []adapterEntry
	driverRegistry  = make(map[string]driverFactory)
)

// RegisterAdapter adds a connection matcher. Matchers run in
// registration order; the first hit wins.
func RegisterAdapter(match adapterMatcher, factory adapterFactory) {
	adapterRegistry = append(adapterRegistry, adapterEntry{match: match, factory: factory})
}

// RegisterDriver binds a dialect name to a driver factory.
func RegisterDriver(dialect string, factory driverFactory) {
	driverRegistry[dialect] = factory
}

func lookupAdapter(conn any) (Adapter, error) {
	for _, entry := range adapterRegistry {
		if entry.match(conn) {
			return entry.factory(conn)
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrNoAdapter, conn)
}

func lookupDriver(adapter Adapter) (Driver, error) {
	dialect := adapter.Dialect()
	f, ok := driverRegistry[dialect]
	if !ok {
		return nil, fmt.Errorf("no driver registered for dialect: %s", dialect)
	}
	return f(adapter)
}
