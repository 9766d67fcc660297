package sdk

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Driver turns a validated manifest into a Module.
type Driver interface {
	Open(ctx context.Context, m *Manifest) (*Module, error)
}

// DriverFunc adapts a function to Driver.
type DriverFunc func(ctx context.Context, m *Manifest) (*Module, error)

func (f DriverFunc) Open(ctx context.Context, m *Manifest) (*Module, error) { return f(ctx, m) }

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available under name. It panics if name is
// registered twice or d is nil.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("sdk: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("sdk: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	d, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (forgotten import?)", ErrUnknownDriver, name)
	}
	return d, nil
}
