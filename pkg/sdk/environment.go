package sdk

import (
	"context"
	"fmt"
	"sync"
)

// Environment holds the installed module and whether it has been
// initialised. One Environment is usually shared by every creator in a
// process; tests build their own.
type Environment struct {
	mu          sync.RWMutex
	module      *Module
	source      string
	initialized bool

	initMu sync.Mutex
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{}
}

// Module returns the installed module or nil.
func (e *Environment) Module() *Module {
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.module
}

// Source names the source the module was installed from.
func (e *Environment) Source() string {
	if e == nil {
		return ""
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.source
}

// Initialized reports whether the installed module has been initialised.
func (e *Environment) Initialized() bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.module != nil && e.initialized
}

// Install places m into the environment. The first valid installed module
// wins; later calls return false and leave the environment untouched.
func (e *Environment) Install(m *Module, source string) bool {
	if e == nil || m == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.module != nil && e.module.Validate() == nil {
		return false
	}
	e.module = m
	e.source = source
	e.initialized = m.initialised()
	return true
}

// Init runs the module's InitSDK unless it already succeeded. Concurrent
// callers are serialised so InitSDK runs at most once successfully.
func (e *Environment) Init(ctx context.Context) error {
	if e == nil {
		return ErrEnvironment
	}
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.Initialized() {
		return nil
	}
	m := e.Module()
	if m == nil {
		return ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := m.InitSDK(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: initSDK returned false", ErrInitFailed)
	}

	e.mu.Lock()
	e.initialized = true
	e.mu.Unlock()
	return nil
}
