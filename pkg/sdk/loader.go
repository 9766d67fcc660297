package sdk

import (
	"context"
	"sync"

	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
)

// Loader installs a module from the first source that yields a valid one.
type Loader struct {
	env     *Environment
	sources []Source
	log     *logging.Logger

	mu sync.Mutex
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger routes loader diagnostics to l.
func WithLogger(l *logging.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// NewLoader returns a loader that installs into env, trying sources in order.
// A nil sources slice selects DefaultSources.
func NewLoader(env *Environment, sources []Source, opts ...LoaderOption) *Loader {
	if sources == nil {
		sources = DefaultSources()
	}
	l := &Loader{env: env, sources: sources, log: logging.Discard()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Environment returns the environment the loader installs into.
func (l *Loader) Environment() *Environment { return l.env }

// Sources lists the configured source names in order.
func (l *Loader) Sources() []string {
	names := make([]string, 0, len(l.sources))
	for _, s := range l.sources {
		names = append(names, s.Name())
	}
	return names
}

// IsLoaded reports whether a valid module is installed. It fails only when
// there is no environment to look in.
func (l *Loader) IsLoaded() (bool, error) {
	if l == nil || l.env == nil {
		return false, ErrEnvironment
	}
	m := l.env.Module()
	if m == nil {
		return false, nil
	}
	if err := m.Validate(); err != nil {
		l.log.Warn("installed module is unusable: %v", err)
		return false, nil
	}
	return true, nil
}

// Load installs a module unless one is already present. Sources are tried
// once each in order; the first valid module wins. Concurrent calls are
// serialised, so only one fetch sequence runs at a time. When every source
// fails the result is a *LoadError listing each attempt. Context errors are
// returned as is.
func (l *Loader) Load(ctx context.Context) error {
	if l == nil || l.env == nil {
		return ErrEnvironment
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if ok, _ := l.IsLoaded(); ok {
		l.log.Debug("SDK already loaded from %s", l.env.Source())
		return nil
	}

	var (
		attempts []Attempt
		seen     = make(map[string]struct{}, len(l.sources))
	)
	for i, src := range l.sources {
		name := src.Name()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if err := ctx.Err(); err != nil {
			return err
		}

		l.log.Info("loading SDK from %s (%d/%d)", name, i+1, len(l.sources))
		m, err := src.Open(ctx)
		if err == nil {
			err = m.Validate()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			l.log.Warn("source %s failed: %v", name, err)
			attempts = append(attempts, Attempt{Source: name, Err: err})
			continue
		}

		if !l.env.Install(m, name) {
			l.log.Debug("environment already holds a module; keeping it")
		}
		l.log.Info("SDK %s %s loaded from %s", m.Name, m.Version, name)
		return nil
	}
	return &LoadError{Attempts: attempts}
}

// Probe reports whether any source can currently supply a module, without
// installing it. An installed module counts as available.
func (l *Loader) Probe(ctx context.Context) error {
	if l == nil || l.env == nil {
		return ErrEnvironment
	}
	if ok, _ := l.IsLoaded(); ok {
		return nil
	}
	var attempts []Attempt
	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := src.Probe(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		attempts = append(attempts, Attempt{Source: src.Name(), Err: err})
	}
	return &LoadError{Attempts: attempts}
}
