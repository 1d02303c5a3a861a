package environments

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// DriverConfig is passed to a driver factory.
type DriverConfig struct {
	// Fixture is the path of a YAML environment description.
	Fixture string

	// Options are driver-specific settings.
	Options map[string]string

	// Logger receives driver logs.
	Logger *telemetry.Logger
}

// Factory builds an environment from its configuration.
type Factory func(cfg DriverConfig) (engine.Environment, error)

// Registry maps driver names to factories.
type Registry struct {
	// mu protects factories.
	mu sync.RWMutex

	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register registers a driver factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || factory == nil {
		return fmt.Errorf("driver name and factory are required")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("driver %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// New builds the environment of the named driver. An unknown driver or a
// failing factory is a session start failure: no environment can be started.
func (r *Registry) New(name string, cfg DriverConfig) (engine.Environment, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, engine.NewSessionStartError(
			fmt.Sprintf("unknown environment driver %q (available: %s)", name, strings.Join(r.Names(), ", ")), nil).
			WithOperation("environment.new")
	}

	if cfg.Logger == nil {
		cfg.Logger = telemetry.Nop()
	}

	env, err := factory(cfg)
	if err != nil {
		return nil, engine.NewSessionStartError(fmt.Sprintf("failed to configure environment driver %q", name), err).
			WithOperation("environment.new")
	}
	return env, nil
}

// Names lists the registered drivers in name order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
