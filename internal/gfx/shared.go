package gfx

import (
	"fmt"
	"sync"

	"termhost/internal/system"
)

// Shared is the process-wide display singleton. EnsureInitialized opens the
// display and negotiates a config once; later calls return the cached
// handles. One mutex serialises initialisation, so it is safe to call from
// any goroutine. The display is never torn down once initialised.
type Shared struct {
	mu      sync.Mutex
	driver  Driver
	want    Attribs
	display Display
	config  Config
	inits   int
}

// NewShared returns an uninitialised singleton for driver, negotiating
// against RequiredAttribs.
func NewShared(driver Driver) *Shared {
	return &Shared{driver: driver, want: RequiredAttribs}
}

// EnsureInitialized returns the shared display and config, initialising
// them on first use. A failed attempt leaves the singleton uninitialised so a
// later call may retry.
func (s *Shared) EnsureInitialized() (Display, Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.display != nil {
		return s.display, s.config, nil
	}

	d, err := s.driver.OpenDisplay()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrNoDisplay, s.driver.Name(), err)
	}
	if d == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoDisplay, s.driver.Name())
	}
	cfg, err := d.ChooseConfig(s.want)
	if err != nil {
		_ = d.Terminate()
		return nil, nil, fmt.Errorf("%w: %v", ErrNoConfig, err)
	}

	s.display, s.config = d, cfg
	s.inits++
	system.Component("gfx").Info("display initialized", "driver", s.driver.Name(), "config", fmt.Sprintf("%+v", cfg.Attribs()))
	return d, cfg, nil
}

// Initialized reports whether a display is cached.
func (s *Shared) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display != nil
}

// Inits returns how many times initialisation actually ran; at most 1.
func (s *Shared) Inits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inits
}
