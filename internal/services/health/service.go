// Package health reports whether the service's backing stores are reachable.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

const defaultTimeout = 2 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// Service encapsulates health-related checks.
type Service struct {
	mu      sync.RWMutex
	checks  map[string]Check
	Timeout time.Duration
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: map[string]Check{}, Timeout: defaultTimeout}
}

// Register adds a named check. A later registration replaces an earlier one.
func (s *Service) Register(name string, check Check) {
	if check == nil {
		return
	}
	s.mu.Lock()
	s.checks[name] = check
	s.mu.Unlock()
}

// Report is the result of running every check.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Status runs all checks in name order, each bounded by Timeout.
func (s *Service) Status(ctx context.Context) Report {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()
	sort.Strings(names)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	report := Report{OK: true}
	if len(names) > 0 {
		report.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := checks[name](cctx)
		cancel()
		if err != nil {
			report.OK = false
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}
