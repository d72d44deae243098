package health

import (
	"context"
	"errors"
	"sort"

	"github.com/kailas-cloud/directory/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled indicates an optional component that is not configured.
	CheckDisabled CheckResult = "disabled"
)

// Component names.
const (
	ComponentStore   = "store"
	ComponentRedis   = "redis"
	ComponentStorage = "storage"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	checks map[string]Pinger
}

// New creates a Service. The record store is mandatory.
func New(store Pinger) *Service {
	return &Service{checks: map[string]Pinger{ComponentStore: store}}
}

// With adds an optional component. Nil pingers are ignored.
func (s *Service) With(name string, p Pinger) *Service {
	if p != nil {
		s.checks[name] = p
	}
	return s
}

// Components lists the checked component names in order.
func (s *Service) Components() []string {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	status := Healthy

	for name, p := range s.checks {
		err := p.Ping(ctx)
		switch {
		case err == nil:
			checks[name] = CheckOK
		case errors.Is(err, domain.ErrStorageDisabled):
			checks[name] = CheckDisabled
		default:
			checks[name] = CheckError
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
