package gosinter

import (
	"fmt"

	"github.com/phil-mansfield/gosinter/particle"
)

// Precondition checks a state between stages.
type Precondition interface {
	Name() string
	Check(s *particle.SystemState) error
}

// PreconditionFunc adapts a function to the Precondition interface.
type PreconditionFunc struct {
	Label string
	Fn    func(s *particle.SystemState) error
}

func (p PreconditionFunc) Name() string                        { return p.Label }
func (p PreconditionFunc) Check(s *particle.SystemState) error { return p.Fn(s) }

// MinimumContacts requires at least Minimum grain boundary pairs.
type MinimumContacts struct {
	Minimum int
}

func (MinimumContacts) Name() string { return "minimum-contacts" }

func (m MinimumContacts) Check(s *particle.SystemState) error {
	if n := s.GrainBoundaryPairs(); n < m.Minimum {
		return fmt.Errorf("contact creation failed, too few grain boundaries "+
			"present: %d, need at least %d", n, m.Minimum)
	}
	return nil
}

// ValidTopology requires grain boundary nodes to be matched in pairs.
type ValidTopology struct{}

func (ValidTopology) Name() string { return "valid-topology" }

func (ValidTopology) Check(s *particle.SystemState) error { return s.Validate() }

// Validate runs every precondition and returns the first failure as a
// *PreconditionError.
func Validate(s *particle.SystemState, preconditions ...Precondition) error {
	for _, p := range preconditions {
		if err := p.Check(s); err != nil {
			return &PreconditionError{Name: p.Name(), Err: err}
		}
	}
	return nil
}
