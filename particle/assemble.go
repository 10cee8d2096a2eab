package particle

import (
	"fmt"

	"github.com/google/uuid"
)

// Namespace is the UUID namespace used to derive particle ids from names.
var Namespace = uuid.MustParse("9b3f0d7e-61a4-4c8b-b2f5-0e8d7c6a5b41")

// ID returns the deterministic id of the particle with the given name.
func ID(name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(name))
}

// Spec describes one particle to be assembled.
type Spec struct {
	ID       uuid.UUID
	Name     string
	Shape    ShapeFunction
	Material uuid.UUID // uuid.Nil defers to the Assignment default.
}

// Assignment resolves the material of each particle.
type Assignment struct {
	// Default is used for particles without an explicit material.
	Default uuid.UUID
	// Overrides replaces the material of the particles at the given indices.
	Overrides map[int]uuid.UUID
}

// Resolve returns the material of the i-th particle.
func (a Assignment) Resolve(i int, spec Spec) (uuid.UUID, error) {
	if id, ok := a.Overrides[i]; ok {
		return id, nil
	} else if spec.Material != uuid.Nil {
		return spec.Material, nil
	} else if a.Default != uuid.Nil {
		return a.Default, nil
	}
	return uuid.Nil, fmt.Errorf("no material given for particle %d ('%s')",
		i, spec.Name)
}

// Assemble generates every particle and returns the initial state at time
// zero with a fresh id.
func Assemble(specs []Spec, assign Assignment) (*SystemState, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no particles to assemble")
	}
	for i := range assign.Overrides {
		if i < 0 || i >= len(specs) {
			return nil, fmt.Errorf("material override for particle index %d, "+
				"but only %d particles exist", i, len(specs))
		}
	}

	seen := make(map[uuid.UUID]string, len(specs))
	particles := make([]Particle, len(specs))
	for i, spec := range specs {
		if spec.ID == uuid.Nil {
			spec.ID = ID(spec.Name)
		}
		if prev, ok := seen[spec.ID]; ok {
			return nil, fmt.Errorf("particles '%s' and '%s' share the id %s",
				prev, spec.Name, spec.ID)
		}
		seen[spec.ID] = spec.Name

		mat, err := assign.Resolve(i, spec)
		if err != nil {
			return nil, err
		}
		p, err := spec.Shape.Particle(spec.ID, mat)
		if err != nil {
			return nil, fmt.Errorf("particle '%s': %w", spec.Name, err)
		}
		particles[i] = p
	}

	return NewState(uuid.New(), 0, particles), nil
}
