/*package material holds the material and interface property graph: per
material substance data, a surface interface and the grain boundary
interfaces towards every material it can touch.
*/
package material

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Namespace is the UUID namespace used to derive material ids from names.
var Namespace = uuid.MustParse("5e2c6a9f-3f1b-4d0e-9a63-1c7b0f4b8d21")

// ID returns the deterministic id of the material with the given name.
func ID(name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(name))
}

// InterfaceProperties are the transport and energy properties of an
// interface.
type InterfaceProperties struct {
	DiffusionCoefficient float64
	Energy               float64
}

// NewInterfaceProperties returns the interface properties or an error if
// either value is negative.
func NewInterfaceProperties(d, e float64) (InterfaceProperties, error) {
	if d < 0 {
		return InterfaceProperties{}, fmt.Errorf(
			"diffusion coefficient must be non-negative, but is %g", d,
		)
	} else if e < 0 {
		return InterfaceProperties{}, fmt.Errorf(
			"interface energy must be non-negative, but is %g", e,
		)
	}
	return InterfaceProperties{DiffusionCoefficient: d, Energy: e}, nil
}

// Damp returns a copy with the diffusion coefficient divided by factor.
func (p InterfaceProperties) Damp(factor float64) InterfaceProperties {
	return InterfaceProperties{p.DiffusionCoefficient / factor, p.Energy}
}

// SubstanceProperties are bulk properties of a material.
type SubstanceProperties struct {
	Density   float64 // kg/m^3
	MolarMass float64 // kg/mol
}

// MolarVolume returns the volume of one mole of the substance.
func (s SubstanceProperties) MolarVolume() float64 {
	return s.MolarMass / s.Density
}

// Material is immutable once built. The grain boundary map contains an entry
// for every material which may touch this one, including itself when
// particles of the same material can be in contact.
type Material struct {
	id        uuid.UUID
	label     string
	substance SubstanceProperties
	surface   InterfaceProperties
	gb        map[uuid.UUID]InterfaceProperties
}

// New creates a material. The grain boundary map is copied.
func New(
	id uuid.UUID, label string, substance SubstanceProperties,
	surface InterfaceProperties, gb map[uuid.UUID]InterfaceProperties,
) *Material {
	m := &Material{
		id: id, label: label, substance: substance, surface: surface,
		gb: make(map[uuid.UUID]InterfaceProperties, len(gb)),
	}
	for k, v := range gb {
		m.gb[k] = v
	}
	return m
}

func (m *Material) ID() uuid.UUID                  { return m.id }
func (m *Material) Label() string                  { return m.label }
func (m *Material) Substance() SubstanceProperties { return m.substance }
func (m *Material) Surface() InterfaceProperties   { return m.surface }

// GrainBoundary returns the properties of the grain boundary towards the
// material with the given id.
func (m *Material) GrainBoundary(other uuid.UUID) (InterfaceProperties, bool) {
	p, ok := m.gb[other]
	return p, ok
}

// GrainBoundaries returns a copy of the grain boundary map.
func (m *Material) GrainBoundaries() map[uuid.UUID]InterfaceProperties {
	out := make(map[uuid.UUID]InterfaceProperties, len(m.gb))
	for k, v := range m.gb {
		out[k] = v
	}
	return out
}

func (m *Material) String() string {
	return fmt.Sprintf("Material{%s %s}", m.label, m.id)
}

// Graph maps material ids to materials.
type Graph map[uuid.UUID]*Material

// Get returns the material with the given id.
func (g Graph) Get(id uuid.UUID) (*Material, error) {
	m, ok := g[id]
	if !ok {
		return nil, fmt.Errorf("%w: no material with id %s", ErrMissingMaterial, id)
	}
	return m, nil
}

// Lookup returns the material with the given label.
func (g Graph) Lookup(label string) (*Material, bool) {
	for _, m := range g {
		if m.label == label {
			return m, true
		}
	}
	return nil, false
}

// Materials returns the materials sorted by label.
func (g Graph) Materials() []*Material {
	out := make([]*Material, 0, len(g))
	for _, m := range g {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out
}

// Contact returns the grain boundary properties seen from both sides of a
// contact between materials a and b.
func (g Graph) Contact(a, b uuid.UUID) (ab, ba InterfaceProperties, err error) {
	ma, err := g.Get(a)
	if err != nil {
		return ab, ba, err
	}
	mb, err := g.Get(b)
	if err != nil {
		return ab, ba, err
	}
	var ok bool
	if ab, ok = ma.GrainBoundary(b); !ok {
		return ab, ba, fmt.Errorf("%w: %s has no grain boundary towards %s",
			ErrMissingInterface, ma.label, mb.label)
	}
	if ba, ok = mb.GrainBoundary(a); !ok {
		return ab, ba, fmt.Errorf("%w: %s has no grain boundary towards %s",
			ErrMissingInterface, mb.label, ma.label)
	}
	return ab, ba, nil
}
