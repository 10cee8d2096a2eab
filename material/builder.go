package material

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMissingMaterial  = errors.New("missing material")
	ErrMissingInterface = errors.New("missing interface")
)

// InertSuffix is appended to a material's name to form its inert variant.
const InertSuffix = "-inert"

// InertName returns the name of the inert variant of a material.
func InertName(name string) string { return name + InertSuffix }

// BaseName strips the inert suffix, if any.
func BaseName(name string) string { return strings.TrimSuffix(name, InertSuffix) }

// Definition describes a material before its grain boundaries are known.
// A zero ID is replaced by ID(Name).
type Definition struct {
	Name      string
	ID        uuid.UUID
	Substance SubstanceProperties
	Surface   InterfaceProperties
}

// Options control how configured grain boundaries are attached to
// materials.
type Options struct {
	// SplitGrainBoundaryEnergy halves configured grain boundary energies so
	// the two sides of a boundary sum to the configured value.
	SplitGrainBoundaryEnergy bool
	// InertDamping divides the diffusion coefficients of inert variants.
	InertDamping float64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{SplitGrainBoundaryEnergy: true, InertDamping: 1e3}
}

// Pair is an unordered pair of material names.
type Pair struct{ A, B string }

// NewPair returns the pair in canonical order.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{a, b}
}

// Topology is the set of material pairs which can be in contact.
type Topology map[Pair]bool

// UsageTopology returns the topology implied by the number of particles
// using each material: every pair of used materials, plus a self pair for
// materials shared by two or more particles.
func UsageTopology(counts map[string]int) Topology {
	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	top := Topology{}
	for i, a := range names {
		if counts[a] >= 2 {
			top[NewPair(a, a)] = true
		}
		for _, b := range names[i+1:] {
			top[NewPair(a, b)] = true
		}
	}
	return top
}

// Pairs returns the pairs in a deterministic order.
func (t Topology) Pairs() []Pair {
	out := make([]Pair, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Builder assembles a Graph from material definitions and interface
// properties.
type Builder struct {
	opts       Options
	defs       map[string]Definition
	interfaces map[Pair]InterfaceProperties
	fallback   *InterfaceProperties
	inert      map[string]bool
}

func NewBuilder(opts Options) *Builder {
	return &Builder{
		opts:       opts,
		defs:       map[string]Definition{},
		interfaces: map[Pair]InterfaceProperties{},
		inert:      map[string]bool{},
	}
}

// AddMaterial registers a material definition.
func (b *Builder) AddMaterial(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("material definition has no name")
	} else if strings.HasSuffix(def.Name, InertSuffix) {
		return fmt.Errorf("material name '%s' uses the reserved suffix '%s'",
			def.Name, InertSuffix)
	} else if _, ok := b.defs[def.Name]; ok {
		return fmt.Errorf("material '%s' defined twice", def.Name)
	}
	if def.ID == uuid.Nil {
		def.ID = ID(def.Name)
	}
	for name, other := range b.defs {
		if other.ID == def.ID {
			return fmt.Errorf("materials '%s' and '%s' share the id %s",
				name, def.Name, def.ID)
		}
	}
	b.defs[def.Name] = def
	return nil
}

// AddInterface sets the grain boundary between materials a and b. a == b
// describes contacts between particles of the same material.
func (b *Builder) AddInterface(a, c string, props InterfaceProperties) {
	b.interfaces[NewPair(a, c)] = props
}

// SetDefaultInterface sets the grain boundary used for every pair without an
// explicit interface.
func (b *Builder) SetDefaultInterface(props InterfaceProperties) {
	b.fallback = &props
}

// MarkInert requests an inert variant of the named material.
func (b *Builder) MarkInert(name string) {
	b.inert[name] = true
}

// Build returns the graph in which every pair of the topology has grain
// boundaries on both sides. Topology entries may name inert variants.
func (b *Builder) Build(top Topology) (Graph, error) {
	if b.opts.InertDamping <= 0 {
		return nil, fmt.Errorf("inert damping must be positive, but is %g",
			b.opts.InertDamping)
	}

	defs, err := b.concreteDefinitions()
	if err != nil {
		return nil, err
	}

	gbs := map[string]map[uuid.UUID]InterfaceProperties{}
	for name := range defs {
		gbs[name] = map[uuid.UUID]InterfaceProperties{}
	}

	for _, pair := range top.Pairs() {
		da, ok := defs[pair.A]
		if !ok {
			return nil, fmt.Errorf("%w: '%s' appears in the contact topology "+
				"but is not defined", ErrMissingMaterial, pair.A)
		}
		db, ok := defs[pair.B]
		if !ok {
			return nil, fmt.Errorf("%w: '%s' appears in the contact topology "+
				"but is not defined", ErrMissingMaterial, pair.B)
		}

		props, err := b.interfaceFor(BaseName(pair.A), BaseName(pair.B))
		if err != nil {
			return nil, err
		}
		if b.opts.SplitGrainBoundaryEnergy {
			props.Energy /= 2
		}

		gbs[pair.A][db.ID] = b.sided(pair.A, props)
		gbs[pair.B][da.ID] = b.sided(pair.B, props)
	}

	g := Graph{}
	for name, def := range defs {
		g[def.ID] = New(def.ID, name, def.Substance, def.Surface, gbs[name])
	}
	return g, nil
}

// sided returns the properties as seen from the named material: inert
// variants see damped diffusion.
func (b *Builder) sided(name string, props InterfaceProperties) InterfaceProperties {
	if name != BaseName(name) {
		return props.Damp(b.opts.InertDamping)
	}
	return props
}

func (b *Builder) interfaceFor(a, c string) (InterfaceProperties, error) {
	if props, ok := b.interfaces[NewPair(a, c)]; ok {
		return props, nil
	} else if b.fallback != nil {
		return *b.fallback, nil
	}
	return InterfaceProperties{}, fmt.Errorf(
		"%w: no grain boundary configured between '%s' and '%s'",
		ErrMissingInterface, a, c,
	)
}

// concreteDefinitions returns the configured definitions plus the inert
// variants, keyed by concrete name.
func (b *Builder) concreteDefinitions() (map[string]Definition, error) {
	out := make(map[string]Definition, len(b.defs)+len(b.inert))
	for name, def := range b.defs {
		out[name] = def
	}
	for name := range b.inert {
		def, ok := b.defs[name]
		if !ok {
			return nil, fmt.Errorf("%w: inert variant requested for undefined "+
				"material '%s'", ErrMissingMaterial, name)
		}
		inert := InertName(name)
		out[inert] = Definition{
			Name:      inert,
			ID:        ID(inert),
			Substance: def.Substance,
			Surface:   def.Surface.Damp(b.opts.InertDamping),
		}
	}
	return out, nil
}
