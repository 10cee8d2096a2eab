package remesh

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/particle"
)

var testMaterial = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")

func circle(t *testing.T, name string, x float64, nodes int) particle.Particle {
	sf := particle.ShapeFunction{
		Center: geom.Vec{x, 0}, Radius: 1, NodeCount: nodes,
	}
	p, err := sf.Particle(particle.ID(name), testMaterial)
	require.NoError(t, err)
	return p
}

// touching returns two joined circles whose nodes 0 and nodes/2 face each
// other.
func touching(t *testing.T, nodes int) *particle.SystemState {
	a, b := circle(t, "a", 0, nodes), circle(t, "b", 2, nodes)
	a, b = particle.Join(a, b, 0, nodes/2)
	return particle.NewState(uuid.New(), 0, []particle.Particle{a, b})
}

type recorder struct {
	name  string
	calls *[]string
	err   error
}

func (r recorder) RemeshSystem(s *particle.SystemState) (*particle.SystemState, error) {
	*r.calls = append(*r.calls, r.name)
	if r.err != nil {
		return nil, r.err
	}
	ps := s.Particles()
	ps[0] = ps[0].Translate(geom.Vec{1, 0})
	return s.WithParticles(ps), nil
}

func TestChainFold(t *testing.T) {
	var calls []string
	s := touching(t, 20)
	chain := Chain{recorder{"a", &calls, nil}, recorder{"b", &calls, nil}}

	out, err := chain.RemeshSystem(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.NotEqual(t, s.ID(), out.ID())
	assert.Equal(t, geom.Vec{2, 0}, out.Particle(0).Center())
	assert.Equal(t, geom.Vec{0, 0}, s.Particle(0).Center())
	assert.Equal(t, s.Time(), out.Time())

	same, err := Chain{}.RemeshSystem(s)
	require.NoError(t, err)
	assert.Same(t, s, same)
}

func TestChainError(t *testing.T) {
	var calls []string
	fail := errors.New("degenerate contour")
	chain := Chain{
		recorder{"a", &calls, fail}, recorder{"b", &calls, nil},
	}

	_, err := chain.RemeshSystem(touching(t, 20))
	assert.True(t, errors.Is(err, fail))
	assert.Equal(t, []string{"a"}, calls)
}

func TestNeckNeighborhood(t *testing.T) {
	s, err := NeckNeighborhood{}.RemeshSystem(touching(t, 20))
	require.NoError(t, err)

	a := s.Particle(0)
	assert.Equal(t, particle.GrainBoundary, a.Node(0).Type)
	assert.Equal(t, particle.Neck, a.Node(1).Type)
	assert.Equal(t, particle.Neck, a.Node(19).Type)
	assert.Equal(t, particle.Surface, a.Node(2).Type)

	b := s.Particle(1)
	assert.Equal(t, particle.Neck, b.Node(9).Type)
	assert.Equal(t, particle.Neck, b.Node(11).Type)

	nodes := a.Nodes()
	nodes[5].Type = particle.Neck
	ps := s.Particles()
	ps[0] = a.WithNodes(nodes)
	s, err = NeckNeighborhood{}.RemeshSystem(s.WithParticles(ps))
	require.NoError(t, err)
	assert.Equal(t, particle.Surface, s.Particle(0).Node(5).Type)
	require.NoError(t, s.Validate())
}

func TestLastSurfaceNode(t *testing.T) {
	p := circle(t, "a", 0, 10)
	nodes := p.Nodes()
	nodes[3].Type, nodes[4].Type = particle.Neck, particle.Neck
	s := particle.NewState(uuid.New(), 0, []particle.Particle{p.WithNodes(nodes)})

	out, err := LastSurfaceNode{}.RemeshSystem(s)
	require.NoError(t, err)
	q := out.Particle(0)
	require.Equal(t, 11, q.NodeCount())
	assert.Equal(t, particle.Surface, q.Node(4).Type)
	mid := nodes[3].Position.Add(nodes[4].Position).Scale(0.5)
	assert.InDelta(t, mid[0], q.Node(4).Position[0], 1e-12)
	assert.InDelta(t, mid[1], q.Node(4).Position[1], 1e-12)
}

func TestFreeSurfaceStable(t *testing.T) {
	fs := DefaultFreeSurface()
	s := touching(t, 100)

	out, err := fs.RemeshSystem(s)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.Equal(t, 100, out.Particle(i).NodeCount(), "%d) Node count changed.", i+1)
	}
	require.NoError(t, out.Validate())
}

func TestFreeSurfaceRefines(t *testing.T) {
	fs := DefaultFreeSurface()
	s := particle.NewState(uuid.New(), 0,
		[]particle.Particle{circle(t, "a", 0, 20)})

	out, err := fs.RemeshSystem(s)
	require.NoError(t, err)
	p := out.Particle(0)
	assert.Equal(t, 40, p.NodeCount())
	for i := 0; i < p.NodeCount(); i++ {
		r := p.Node(i).Position.Norm()
		assert.InDelta(t, 1, r, 1e-3, "%d) Node left the circle.", i+1)
	}
	assert.Greater(t, p.Polygon().Area(), 0.0)
}

func TestFreeSurfaceSpacing(t *testing.T) {
	table := []struct {
		target, nodes, expected int
	}{
		{0, 20, 20},
		{0, 100, 100},
		{100, 20, 40},
		{20, 100, 50},
	}

	for i, test := range table {
		fs := DefaultFreeSurface()
		fs.TargetNodeCount = test.target
		p := circle(t, "a", 0, test.nodes)
		s := particle.NewState(uuid.New(), 0, []particle.Particle{p})

		out, err := fs.RemeshSystem(s)
		require.NoError(t, err, "%d) Unexpected error.", i+1)
		assert.Equal(t, test.expected, out.Particle(0).NodeCount(),
			"%d) Wrong node count.", i+1)
	}

	p := circle(t, "a", 0, 20)
	fs := DefaultFreeSurface()
	fs.TargetNodeCount = 0
	assert.InDelta(t, p.Polygon().Perimeter()/20, fs.spacing(p), 1e-12)
	fs.TargetNodeCount = 40
	assert.InDelta(t, p.MeanSpacing()/2, fs.spacing(p), 1e-12)
}

func TestFreeSurfaceTwinPoints(t *testing.T) {
	fs := DefaultFreeSurface()
	p := circle(t, "a", 0, 100)
	nodes := p.Nodes()
	twin := particle.Node{
		ID: uuid.New(), Type: particle.Surface,
		Position: nodes[50].Position.Add(
			nodes[51].Position.Sub(nodes[50].Position).Scale(1e-3)),
	}
	nodes = append(nodes[:51], append([]particle.Node{twin}, nodes[51:]...)...)
	s := particle.NewState(uuid.New(), 0, []particle.Particle{p.WithNodes(nodes)})

	out, err := fs.RemeshSystem(s)
	require.NoError(t, err)
	q := out.Particle(0)
	assert.Equal(t, 100, q.NodeCount())
	assert.Equal(t, -1, q.NodeIndex(twin.ID))
}

func TestFreeSurfaceProtection(t *testing.T) {
	fs := DefaultFreeSurface()
	fs.DeletionLimit = 0.2
	fs.AdditionLimit = 1
	s := touching(t, 100)

	out, err := fs.RemeshSystem(s)
	require.NoError(t, err)
	a := out.Particle(0)
	assert.Less(t, a.NodeCount(), 100)
	for k := -fs.NeckProtectionCount; k <= fs.NeckProtectionCount; k++ {
		id := s.Particle(0).Node((k + 100) % 100).ID
		assert.GreaterOrEqual(t, a.NodeIndex(id), 0,
			"Protected node %d was removed.", k)
	}
	require.NoError(t, out.Validate())
}

func TestFreeSurfaceValidate(t *testing.T) {
	table := []func(fs *FreeSurface){
		func(fs *FreeSurface) { fs.TargetNodeCount = 2 },
		func(fs *FreeSurface) { fs.TargetNodeCount = -1 },
		func(fs *FreeSurface) { fs.MaxWidthFactor = 1 },
		func(fs *FreeSurface) { fs.MinWidthFactor = 1 },
		func(fs *FreeSurface) { fs.AdditionLimit = 0.1 },
		func(fs *FreeSurface) { fs.TwinPointLimit = -1 },
		func(fs *FreeSurface) { fs.NeckProtectionCount = -1 },
	}

	for i, modify := range table {
		fs := DefaultFreeSurface()
		modify(&fs)
		if err := fs.Validate(); err == nil {
			t.Errorf("%d) Expected invalid parameters.", i+1)
		}
	}
	assert.NoError(t, DefaultFreeSurface().Validate())
	assert.Equal(t, "free-surface", Name(DefaultFreeSurface()))
	assert.Equal(t, "neck-neighborhood", Name(NeckNeighborhood{}))
}
