package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gosinter/geom"
	"github.com/phil-mansfield/gosinter/particle"
)

const testNodes = 8

func testState(t *testing.T) *particle.SystemState {
	t.Helper()
	specs := []particle.Spec{
		{Name: "a", Shape: particle.ShapeFunction{
			Radius: 1, NodeCount: testNodes,
		}},
		{Name: "b", Shape: particle.ShapeFunction{
			Center: geom.Vec{2, 0}, Radius: 1, NodeCount: testNodes,
		}},
	}
	s, err := particle.Assemble(specs, particle.Assignment{Default: uuid.New()})
	require.NoError(t, err)

	ps := s.Particles()
	ps[0], ps[1] = particle.Join(ps[0], ps[1], 0, testNodes/2)
	return s.WithParticles(ps)
}

func TestRows(t *testing.T) {
	s := testState(t)
	rows := Rows(s)
	require.Len(t, rows, 2*testNodes)

	contacts := 0
	for i, row := range rows {
		if row.StateID != s.ID().String() {
			t.Errorf("%d) Expected state id %s, got %s.", i+1, s.ID(), row.StateID)
		}
		if row.NodeType == particle.GrainBoundary.String() {
			contacts++
			assert.NotEmpty(t, row.ContactParticle)
			assert.NotEmpty(t, row.ContactNode)
		} else {
			assert.Empty(t, row.ContactParticle)
		}
	}
	assert.Equal(t, 2, contacts)
	assert.Equal(t, s.Particle(1).ID().String(), rows[0].ContactParticle)
	assert.Equal(t, 2.0, rows[testNodes].CenterX)
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()
	table := []struct {
		name   string
		sqlite bool
	}{
		{"out.parquet", false},
		{"out.db", true},
		{"out.SQLITE", true},
		{"out.sqlite3", true},
		{"out", false},
	}

	for i, test := range table {
		st, err := OpenStorage(filepath.Join(dir, test.name))
		require.NoError(t, err)
		_, isSQLite := st.(*SQLiteStorage)
		if isSQLite != test.sqlite {
			t.Errorf("%d) Expected sqlite = %v for %s, got %T.",
				i+1, test.sqlite, test.name, st)
		}
		assert.NoError(t, st.Close())
	}
}

func TestParquetStorage(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "out.parquet")
	st, err := NewParquetStorage(fname)
	require.NoError(t, err)

	s := testState(t)
	require.NoError(t, st.Store(s))
	require.NoError(t, st.Store(s.Advance(1, s.Particles())))
	assert.Equal(t, 2, st.States())
	require.NoError(t, st.Close())
	assert.NoError(t, st.Close())
	assert.Error(t, st.Store(s))

	f, err := os.Open(fname)
	require.NoError(t, err)
	defer f.Close()

	tbl, err := pqarrow.ReadTable(
		context.Background(), f,
		parquet.NewReaderProperties(memory.DefaultAllocator),
		pqarrow.ArrowReadProperties{}, memory.DefaultAllocator,
	)
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(4*testNodes), tbl.NumRows())
	assert.Equal(t, int64(len(parquetSchema.Fields())), tbl.NumCols())
	assert.Equal(t, "node_type", tbl.Schema().Field(8).Name)
}

func TestSQLiteStorage(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "out.db")
	st, err := NewSQLiteStorage(fname)
	require.NoError(t, err)

	s := testState(t)
	later := s.Advance(2.5, s.Particles())
	require.NoError(t, st.Store(s))
	require.NoError(t, st.Store(later))

	var states, nodes, contacts int
	db := st.DB()
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM states`).Scan(&states))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&nodes))
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM nodes WHERE contact_particle IS NOT NULL`,
	).Scan(&contacts))
	assert.Equal(t, 2, states)
	assert.Equal(t, 4*testNodes, nodes)
	assert.Equal(t, 4, contacts)

	var maxTime float64
	var pairs int
	require.NoError(t, db.QueryRow(
		`SELECT time, grain_boundaries FROM states ORDER BY seq DESC LIMIT 1`,
	).Scan(&maxTime, &pairs))
	assert.Equal(t, 2.5, maxTime)
	assert.Equal(t, 1, pairs)

	require.NoError(t, st.Close())
	assert.NoError(t, st.Close())
	assert.Error(t, st.Store(s))
}

func TestMemoryStorage(t *testing.T) {
	st := NewMemoryStorage()
	s := testState(t)
	require.NoError(t, st.Store(s))
	require.NoError(t, st.Store(s))
	require.NoError(t, st.Close())

	assert.Len(t, st.States(), 2)
	assert.Equal(t, 1, st.Closes())
}
