package io

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/phil-mansfield/gosinter/particle"
)

// Row is the persisted form of a single node. Every stored state becomes one
// row per node.
type Row struct {
	StateID         string
	Time            float64
	ParticleID      string
	MaterialID      string
	CenterX         float64
	CenterY         float64
	Rotation        float64
	NodeID          string
	NodeType        string
	X, Y            float64
	ContactParticle string
	ContactNode     string
}

// Rows flattens a state into its persisted rows.
func Rows(s *particle.SystemState) []Row {
	rows := make([]Row, 0, s.NodeCount())
	for _, p := range s.Particles() {
		c := p.Center()
		for _, n := range p.Nodes() {
			row := Row{
				StateID:    s.ID().String(),
				Time:       s.Time(),
				ParticleID: p.ID().String(),
				MaterialID: p.MaterialID().String(),
				CenterX:    c[0],
				CenterY:    c[1],
				Rotation:   p.Rotation(),
				NodeID:     n.ID.String(),
				NodeType:   n.Type.String(),
				X:          n.Position[0],
				Y:          n.Position[1],
			}
			if n.ContactParticle != uuid.Nil {
				row.ContactParticle = n.ContactParticle.String()
				row.ContactNode = n.ContactNode.String()
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// OpenStorage opens the storage for fname based on its extension: .db,
// .sqlite and .sqlite3 are written by SQLiteStorage, everything else by
// ParquetStorage.
func OpenStorage(fname string) (Storage, error) {
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStorage(fname)
	default:
		return NewParquetStorage(fname)
	}
}

// Storage is implemented by every state writer in this package.
type Storage interface {
	Store(s *particle.SystemState) error
	Close() error
}

var parquetSchema = arrow.NewSchema([]arrow.Field{
	{Name: "state_id", Type: arrow.BinaryTypes.String},
	{Name: "time", Type: arrow.PrimitiveTypes.Float64},
	{Name: "particle_id", Type: arrow.BinaryTypes.String},
	{Name: "material_id", Type: arrow.BinaryTypes.String},
	{Name: "center_x", Type: arrow.PrimitiveTypes.Float64},
	{Name: "center_y", Type: arrow.PrimitiveTypes.Float64},
	{Name: "rotation", Type: arrow.PrimitiveTypes.Float64},
	{Name: "node_id", Type: arrow.BinaryTypes.String},
	{Name: "node_type", Type: arrow.BinaryTypes.String},
	{Name: "x", Type: arrow.PrimitiveTypes.Float64},
	{Name: "y", Type: arrow.PrimitiveTypes.Float64},
	{Name: "contact_particle", Type: arrow.BinaryTypes.String},
	{Name: "contact_node", Type: arrow.BinaryTypes.String},
}, nil)

// ParquetStorage writes each stored state as one row group of a parquet
// file.
type ParquetStorage struct {
	mu      sync.Mutex
	fw      *pqarrow.FileWriter
	builder *array.RecordBuilder
	states  int
}

func NewParquetStorage(fname string) (*ParquetStorage, error) {
	f, err := os.Create(fname)
	if err != nil {
		return nil, err
	}
	fw, err := pqarrow.NewFileWriter(
		parquetSchema, f, parquet.NewWriterProperties(),
		pqarrow.DefaultWriterProps(),
	)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating parquet writer for '%s': %w", fname, err)
	}
	return &ParquetStorage{
		fw: fw, builder: array.NewRecordBuilder(memory.DefaultAllocator, parquetSchema),
	}, nil
}

func (ps *ParquetStorage) Store(s *particle.SystemState) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.fw == nil {
		return fmt.Errorf("parquet storage already closed")
	}

	b := ps.builder
	for _, row := range Rows(s) {
		b.Field(0).(*array.StringBuilder).Append(row.StateID)
		b.Field(1).(*array.Float64Builder).Append(row.Time)
		b.Field(2).(*array.StringBuilder).Append(row.ParticleID)
		b.Field(3).(*array.StringBuilder).Append(row.MaterialID)
		b.Field(4).(*array.Float64Builder).Append(row.CenterX)
		b.Field(5).(*array.Float64Builder).Append(row.CenterY)
		b.Field(6).(*array.Float64Builder).Append(row.Rotation)
		b.Field(7).(*array.StringBuilder).Append(row.NodeID)
		b.Field(8).(*array.StringBuilder).Append(row.NodeType)
		b.Field(9).(*array.Float64Builder).Append(row.X)
		b.Field(10).(*array.Float64Builder).Append(row.Y)
		b.Field(11).(*array.StringBuilder).Append(row.ContactParticle)
		b.Field(12).(*array.StringBuilder).Append(row.ContactNode)
	}

	rec := b.NewRecord()
	defer rec.Release()
	if err := ps.fw.Write(rec); err != nil {
		return fmt.Errorf("writing state %s: %w", s.ID(), err)
	}
	ps.states++
	return nil
}

// States returns the number of states written so far.
func (ps *ParquetStorage) States() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.states
}

// Close flushes the file footer and closes the file.
func (ps *ParquetStorage) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.fw == nil {
		return nil
	}
	ps.builder.Release()
	err := ps.fw.Close()
	ps.fw = nil
	return err
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS states (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	time REAL NOT NULL,
	particles INTEGER NOT NULL,
	grain_boundaries INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	state_seq INTEGER NOT NULL REFERENCES states(seq),
	particle_id TEXT NOT NULL,
	material_id TEXT NOT NULL,
	center_x REAL NOT NULL,
	center_y REAL NOT NULL,
	rotation REAL NOT NULL,
	node_id TEXT NOT NULL,
	node_type TEXT NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	contact_particle TEXT,
	contact_node TEXT
);
CREATE INDEX IF NOT EXISTS idx_nodes_state ON nodes(state_seq);
`

// SQLiteStorage writes states into the tables states and nodes of a sqlite
// database. Each state is written in its own transaction.
type SQLiteStorage struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteStorage(fname string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", fname+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (ss *SQLiteStorage) Store(s *particle.SystemState) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.db == nil {
		return fmt.Errorf("sqlite storage already closed")
	}

	ctx := context.Background()
	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO states (id, time, particles, grain_boundaries)
		 VALUES (?, ?, ?, ?)`,
		s.ID().String(), s.Time(), s.ParticleCount(), s.GrainBoundaryPairs(),
	)
	if err != nil {
		return fmt.Errorf("writing state %s: %w", s.ID(), err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (state_seq, particle_id, material_id, center_x,
		 center_y, rotation, node_id, node_type, x, y, contact_particle,
		 contact_node) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range Rows(s) {
		_, err := stmt.ExecContext(ctx, seq, row.ParticleID, row.MaterialID,
			row.CenterX, row.CenterY, row.Rotation, row.NodeID, row.NodeType,
			row.X, row.Y, nullString(row.ContactParticle),
			nullString(row.ContactNode),
		)
		if err != nil {
			return fmt.Errorf("writing nodes of state %s: %w", s.ID(), err)
		}
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// DB returns the underlying database.
func (ss *SQLiteStorage) DB() *sql.DB { return ss.db }

func (ss *SQLiteStorage) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.db == nil {
		return nil
	}
	err := ss.db.Close()
	ss.db = nil
	return err
}

// MemoryStorage keeps every stored state in memory.
type MemoryStorage struct {
	mu     sync.Mutex
	states []*particle.SystemState
	closes int
}

func NewMemoryStorage() *MemoryStorage { return &MemoryStorage{} }

func (ms *MemoryStorage) Store(s *particle.SystemState) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.states = append(ms.states, s)
	return nil
}

func (ms *MemoryStorage) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closes++
	return nil
}

// States returns the stored states in the order they were stored.
func (ms *MemoryStorage) States() []*particle.SystemState {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]*particle.SystemState{}, ms.states...)
}

// Closes returns how often Close was called.
func (ms *MemoryStorage) Closes() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.closes
}
