package io

import (
	"fmt"

	"github.com/phil-mansfield/table"
)

// PackedName returns the particle name given to the i-th row of a packing
// table.
func PackedName(i int) string { return fmt.Sprintf("packing-%d", i) }

// ReadPacking reads the particles of a packing table. Rows are returned in
// file order, each checked like a configured particle.
func ReadPacking(con PackingConfig) ([]ParticleConfig, error) {
	colIdxs := []int{0, 1, 2, 3}
	if con.ExtendedColumns {
		colIdxs = append(colIdxs, 4, 5, 6, 7)
	}

	cols, err := table.ReadTable(con.Table, colIdxs, nil)
	if err != nil {
		return nil, fmt.Errorf("reading packing table '%s': %w", con.Table, err)
	}
	xs, ys, rots, rs := cols[0], cols[1], cols[2], cols[3]

	ps := make([]ParticleConfig, len(xs))
	for i := range ps {
		p := &ps[i]
		p.X, p.Y, p.Rotation, p.Radius = xs[i], ys[i], rots[i], rs[i]
		if con.ExtendedColumns {
			p.Ovality = cols[4][i]
			p.PeakCount = int(cols[5][i])
			p.PeakHeight = cols[6][i]
			p.PeakShift = cols[7][i]
		}
		p.NodeCount = con.NodeCount
		p.Material = con.Material
	}

	for i := range ps {
		if err := ps[i].checkShape(PackedName(i)); err != nil {
			return nil, err
		}
	}
	return ps, nil
}
