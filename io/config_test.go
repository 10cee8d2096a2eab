package io

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Process.Temperature = 1273
	cfg.Process.Duration = 3600
	cfg.Material = map[string]*MaterialConfig{
		"alumina": {
			Density: 1.8e3, MolarMass: 0.1,
			SurfaceEnergy: 0.9, SurfaceDiffusion: 1e-14,
		},
	}
	cfg.Particle = map[string]*ParticleConfig{
		"a": {Radius: 1},
		"b": {X: 3, Radius: 1},
	}
	return cfg
}

func TestExampleConfigs(t *testing.T) {
	ini, err := ReadConfigString(ExampleConfigFile, "ini")
	require.NoError(t, err)
	yml, err := ReadConfigString(ExampleYAMLFile, "yaml")
	require.NoError(t, err)

	assert.Equal(t, ini, yml)

	assert.Equal(t, 1273.0, ini.Process.Temperature)
	assert.Equal(t, DefaultGasConstant, ini.Process.GasConstant)
	assert.True(t, ini.Process.SplitGrainBoundaryEnergy)
	assert.Equal(t, []string{"alumina"}, ini.MaterialNames())
	assert.Equal(t, []string{"a", "b"}, ini.ParticleNames())
	assert.Equal(t, []string{"alumina"}, ini.GrainBoundary["alumina"].Materials)
	assert.Equal(t, FocalCompaction, ini.Compaction.Strategy)
	assert.Equal(t, DefaultNodeCount, ini.Particle["a"].NodeCount)
	assert.Equal(t, []string{NeckNeighborhoodRemesher}, ini.Solver.Remeshers)
	assert.Equal(t, 1, ini.Precondition.MinimumContacts)
	assert.False(t, ini.Output.Tolerant())
}

func TestCheckInit(t *testing.T) {
	id := uuid.New()
	table := []struct {
		modify func(cfg *Config)
		valid  bool
	}{
		{func(cfg *Config) {}, true},
		{func(cfg *Config) { cfg.Process.Temperature = 0 }, false},
		{func(cfg *Config) { cfg.Process.Duration = -1 }, false},
		{func(cfg *Config) { cfg.Process.InertDamping = 0 }, false},
		{func(cfg *Config) { cfg.Material = nil }, false},
		{func(cfg *Config) { cfg.Material["alumina"].Density = 0 }, false},
		{func(cfg *Config) { cfg.Material["alumina"].ID = "not-a-uuid" }, false},
		{func(cfg *Config) { cfg.Material["alumina"].ID = id.String() }, true},
		{func(cfg *Config) { cfg.Particle = nil }, false},
		{func(cfg *Config) { cfg.Particle["a"].Radius = -1 }, false},
		{func(cfg *Config) { cfg.Particle["a"].Ovality = 1 }, false},
		{func(cfg *Config) { cfg.Particle["a"].NodeCount = 2 }, false},
		{func(cfg *Config) { cfg.Particle["a"].Material = "zirconia" }, false},
		{func(cfg *Config) { cfg.Particle["a"].Material = "alumina" }, true},
		{func(cfg *Config) {
			cfg.Material["zirconia"] = &MaterialConfig{Density: 1, MolarMass: 1}
		}, false},
		{func(cfg *Config) {
			cfg.GrainBoundary = map[string]*GrainBoundaryConfig{
				"x": {Energy: 1}, "y": {Energy: 1},
			}
		}, false},
		{func(cfg *Config) {
			cfg.GrainBoundary = map[string]*GrainBoundaryConfig{
				"x": {Materials: []string{"alumina", "zirconia"}},
			}
		}, false},
		{func(cfg *Config) {
			cfg.GrainBoundary = map[string]*GrainBoundaryConfig{
				"x": {Materials: []string{"alumina"}, Energy: 1},
			}
		}, true},
		{func(cfg *Config) { cfg.Compaction.Strategy = "spiral" }, false},
		{func(cfg *Config) { cfg.Compaction.Strategy = " One-By-One" }, true},
		{func(cfg *Config) { cfg.Compaction.MaxStepCount = 0 }, false},
		{func(cfg *Config) { cfg.Precondition.MinimumContacts = -1 }, false},
		{func(cfg *Config) { cfg.Remeshing.Remeshers = []string{"smooth"} }, false},
		{func(cfg *Config) {
			cfg.Remeshing.Remeshers = []string{"free-surface", "NECK-NEIGHBORHOOD"}
		}, true},
		{func(cfg *Config) { cfg.Solver.StepWidth = "fixed" }, false},
		{func(cfg *Config) {
			cfg.Solver.StepWidth, cfg.Solver.FixedStepWidth = "fixed", 10
		}, true},
		{func(cfg *Config) { cfg.Output.LogLevel = "loud" }, false},
		{func(cfg *Config) { cfg.Output.ObserverPolicy = "lenient" }, false},
	}

	for i, test := range table {
		cfg := validConfig()
		test.modify(cfg)
		err := cfg.CheckInit()
		if test.valid && err != nil {
			t.Errorf("%d) Expected valid config, got '%v'.", i+1, err)
		} else if !test.valid && !errors.Is(err, ErrConfig) {
			t.Errorf("%d) Expected ErrConfig, got '%v'.", i+1, err)
		}
	}
}

func TestCheckInitNormalizes(t *testing.T) {
	cfg := validConfig()
	cfg.Compaction.Strategy = " One-By-One"
	cfg.Remeshing.Remeshers = []string{"Free-Surface"}
	cfg.Output.LogLevel = "DEBUG"
	require.NoError(t, cfg.CheckInit())

	assert.Equal(t, OneByOneCompaction, cfg.Compaction.Strategy)
	assert.Equal(t, []string{FreeSurfaceRemesher}, cfg.Remeshing.Remeshers)
	assert.Equal(t, "debug", cfg.Output.LogLevel)
}

func TestMaterialID(t *testing.T) {
	id := uuid.New()
	cfg := validConfig()
	cfg.Material["alumina"].ID = id.String()
	require.NoError(t, cfg.CheckInit())

	got, ok := cfg.MaterialID("alumina")
	assert.True(t, ok)
	assert.Equal(t, id, got)
	_, ok = cfg.MaterialID("zirconia")
	assert.False(t, ok)
}

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	fname := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fname, []byte(text), 0644))
	return fname
}

const packingConfig = `[process]
temperature = 1000
duration = 10
inert-index = 1

[material "m"]
density = 1
molar-mass = 1

[packing]
table = packing.txt
node-count = 12
`

func TestReadConfigPacking(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "packing.txt", "0 0 0 1\n3 0 0.5 1.5\n")
	fname := writeFile(t, dir, "run.ini", packingConfig)

	cfg, err := ReadConfig(fname)
	require.NoError(t, err)

	require.Len(t, cfg.Packed, 2)
	assert.Equal(t, []int{1}, cfg.Process.InertIndex)
	assert.Equal(t, 3.0, cfg.Packed[1].X)
	assert.Equal(t, 0.5, cfg.Packed[1].Rotation)
	assert.Equal(t, 1.5, cfg.Packed[1].Radius)
	assert.Equal(t, 12, cfg.Packed[0].NodeCount)
	assert.Equal(t, filepath.Join(dir, "packing.txt"), cfg.Packing.Table)
}

func TestReadConfigExtendedPacking(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "packing.txt", "0 0 0 1 0.2 4 0.1 0.25\n")
	fname := writeFile(t, dir, "run.ini",
		packingConfig+"extended-columns = true\n")

	cfg, err := ReadConfig(fname)
	require.NoError(t, err)
	require.Len(t, cfg.Packed, 1)

	p := cfg.Packed[0]
	assert.Equal(t, 0.2, p.Ovality)
	assert.Equal(t, 4, p.PeakCount)
	assert.Equal(t, 0.1, p.PeakHeight)
	assert.Equal(t, 0.25, p.PeakShift)
}

const jsonConfig = `{"process": {"temperature": 1000, "duration": 1}, ` +
	`"material": {"m": {"density": 1, "molar_mass": 1}}, ` +
	`"particle": {"a": {"radius": 1}}}`

func TestReadConfigFormats(t *testing.T) {
	dir := t.TempDir()
	table := []struct {
		name, text string
		valid      bool
	}{
		{"run.ini", ExampleConfigFile, true},
		{"run.yaml", ExampleYAMLFile, true},
		{"run.yml", ExampleYAMLFile, true},
		{"run.ini", ExampleConfigFile + "\n[process]\nspeed = 3\n", false},
		{"run.yaml", ExampleYAMLFile + "speed: 3\n", false},
		{"run.json", jsonConfig, true},
		{"run.json", `{"process": {"temperature": 1000}}`, false},
	}

	for i, test := range table {
		fname := writeFile(t, dir, test.name, test.text)
		_, err := ReadConfig(fname)
		if test.valid && err != nil {
			t.Errorf("%d) Expected %s to be read, got '%v'.", i+1, test.name, err)
		} else if !test.valid && !errors.Is(err, ErrConfig) {
			t.Errorf("%d) Expected ErrConfig for %s, got '%v'.", i+1, test.name, err)
		}
	}
}
