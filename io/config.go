package io

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"
)

// ErrConfig is wrapped by every error caused by an invalid configuration.
var ErrConfig = errors.New("invalid configuration")

const (
	DefaultGasConstant   = 8.31446261815324 // J/(mol K)
	DefaultInertDamping  = 1e3
	DefaultNodeCount     = 100
	DefaultMaxStepCount  = 1000
	DefaultSolverSteps   = 100000
	DefaultRemeshingRate = 100
)

// Remesher names accepted by the [solver] and [remeshing] sections.
const (
	NeckNeighborhoodRemesher = "neck-neighborhood"
	FreeSurfaceRemesher      = "free-surface"
	LastSurfaceNodeRemesher  = "last-surface-node"
	NoRemesher               = "none"
)

// Compaction strategies accepted by the [compaction] section.
const (
	FocalCompaction    = "focal"
	OneByOneCompaction = "one-by-one"
)

// Step width controllers accepted by the [solver] section.
const (
	DisplacementAngleStepWidth = "displacement-angle"
	FixedStepWidth             = "fixed"
)

// Observer policies accepted by the [output] section.
const (
	CriticalObservers = "critical"
	TolerantObservers = "tolerant"
)

var logLevels = []string{"debug", "info", "warn", "error"}

type ProcessConfig struct {
	// Required
	Temperature float64 `yaml:"temperature"`
	Duration    float64 `yaml:"duration"`

	// Optional
	GasConstant              float64 `gcfg:"gas-constant" yaml:"gas_constant"`
	VacancyConcentration     float64 `gcfg:"vacancy-concentration" yaml:"vacancy_concentration"`
	SplitGrainBoundaryEnergy bool    `gcfg:"split-grain-boundary-energy" yaml:"split_grain_boundary_energy"`
	InertDamping             float64 `gcfg:"inert-damping" yaml:"inert_damping"`
	InertIndex               []int   `gcfg:"inert-index" yaml:"inert_index"`
}

func (con *ProcessConfig) ValidTemperature() bool {
	return con.Temperature > 0
}
func (con *ProcessConfig) ValidDuration() bool {
	return con.Duration > 0
}
func (con *ProcessConfig) ValidGasConstant() bool {
	return con.GasConstant > 0
}
func (con *ProcessConfig) ValidVacancyConcentration() bool {
	return con.VacancyConcentration >= 0
}
func (con *ProcessConfig) ValidInertDamping() bool {
	return con.InertDamping > 0
}

func (con *ProcessConfig) CheckInit() error {
	switch {
	case !con.ValidTemperature():
		return fmt.Errorf("Need to specify a positive Temperature for Process.")
	case !con.ValidDuration():
		return fmt.Errorf("Need to specify a positive Duration for Process.")
	case !con.ValidGasConstant():
		return fmt.Errorf(
			"GasConstant of Process must be positive, but is %g.",
			con.GasConstant,
		)
	case !con.ValidVacancyConcentration():
		return fmt.Errorf(
			"VacancyConcentration of Process must be non-negative, but is %g.",
			con.VacancyConcentration,
		)
	case !con.ValidInertDamping():
		return fmt.Errorf(
			"InertDamping of Process must be positive, but is %g.",
			con.InertDamping,
		)
	}
	return nil
}

type MaterialConfig struct {
	// Required
	Density          float64 `yaml:"density"`
	MolarMass        float64 `gcfg:"molar-mass" yaml:"molar_mass"`
	SurfaceEnergy    float64 `gcfg:"surface-energy" yaml:"surface_energy"`
	SurfaceDiffusion float64 `gcfg:"surface-diffusion" yaml:"surface_diffusion"`

	// Optional
	ID string `yaml:"id"`

	id uuid.UUID
}

func (mat *MaterialConfig) CheckInit(name string) error {
	if !(mat.Density > 0) {
		return fmt.Errorf(
			"Need to specify a positive Density for Material '%s'.", name,
		)
	} else if !(mat.MolarMass > 0) {
		return fmt.Errorf(
			"Need to specify a positive MolarMass for Material '%s'.", name,
		)
	} else if mat.SurfaceEnergy < 0 || mat.SurfaceDiffusion < 0 {
		return fmt.Errorf(
			"Surface properties of Material '%s' must be non-negative.", name,
		)
	}

	if mat.ID == "" {
		return nil
	}
	id, err := uuid.Parse(mat.ID)
	if err != nil {
		return fmt.Errorf(
			"ID of Material '%s' is not a valid UUID: '%s'.", name, mat.ID,
		)
	}
	mat.id = id
	return nil
}

// UUID returns the configured id, or uuid.Nil if none was given.
func (mat *MaterialConfig) UUID() uuid.UUID { return mat.id }

type GrainBoundaryConfig struct {
	// Materials names the one (same-material contacts) or two materials
	// separated by the boundary. An empty list makes this the default
	// boundary for every unconfigured pair.
	Materials []string `yaml:"materials"`

	Energy    float64 `yaml:"energy"`
	Diffusion float64 `yaml:"diffusion"`
}

// IsDefault returns true if the boundary applies to every unconfigured pair.
func (gb *GrainBoundaryConfig) IsDefault() bool { return len(gb.Materials) == 0 }

// Pair returns the two materials separated by the boundary.
func (gb *GrainBoundaryConfig) Pair() (a, b string) {
	if len(gb.Materials) == 1 {
		return gb.Materials[0], gb.Materials[0]
	}
	return gb.Materials[0], gb.Materials[1]
}

func (gb *GrainBoundaryConfig) CheckInit(
	name string, materials map[string]*MaterialConfig,
) error {
	if len(gb.Materials) > 2 {
		return fmt.Errorf(
			"GrainBoundary '%s' separates %d materials, but may only "+
				"separate two.", name, len(gb.Materials),
		)
	}
	for _, m := range gb.Materials {
		if _, ok := materials[m]; !ok {
			return fmt.Errorf(
				"GrainBoundary '%s' refers to the undefined Material '%s'.",
				name, m,
			)
		}
	}
	if gb.Energy < 0 || gb.Diffusion < 0 {
		return fmt.Errorf(
			"Energy and Diffusion of GrainBoundary '%s' must be "+
				"non-negative.", name,
		)
	}
	return nil
}

type ParticleConfig struct {
	// Required
	Radius float64 `yaml:"radius"`

	// Optional
	ID         string  `yaml:"id"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Rotation   float64 `yaml:"rotation"`
	Ovality    float64 `yaml:"ovality"`
	PeakCount  int     `gcfg:"peak-count" yaml:"peak_count"`
	PeakHeight float64 `gcfg:"peak-height" yaml:"peak_height"`
	PeakShift  float64 `gcfg:"peak-shift" yaml:"peak_shift"`
	NodeCount  int     `gcfg:"node-count" yaml:"node_count"`
	Material   string  `yaml:"material"`
	Inert      bool    `yaml:"inert"`

	id uuid.UUID
}

func (p *ParticleConfig) CheckInit(
	name string, materials map[string]*MaterialConfig,
) error {
	if err := p.checkShape(name); err != nil {
		return err
	}

	if p.Material != "" {
		if _, ok := materials[p.Material]; !ok {
			return fmt.Errorf(
				"Particle '%s' refers to the undefined Material '%s'.",
				name, p.Material,
			)
		}
	} else if len(materials) != 1 {
		return fmt.Errorf(
			"Particle '%s' has no Material and %d materials are defined.",
			name, len(materials),
		)
	}

	if p.ID == "" {
		return nil
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf(
			"ID of Particle '%s' is not a valid UUID: '%s'.", name, p.ID,
		)
	}
	p.id = id
	return nil
}

func (p *ParticleConfig) checkShape(name string) error {
	if !(p.Radius > 0) {
		return fmt.Errorf(
			"Need to specify a positive Radius for Particle '%s'.", name,
		)
	} else if p.Ovality < 0 || p.Ovality >= 1 {
		return fmt.Errorf(
			"Ovality of Particle '%s' must be in range [0, 1), but is %g.",
			name, p.Ovality,
		)
	} else if p.PeakHeight < 0 || p.PeakHeight >= 1 {
		return fmt.Errorf(
			"PeakHeight of Particle '%s' must be in range [0, 1), but is %g.",
			name, p.PeakHeight,
		)
	} else if p.PeakCount < 0 {
		return fmt.Errorf(
			"Particle '%s' given a negative PeakCount, %d.", name, p.PeakCount,
		)
	}

	if p.NodeCount == 0 {
		p.NodeCount = DefaultNodeCount
	} else if p.NodeCount < 3 {
		return fmt.Errorf(
			"NodeCount of Particle '%s' must be at least 3, but is %d.",
			name, p.NodeCount,
		)
	}
	return nil
}

// UUID returns the configured id, or uuid.Nil if none was given.
func (p *ParticleConfig) UUID() uuid.UUID { return p.id }

type PackingConfig struct {
	// Table is a whitespace separated file with the columns x, y, rotation
	// and radius, followed by ovality, peak-count, peak-height and
	// peak-shift if ExtendedColumns is set.
	Table           string `yaml:"table"`
	ExtendedColumns bool   `gcfg:"extended-columns" yaml:"extended_columns"`
	Material        string `yaml:"material"`
	NodeCount       int    `gcfg:"node-count" yaml:"node_count"`
}

func (con *PackingConfig) ValidTable() bool {
	return con.Table != ""
}

func (con *PackingConfig) CheckInit(materials map[string]*MaterialConfig) error {
	if !con.ValidTable() {
		return nil
	}
	if con.NodeCount == 0 {
		con.NodeCount = DefaultNodeCount
	} else if con.NodeCount < 3 {
		return fmt.Errorf(
			"NodeCount of Packing must be at least 3, but is %d.",
			con.NodeCount,
		)
	}
	if con.Material != "" {
		if _, ok := materials[con.Material]; !ok {
			return fmt.Errorf(
				"Packing refers to the undefined Material '%s'.", con.Material,
			)
		}
	} else if len(materials) != 1 {
		return fmt.Errorf(
			"Packing has no Material and %d materials are defined.",
			len(materials),
		)
	}
	return nil
}

type CompactionConfig struct {
	Strategy                 string  `yaml:"strategy"`
	StepDistance             float64 `gcfg:"step-distance" yaml:"step_distance"`
	MinimumIntrusion         float64 `gcfg:"minimum-intrusion" yaml:"minimum_intrusion"`
	MinimumRelativeIntrusion float64 `gcfg:"minimum-relative-intrusion" yaml:"minimum_relative_intrusion"`
	MaxStepCount             int     `gcfg:"max-step-count" yaml:"max_step_count"`
	FocusX                   float64 `gcfg:"focus-x" yaml:"focus_x"`
	FocusY                   float64 `gcfg:"focus-y" yaml:"focus_y"`
}

func (con *CompactionConfig) ValidStrategy() bool {
	return con.Strategy == FocalCompaction || con.Strategy == OneByOneCompaction
}

func (con *CompactionConfig) CheckInit() error {
	con.Strategy = strings.ToLower(strings.TrimSpace(con.Strategy))
	switch {
	case !con.ValidStrategy():
		return fmt.Errorf(
			"Strategy of Compaction must be one of [%s | %s]. '%s' is not "+
				"recognized.", FocalCompaction, OneByOneCompaction, con.Strategy,
		)
	case con.StepDistance < 0:
		return fmt.Errorf(
			"Compaction given a negative StepDistance, %g.", con.StepDistance,
		)
	case con.MinimumIntrusion < 0 || con.MinimumRelativeIntrusion < 0:
		return fmt.Errorf("Compaction given a negative minimum intrusion.")
	case con.MaxStepCount <= 0:
		return fmt.Errorf(
			"Need to specify a positive MaxStepCount for Compaction.",
		)
	}
	return nil
}

type PreconditionConfig struct {
	// MinimumContacts is the least number of grain boundaries required
	// after compaction. Zero disables the check.
	MinimumContacts int `gcfg:"minimum-contacts" yaml:"minimum_contacts"`
}

func (con *PreconditionConfig) CheckInit() error {
	if con.MinimumContacts < 0 {
		return fmt.Errorf(
			"Precondition given a negative MinimumContacts, %d.",
			con.MinimumContacts,
		)
	}
	return nil
}

type SolverConfig struct {
	Remeshers           []string `yaml:"remeshers"`
	RemeshingEverySteps int      `gcfg:"remeshing-every-steps" yaml:"remeshing_every_steps"`
	MaxStepCount        int      `gcfg:"max-step-count" yaml:"max_step_count"`
	StepWidth           string   `gcfg:"step-width" yaml:"step_width"`
	DisplacementAngle   float64  `gcfg:"displacement-angle" yaml:"displacement_angle"`
	FixedStepWidth      float64  `gcfg:"fixed-step-width" yaml:"fixed_step_width"`
	// PoreClosedLimit stops the solution once the pore surface falls below
	// this many mean particle radii. Zero disables the check.
	PoreClosedLimit float64 `gcfg:"pore-closed-limit" yaml:"pore_closed_limit"`
}

func (con *SolverConfig) CheckInit() error {
	if len(con.Remeshers) == 0 {
		con.Remeshers = []string{NeckNeighborhoodRemesher}
	}
	if err := checkRemeshers("Solver", con.Remeshers); err != nil {
		return err
	}

	con.StepWidth = strings.ToLower(strings.TrimSpace(con.StepWidth))
	switch con.StepWidth {
	case DisplacementAngleStepWidth:
		if !(con.DisplacementAngle > 0) {
			return fmt.Errorf(
				"Need to specify a positive DisplacementAngle for Solver.",
			)
		}
	case FixedStepWidth:
		if !(con.FixedStepWidth > 0) {
			return fmt.Errorf(
				"Need to specify a positive FixedStepWidth for Solver.",
			)
		}
	default:
		return fmt.Errorf(
			"StepWidth of Solver must be one of [%s | %s]. '%s' is not "+
				"recognized.", DisplacementAngleStepWidth, FixedStepWidth,
			con.StepWidth,
		)
	}

	switch {
	case con.MaxStepCount <= 0:
		return fmt.Errorf("Need to specify a positive MaxStepCount for Solver.")
	case con.RemeshingEverySteps < 0:
		return fmt.Errorf(
			"Solver given a negative RemeshingEverySteps, %d.",
			con.RemeshingEverySteps,
		)
	case con.PoreClosedLimit < 0:
		return fmt.Errorf(
			"Solver given a negative PoreClosedLimit, %g.", con.PoreClosedLimit,
		)
	}
	return nil
}

// RemeshingConfig lists the remeshers run once between compaction and
// sintering. An empty list skips the stage.
type RemeshingConfig struct {
	Remeshers []string `yaml:"remeshers"`
}

func (con *RemeshingConfig) CheckInit() error {
	return checkRemeshers("Remeshing", con.Remeshers)
}

func checkRemeshers(section string, names []string) error {
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case NeckNeighborhoodRemesher, FreeSurfaceRemesher,
			LastSurfaceNodeRemesher, NoRemesher:
		default:
			return fmt.Errorf(
				"Remeshers of %s must be from [%s | %s | %s | %s]. '%s' is "+
					"not recognized.", section, NeckNeighborhoodRemesher,
				FreeSurfaceRemesher, LastSurfaceNodeRemesher, NoRemesher, name,
			)
		}
		names[i] = name
	}
	return nil
}

type FreeSurfaceConfig struct {
	DeletionLimit       float64 `gcfg:"deletion-limit" yaml:"deletion_limit"`
	AdditionLimit       float64 `gcfg:"addition-limit" yaml:"addition_limit"`
	MinWidthFactor      float64 `gcfg:"min-width-factor" yaml:"min_width_factor"`
	MaxWidthFactor      float64 `gcfg:"max-width-factor" yaml:"max_width_factor"`
	TwinPointLimit      float64 `gcfg:"twin-point-limit" yaml:"twin_point_limit"`
	NeckProtectionCount int     `gcfg:"neck-protection-count" yaml:"neck_protection_count"`
	TargetNodeCount     int     `gcfg:"target-node-count" yaml:"target_node_count"`
}

type OutputConfig struct {
	PlotDir        string `gcfg:"plot-dir" yaml:"plot_dir"`
	StepPlots      bool   `gcfg:"step-plots" yaml:"step_plots"`
	MetricsFile    string `gcfg:"metrics-file" yaml:"metrics_file"`
	LogFile        string `gcfg:"log-file" yaml:"log_file"`
	LogLevel       string `gcfg:"log-level" yaml:"log_level"`
	ObserverPolicy string `gcfg:"observer-policy" yaml:"observer_policy"`
}

func (con *OutputConfig) ValidPlotDir() bool {
	return con.PlotDir != ""
}
func (con *OutputConfig) ValidMetricsFile() bool {
	return con.MetricsFile != ""
}
func (con *OutputConfig) ValidLogFile() bool {
	return con.LogFile != ""
}
func (con *OutputConfig) ValidLogLevel() bool {
	for _, level := range logLevels {
		if strings.EqualFold(level, con.LogLevel) {
			return true
		}
	}
	return false
}

// Tolerant returns true if failing observers should only be logged.
func (con *OutputConfig) Tolerant() bool {
	return con.ObserverPolicy == TolerantObservers
}

func (con *OutputConfig) CheckInit() error {
	con.LogLevel = strings.ToLower(strings.TrimSpace(con.LogLevel))
	con.ObserverPolicy = strings.ToLower(strings.TrimSpace(con.ObserverPolicy))
	if !con.ValidLogLevel() {
		return fmt.Errorf(
			"LogLevel of Output must be one of [%s]. '%s' is not recognized.",
			strings.Join(logLevels, " | "), con.LogLevel,
		)
	} else if con.ObserverPolicy != CriticalObservers &&
		con.ObserverPolicy != TolerantObservers {

		return fmt.Errorf(
			"ObserverPolicy of Output must be one of [%s | %s]. '%s' is not "+
				"recognized.", CriticalObservers, TolerantObservers,
			con.ObserverPolicy,
		)
	}
	return nil
}

// Config is the complete description of a simulation run.
type Config struct {
	Process       ProcessConfig                   `yaml:"process"`
	Material      map[string]*MaterialConfig      `yaml:"material"`
	GrainBoundary map[string]*GrainBoundaryConfig `gcfg:"grain-boundary" yaml:"grain_boundary"`
	Particle      map[string]*ParticleConfig      `yaml:"particle"`
	Packing       PackingConfig                   `yaml:"packing"`
	Compaction    CompactionConfig                `yaml:"compaction"`
	Precondition  PreconditionConfig              `yaml:"precondition"`
	Remeshing     RemeshingConfig                 `yaml:"remeshing"`
	Solver        SolverConfig                    `yaml:"solver"`
	FreeSurface   FreeSurfaceConfig               `gcfg:"free-surface-remesher" yaml:"free_surface_remesher"`
	Output        OutputConfig                    `yaml:"output"`

	// Packed holds the particles read from Packing.Table, in row order.
	Packed []ParticleConfig `yaml:"-"`
}

// DefaultConfig returns a configuration with every optional value set to
// its default.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Process.GasConstant = DefaultGasConstant
	cfg.Process.SplitGrainBoundaryEnergy = true
	cfg.Process.InertDamping = DefaultInertDamping

	cfg.Compaction.Strategy = FocalCompaction
	cfg.Compaction.MaxStepCount = DefaultMaxStepCount

	cfg.Solver.RemeshingEverySteps = DefaultRemeshingRate
	cfg.Solver.MaxStepCount = DefaultSolverSteps
	cfg.Solver.StepWidth = DisplacementAngleStepWidth
	cfg.Solver.DisplacementAngle = 0.05

	cfg.FreeSurface = FreeSurfaceConfig{
		DeletionLimit:       0.05,
		AdditionLimit:       0.5,
		MinWidthFactor:      0.25,
		MaxWidthFactor:      3,
		TwinPointLimit:      0.1,
		NeckProtectionCount: 5,
		TargetNodeCount:     DefaultNodeCount,
	}

	cfg.Output.LogFile = "run.log"
	cfg.Output.LogLevel = "info"
	cfg.Output.ObserverPolicy = CriticalObservers
	return cfg
}

// CheckInit validates every section and fills in derived defaults. Errors
// wrap ErrConfig.
func (cfg *Config) CheckInit() error {
	if err := cfg.checkInit(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

func (cfg *Config) checkInit() error {
	if err := cfg.Process.CheckInit(); err != nil {
		return err
	}

	if len(cfg.Material) == 0 {
		return fmt.Errorf("Need to specify at least one Material.")
	}
	for _, name := range cfg.MaterialNames() {
		if err := cfg.Material[name].CheckInit(name); err != nil {
			return err
		}
	}

	defaults := 0
	for _, name := range cfg.GrainBoundaryNames() {
		gb := cfg.GrainBoundary[name]
		if err := gb.CheckInit(name, cfg.Material); err != nil {
			return err
		}
		if gb.IsDefault() {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf(
			"%d GrainBoundaries without Materials are defined, but only one "+
				"default is allowed.", defaults,
		)
	}

	for _, name := range cfg.ParticleNames() {
		if err := cfg.Particle[name].CheckInit(name, cfg.Material); err != nil {
			return err
		}
	}
	if err := cfg.Packing.CheckInit(cfg.Material); err != nil {
		return err
	}
	if len(cfg.Particle) == 0 && !cfg.Packing.ValidTable() {
		return fmt.Errorf("Need to specify at least one Particle or a Packing.")
	}

	if err := cfg.Compaction.CheckInit(); err != nil {
		return err
	} else if err := cfg.Precondition.CheckInit(); err != nil {
		return err
	} else if err := cfg.Remeshing.CheckInit(); err != nil {
		return err
	} else if err := cfg.Solver.CheckInit(); err != nil {
		return err
	} else if err := cfg.Output.CheckInit(); err != nil {
		return err
	}
	return nil
}

// MaterialNames returns the names of all configured materials in sorted
// order.
func (cfg *Config) MaterialNames() []string { return sortedKeys(cfg.Material) }

// ParticleNames returns the names of all configured particles in sorted
// order. This is the order in which particles are assembled.
func (cfg *Config) ParticleNames() []string { return sortedKeys(cfg.Particle) }

// GrainBoundaryNames returns the names of all configured grain boundaries
// in sorted order.
func (cfg *Config) GrainBoundaryNames() []string {
	return sortedKeys(cfg.GrainBoundary)
}

// MaterialID returns the id of the named material.
func (cfg *Config) MaterialID(name string) (uuid.UUID, bool) {
	mat, ok := cfg.Material[name]
	if !ok {
		return uuid.Nil, false
	}
	return mat.UUID(), true
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadConfig reads the configuration file fname. Files ending in .yaml,
// .yml or .json are read as yaml, everything else as gcfg. A relative
// packing table is resolved against the directory of fname and read.
func ReadConfig(fname string) (*Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".yaml", ".yml", ".json":
		b, err := os.ReadFile(fname)
		if err != nil {
			return nil, err
		}
		if err := decodeYAML(b, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, fname, err)
		}
	default:
		if err := gcfg.ReadFileInto(cfg, fname); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, fname, err)
		}
	}

	if cfg.Packing.Table != "" && !filepath.IsAbs(cfg.Packing.Table) {
		cfg.Packing.Table = filepath.Join(filepath.Dir(fname), cfg.Packing.Table)
	}
	return finishConfig(cfg)
}

// ReadConfigString parses a configuration held in memory. format is "ini"
// or "yaml".
func ReadConfigString(text, format string) (*Config, error) {
	cfg := DefaultConfig()
	switch format {
	case "yaml", "json":
		if err := decodeYAML([]byte(text), cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	case "ini":
		if err := gcfg.ReadStringInto(cfg, text); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	default:
		return nil, fmt.Errorf("unknown configuration format '%s'", format)
	}
	return finishConfig(cfg)
}

// decodeYAML rejects unknown keys, as gcfg does.
func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func finishConfig(cfg *Config) (*Config, error) {
	if err := cfg.CheckInit(); err != nil {
		return nil, err
	}
	if !cfg.Packing.ValidTable() {
		return cfg, nil
	}
	packed, err := ReadPacking(cfg.Packing)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	cfg.Packed = packed
	return cfg, nil
}
