package io

const (
	ExampleConfigFile = `# Two alumina particles sintered at 1273 K for one hour.

[process]

#######################
# Required Parameters #
#######################

# Process temperature in K and duration in s.
temperature = 1273
duration = 3600

#######################
# Optional Parameters #
#######################

# Universal gas constant in J/(mol K).
# gas-constant = 8.31446261815324

# Multiplies every approach rate if set.
# vacancy-concentration = 1e-4

# Configured grain boundary energies describe the boundary as a whole and are
# split evenly between the two materials. Set to false to attach the full
# energy to both sides instead.
# split-grain-boundary-energy = true

# Inert particles use a variant of their material whose diffusion
# coefficients are divided by inert-damping. Particles can be made inert by
# index (in the order of assembly, repeat the line for several particles) or
# with "inert = true" in their own section.
# inert-damping = 1e3
# inert-index = 1

# Every material needs a density (kg/m^3), a molar mass (kg/mol) and the
# energy (J/m^2) and diffusion coefficient (m^2/s) of its free surface. An id
# can be given as a UUID, otherwise one is derived from the section name.
[material "alumina"]
density = 1.8e3
molar-mass = 101.96e-3
surface-energy = 0.9
surface-diffusion = 1.65e-14
# id = 7d0f63c6-4f0b-4a49-8a8e-5d2b3b1f3d11

# Grain boundaries between the listed materials. One material describes
# contacts between particles of that material. A boundary without materials
# is used for every pair which is not configured explicitly.
[grain-boundary "alumina"]
materials = alumina
energy = 0.5
diffusion = 1.65e-14

# Particles are assembled in the order of their names. Lengths are in m,
# angles in rad. Shapes are ellipses (ovality in [0, 1)) with peak-count
# bumps of relative height peak-height, shifted by peak-shift turns.
[particle "a"]
x = -110e-6
y = 0
radius = 100e-6
# rotation = 0
# ovality = 0
# peak-count = 0
# peak-height = 0
# peak-shift = 0
# node-count = 100
# material = alumina
# inert = false

[particle "b"]
x = 110e-6
y = 0
radius = 100e-6

# Additional particles can be read from a whitespace separated table with
# the columns x, y, rotation and radius. With extended-columns, the columns
# ovality, peak-count, peak-height and peak-shift follow.
# [packing]
# table = packing.txt
# extended-columns = false
# material = alumina
# node-count = 100

[compaction]
# Must be one of [ focal | one-by-one ].
strategy = focal
step-distance = 1e-5
minimum-relative-intrusion = 0.5
max-step-count = 1000
# minimum-intrusion = 0
# focus-x = 0
# focus-y = 0

[precondition]
# Minimum number of grain boundaries after compaction. 0 disables the check.
minimum-contacts = 1

# Remeshers run once between compaction and sintering, in the given order.
# Must be from [ neck-neighborhood | free-surface | last-surface-node ].
# [remeshing]
# remeshers = free-surface
# remeshers = neck-neighborhood

[solver]
remeshers = neck-neighborhood
remeshing-every-steps = 100
max-step-count = 100000
# Must be one of [ displacement-angle | fixed ].
step-width = displacement-angle
displacement-angle = 0.05
# fixed-step-width = 1
# pore-closed-limit = 0

[free-surface-remesher]
deletion-limit = 0.05
addition-limit = 0.5
min-width-factor = 0.25
max-width-factor = 3
twin-point-limit = 0.1
neck-protection-count = 5
# Sets the reference node spacing to perimeter / target-node-count. 0 keeps
# the current mean node spacing of every particle.
target-node-count = 100

[output]
log-file = run.log
# Must be one of [ debug | info | warn | error ].
log-level = info
# Must be one of [ critical | tolerant ].
observer-policy = critical
# plot-dir = plots
# step-plots = false
# metrics-file = metrics.prom`

	ExampleYAMLFile = `# Two alumina particles sintered at 1273 K for one hour.
process:
  temperature: 1273
  duration: 3600
  # gas_constant: 8.31446261815324
  # vacancy_concentration: 1.0e-4
  # split_grain_boundary_energy: true
  # inert_damping: 1.0e+3
  # inert_index: [1]

material:
  alumina:
    density: 1.8e+3
    molar_mass: 101.96e-3
    surface_energy: 0.9
    surface_diffusion: 1.65e-14

grain_boundary:
  alumina:
    materials: [alumina]
    energy: 0.5
    diffusion: 1.65e-14

particle:
  a:
    x: -110.0e-6
    y: 0
    radius: 100.0e-6
  b:
    x: 110.0e-6
    y: 0
    radius: 100.0e-6

# packing:
#   table: packing.txt
#   material: alumina

compaction:
  strategy: focal
  step_distance: 1.0e-5
  minimum_relative_intrusion: 0.5
  max_step_count: 1000

precondition:
  minimum_contacts: 1

# remeshing:
#   remeshers: [free-surface, neck-neighborhood]

solver:
  remeshers: [neck-neighborhood]
  remeshing_every_steps: 100
  max_step_count: 100000
  step_width: displacement-angle
  displacement_angle: 0.05

free_surface_remesher:
  deletion_limit: 0.05
  addition_limit: 0.5
  min_width_factor: 0.25
  max_width_factor: 3
  twin_point_limit: 0.1
  neck_protection_count: 5
  target_node_count: 100

output:
  log_file: run.log
  log_level: info
  observer_policy: critical
`
)
