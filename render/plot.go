/*package render draws particle contours of checkpoint states. Plots are
queued as matplotlib commands and only written to disk on Flush.
*/
package render

import (
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"

	plt "github.com/phil-mansfield/pyplot"

	"github.com/phil-mansfield/gosinter/hub"
	"github.com/phil-mansfield/gosinter/particle"
)

var (
	colors = []string{
		"DarkSlateBlue", "DarkSlateGray", "DarkTurquoise",
		"DarkViolet", "DeepPink", "DimGray",
	}

	stageFiles = map[string]string{
		"initial":    "initialState.png",
		"compaction": "compactedState.png",
		"remeshing":  "remeshedState.png",
		"sintering":  "finalState.png",
	}
)

// pyplot keeps a single global command buffer.
var pltMu sync.Mutex

// Plotter subscribes to a hub and plots the states it sees.
type Plotter struct {
	Dir string

	// StepPlots also plots every solver step and every reported
	// intermediate state.
	StepPlots bool
	Logger    *slog.Logger

	mu      sync.Mutex
	files   []string
	reports map[string]int
	subs    []*hub.Subscription
}

func New(dir string, stepPlots bool, logger *slog.Logger) *Plotter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Plotter{
		Dir: dir, StepPlots: stepPlots, Logger: logger,
		reports: map[string]int{},
	}
}

// FileName returns the name of the plot drawn for ev and false if ev is not
// plotted. Reported states are numbered per label in order of arrival.
func (p *Plotter) FileName(ev hub.Event) (string, bool) {
	switch ev.Kind {
	case hub.StageCompleted:
		if name, ok := stageFiles[ev.Label]; ok {
			return name, true
		}
		return ev.Label + "State.png", true
	case hub.SessionInitialized:
		return fmt.Sprintf("session_%d.png", ev.Index), true
	case hub.StepCalculated:
		return fmt.Sprintf("step_%d.png", ev.Index), p.StepPlots
	case hub.StateReported:
		if !p.StepPlots {
			return "", false
		}
		p.mu.Lock()
		i := p.reports[ev.Label]
		p.reports[ev.Label]++
		p.mu.Unlock()
		return fmt.Sprintf("%s_%d.png", ev.Label, i), true
	}
	return "", false
}

// Attach subscribes the plotter to every kind it plots. Options are applied
// to every subscription.
func (p *Plotter) Attach(h *hub.Hub, opts ...hub.Option) {
	opts = append([]hub.Option{hub.Named("plots")}, opts...)
	kinds := []hub.Kind{hub.StageCompleted, hub.SessionInitialized}
	if p.StepPlots {
		kinds = append(kinds, hub.StateReported, hub.StepCalculated)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, kind := range kinds {
		p.subs = append(p.subs, h.Subscribe(kind, p.Handle, opts...))
	}
}

// Detach removes every subscription made by Attach.
func (p *Plotter) Detach() {
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Handle queues a plot of ev.New.
func (p *Plotter) Handle(ev hub.Event) error {
	name, ok := p.FileName(ev)
	if !ok {
		return nil
	} else if ev.New == nil {
		return fmt.Errorf("event '%s' carries no state", ev.Label)
	}

	fname := path.Join(p.Dir, name)
	title := fmt.Sprintf("%s: $t$ = %.4g s", ev.Label, ev.New.Time())
	plotState(ev.New, title, fname)

	p.mu.Lock()
	p.files = append(p.files, fname)
	p.mu.Unlock()
	return nil
}

// Files returns the plots queued since the last Flush.
func (p *Plotter) Files() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.files...)
}

// Flush writes every queued plot.
func (p *Plotter) Flush() {
	p.mu.Lock()
	n := len(p.files)
	p.files = nil
	p.mu.Unlock()
	if n == 0 {
		return
	}

	pltMu.Lock()
	defer pltMu.Unlock()
	p.Logger.Info("writing plots", "count", n, "dir", p.Dir)
	plt.Execute()
	plt.Reset()
}

// Discard drops every queued plot without writing it.
func (p *Plotter) Discard() {
	p.mu.Lock()
	p.files = nil
	p.mu.Unlock()

	pltMu.Lock()
	defer pltMu.Unlock()
	plt.Reset()
}

func plotState(s *particle.SystemState, title, fname string) {
	pltMu.Lock()
	defer pltMu.Unlock()

	plt.Figure(plt.FigSize(8, 8))
	lo, hi := bounds(s)
	for i := 0; i < s.ParticleCount(); i++ {
		xs, ys, gbXs, gbYs := contour(s.Particle(i))
		plt.Plot(xs, ys, plt.LW(2), plt.C(colors[i%len(colors)]))
		if len(gbXs) > 0 {
			plt.Plot(gbXs, gbYs, "ok")
		}
	}

	plt.Title(title)
	plt.XLabel(`$x$ [m]`, plt.FontSize(16))
	plt.YLabel(`$y$ [m]`, plt.FontSize(16))
	plt.XLim(lo, hi)
	plt.YLim(lo, hi)
	plt.SaveFig(fname)
}

// contour returns the closed outline of p and the positions of its grain
// boundary nodes.
func contour(p particle.Particle) (xs, ys, gbXs, gbYs []float64) {
	n := p.NodeCount()
	xs = make([]float64, 0, n+1)
	ys = make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		node := p.Node(i)
		xs = append(xs, node.Position[0])
		ys = append(ys, node.Position[1])
		if !node.IsFree() {
			gbXs = append(gbXs, node.Position[0])
			gbYs = append(gbYs, node.Position[1])
		}
	}
	if n > 0 {
		xs, ys = append(xs, xs[0]), append(ys, ys[0])
	}
	return xs, ys, gbXs, gbYs
}

// bounds returns the limits of a square window around every node with a
// tenth of its width as margin.
func bounds(s *particle.SystemState) (lo, hi float64) {
	first := true
	for i := 0; i < s.ParticleCount(); i++ {
		p := s.Particle(i)
		for j := 0; j < p.NodeCount(); j++ {
			x := p.Node(j).Position
			for _, v := range x {
				if first {
					lo, hi, first = v, v, false
				} else if v < lo {
					lo = v
				} else if v > hi {
					hi = v
				}
			}
		}
	}
	margin := (hi - lo) / 10
	if margin == 0 {
		margin = 1
	}
	return lo - margin, hi + margin
}
