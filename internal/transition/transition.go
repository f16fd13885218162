// Package transition implements the crossfade from the loading indicator to
// the populated event list.
package transition

import (
	"context"
	"errors"
	"time"

	appLog "eventcal/internal/log"
	"eventcal/internal/surface"
)

// Phase is the controller's state.
type Phase int

const (
	PhaseFadingOut Phase = iota
	PhaseFadingIn
	PhaseIdle
)

func (p Phase) String() string {
	switch p {
	case PhaseFadingOut:
		return "fading_out"
	case PhaseFadingIn:
		return "fading_in"
	default:
		return "idle"
	}
}

// ErrFinished is returned by Run on a controller that already completed.
var ErrFinished = errors.New("transition: already finished")

// Config holds the fade timing.
type Config struct {
	// Interval between ticks.
	Interval time.Duration
	// Rate is the fraction of the current opacity removed (fade-out) or
	// added (fade-in) per tick.
	Rate float64
	// Floor is the loader opacity at which the handoff happens and the
	// content opacity the fade-in starts from.
	Floor float64
	// Ceiling ends the fade-in.
	Ceiling float64
}

// DefaultConfig returns the standard 15ms / 10% crossfade.
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Millisecond,
		Rate:     0.1,
		Floor:    0.1,
		Ceiling:  1.0,
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Rate <= 0 || c.Rate >= 1 {
		c.Rate = def.Rate
	}
	if c.Floor <= 0 || c.Floor >= 1 {
		c.Floor = def.Floor
	}
	if c.Ceiling <= c.Floor {
		c.Ceiling = def.Ceiling
	}
}

// Controller is a one-shot fade-out/fade-in state machine. It is not
// restartable; create a new Controller for every load.
type Controller struct {
	loader  surface.Surface
	content surface.Surface
	cfg     Config

	phase   Phase
	opacity float64
	ticks   int
}

// New creates a controller in the FadingOut phase at full opacity. The
// loader is shown and the content hidden.
func New(loader, content surface.Surface, cfg Config) *Controller {
	cfg.normalize()
	loader.SetOpacity(1)
	loader.SetVisible(true)
	content.SetVisible(false)
	return &Controller{
		loader:  loader,
		content: content,
		cfg:     cfg,
		phase:   PhaseFadingOut,
		opacity: 1,
	}
}

func (c *Controller) Phase() Phase { return c.phase }

func (c *Controller) Opacity() float64 { return c.opacity }

// Ticks returns the number of ticks processed so far.
func (c *Controller) Ticks() int { return c.ticks }

// Step processes one tick and returns the resulting phase.
func (c *Controller) Step() Phase {
	switch c.phase {
	case PhaseFadingOut:
		c.ticks++
		if c.opacity <= c.cfg.Floor {
			c.handoff()
			return c.phase
		}
		c.loader.SetOpacity(c.opacity)
		c.opacity -= c.opacity * c.cfg.Rate
	case PhaseFadingIn:
		c.ticks++
		if c.opacity >= c.cfg.Ceiling {
			c.content.SetOpacity(c.cfg.Ceiling)
			c.phase = PhaseIdle
			return c.phase
		}
		c.content.SetOpacity(c.opacity)
		c.opacity += c.opacity * c.cfg.Rate
	}
	return c.phase
}

func (c *Controller) handoff() {
	c.loader.SetVisible(false)
	c.opacity = c.cfg.Floor
	c.content.SetOpacity(c.opacity)
	c.content.SetVisible(true)
	c.phase = PhaseFadingIn
}

// Run drives the controller to PhaseIdle with two sequential ticker loops:
// the fade-in ticker is only created after the fade-out ticker has stopped.
func (c *Controller) Run(ctx context.Context) error {
	if c.phase == PhaseIdle {
		return ErrFinished
	}
	start := time.Now()

	if c.phase == PhaseFadingOut {
		if err := c.loop(ctx, PhaseFadingOut); err != nil {
			return err
		}
	}
	if err := c.loop(ctx, PhaseFadingIn); err != nil {
		return err
	}

	appLog.Debug("transition finished", "ticks", c.ticks, "elapsed", time.Since(start))
	return nil
}

// loop ticks until the controller leaves phase.
func (c *Controller) loop(ctx context.Context, phase Phase) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.Step() != phase {
				return nil
			}
		}
	}
}
