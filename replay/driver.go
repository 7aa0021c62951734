package replay

import (
	"context"
	"log/slog"
	"time"
)

// Stepper is what a Driver drives. Controller and session.Session both
// satisfy it.
type Stepper interface {
	Playing() bool
	Interval() time.Duration
	Step() error
}

// SpeedSignaler is implemented by steppers that announce speed changes,
// letting the driver re-arm its ticker at once instead of on the next
// firing of the old period.
type SpeedSignaler interface {
	SpeedChanged() <-chan struct{}
}

// Driver calls Step on a wall-clock ticker while the stepper is playing.
// Ticks never overlap because Step runs on the driver goroutine.
type Driver struct {
	s   Stepper
	log *slog.Logger
}

func NewDriver(s Stepper, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{s: s, log: log}
}

// Run blocks until ctx is cancelled. A speed change re-arms the ticker as
// soon as a SpeedSignaler reports it, otherwise on the next firing.
func (d *Driver) Run(ctx context.Context) error {
	interval := d.s.Interval()
	t := time.NewTicker(interval)
	defer t.Stop()

	var speedc <-chan struct{}
	if sig, ok := d.s.(SpeedSignaler); ok {
		speedc = sig.SpeedChanged()
	}

	d.log.Debug("replay driver started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("replay driver stopped")
			return nil
		case <-speedc:
			if iv := d.s.Interval(); iv != interval {
				d.log.Debug("replay speed changed", "interval", iv)
				interval = iv
				t.Reset(iv)
			}
		case <-t.C:
			if iv := d.s.Interval(); iv != interval {
				interval = iv
				t.Reset(iv)
			}
			if !d.s.Playing() {
				continue
			}
			if err := d.s.Step(); err != nil {
				d.log.Error("replay step", "error", err)
			}
		}
	}
}
