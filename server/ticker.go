package server

import (
	"context"
	"time"

	"go.uber.org/atomic"
)

// MutableTicker is a ticker whose interval can change and which can be
// paused. It fires right away and again after every change.
type MutableTicker struct {
	C <-chan bool

	interval *atomic.Int64
	enabled  *atomic.Bool
	wake     chan bool
}

// NewMutableTicker starts a ticker that runs until ctx is done.
func NewMutableTicker(ctx context.Context, d time.Duration) *MutableTicker {
	c := make(chan bool, 1)
	mt := &MutableTicker{
		C:        c,
		interval: atomic.NewInt64(int64(d)),
		enabled:  atomic.NewBool(true),
		wake:     make(chan bool, 1),
	}
	go mt.run(ctx, c)
	return mt
}

func (mt *MutableTicker) run(ctx context.Context, c chan<- bool) {
	for {
		if mt.enabled.Load() {
			select {
			case c <- true:
			default:
			}
		}

		timer := time.NewTimer(mt.Interval())
		select {
		case <-timer.C:
		case <-mt.wake:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (mt *MutableTicker) Interval() time.Duration {
	return time.Duration(mt.interval.Load())
}

func (mt *MutableTicker) Enabled() bool {
	return mt.enabled.Load()
}

// SetInterval restarts the wait with interval d.
func (mt *MutableTicker) SetInterval(d time.Duration) {
	mt.interval.Store(int64(d))
	mt.poke()
}

func (mt *MutableTicker) Stop() {
	mt.enabled.Store(false)
	mt.poke()
}

func (mt *MutableTicker) Start() {
	mt.enabled.Store(true)
	mt.poke()
}

func (mt *MutableTicker) poke() {
	select {
	case mt.wake <- true:
	default:
	}
}
