package plot

import (
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fogleman/gg"
	"github.com/raykavin/tradesim/pkg/simulation"
)

const DefaultFrameInterval = 33 * time.Millisecond

// Animator keeps a rendered frame of a session up to date. It re-renders on
// every tick event and once per frame interval while the session runs.
type Animator struct {
	renderer *Renderer
	session  *simulation.Session
	interval time.Duration

	mu     sync.RWMutex
	frame  image.Image
	frames atomic.Int64

	started  atomic.Bool
	stopOnce sync.Once
	finish   chan struct{}
	done     chan struct{}
}

func NewAnimator(renderer *Renderer, session *simulation.Session, interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Animator{
		renderer: renderer,
		session:  session,
		interval: interval,
		finish:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start renders synchronously once, then keeps refreshing in the background
func (a *Animator) Start() {
	if !a.started.CompareAndSwap(false, true) {
		return
	}
	a.Refresh()

	events, cancel := a.session.Feed().Subscribe(simulation.DefaultFeedBuffer)
	go func() {
		defer close(a.done)
		defer cancel()

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.finish:
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				a.Refresh()
			case <-ticker.C:
				if a.session.Status() == simulation.StatusRunning {
					a.Refresh()
				}
			}
		}
	}()
}

// Stop cancels the render loop and waits for it to exit
func (a *Animator) Stop() {
	a.stopOnce.Do(func() {
		close(a.finish)
	})
	if a.started.Load() {
		<-a.done
	}
}

// Refresh renders the latest session state
func (a *Animator) Refresh() image.Image {
	snapshot := a.session.Snapshot()
	frame := a.renderer.Render(Frame{
		Candles:      snapshot.Candles,
		CurrentPrice: snapshot.Price,
		PnL:          snapshot.Aggregates.TotalPnL,
	})

	a.mu.Lock()
	a.frame = frame
	a.mu.Unlock()
	a.frames.Add(1)

	return frame
}

// Frame returns the last rendered frame, rendering one if none exists yet
func (a *Animator) Frame() image.Image {
	a.mu.RLock()
	frame := a.frame
	a.mu.RUnlock()

	if frame == nil {
		return a.Refresh()
	}
	return frame
}

// Frames counts the render passes so far
func (a *Animator) Frames() int64 { return a.frames.Load() }

// WritePNG encodes the last frame
func (a *Animator) WritePNG(w io.Writer) error {
	return gg.NewContextForImage(a.Frame()).EncodePNG(w)
}
