package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/mapstack/pkg/genre"
)

// spinnerOut is where spinners draw. It is stderr so that stdout stays
// clean for DOT and JSON output.
var spinnerOut io.Writer = os.Stderr

// Spinner shows that layers are resolving. It stops when its context is
// cancelled.
type Spinner struct {
	w       io.Writer
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string

	mu      sync.Mutex
	message string
	width   int // widest line drawn, for clearing
	started bool
}

// newSpinner creates a spinner showing message until ctx is done or Stop
// is called.
func newSpinner(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       spinnerOut,
		parent:  ctx,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.draw(s.frames[i%len(s.frames)])
			}
		}
	}()
}

// SetMessage replaces the text shown next to the spinner, for example
// once synchronous layers are done and only fetches are left.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(s.message)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
}

// Stop stops the spinner and clears its line. It may be called more than
// once, and on a spinner that was never started.
func (s *Spinner) Stop() {
	s.cancel()
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width == 0 {
		return
	}
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+2))
}

// StopWithResult stops the spinner and reports how the surface changed.
// pending is the number of creations still in flight.
func (s *Spinner) StopWithResult(res *genre.Result, pending int) {
	s.Stop()
	switch {
	case pending > 0:
		printWarning("Surface reconciled, %d %s still resolving", pending, plural(pending, "layer", "layers"))
	case res.Rebuilt:
		printSuccess("Surface rebuilt")
	default:
		printSuccess("Surface updated in place")
	}
	if res.Failed > 0 {
		printWarning("%d %s failed to resolve and will not be retried", res.Failed, plural(res.Failed, "layer", "layers"))
	}
}

// StopWithError stops the spinner and reports that message failed.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner stopped because its context was
// cancelled.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
