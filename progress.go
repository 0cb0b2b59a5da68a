package gotlist

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apoorvam/goterminal"
	"github.com/dustin/go-humanize"
	"gitlab.com/poldi1405/go-indicators/progress"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// DefaultInterval is the default refresh interval of the progress display.
const DefaultInterval = time.Second

type (

	// Progress renders one live line per registered file. It is safe for
	// concurrent use, all display state is guarded by a single mutex.
	Progress struct {
		mu sync.Mutex

		out io.Writer

		writer *goterminal.Writer

		indicator *progress.Progress

		interval time.Duration

		bars []*Bar

		// Pending bars.
		wg sync.WaitGroup

		running bool

		stop, stopped chan struct{}
	}

	// Bar is the handle of one file line, a nil *Bar discards all updates.
	Bar struct {
		p *Progress

		name string

		startedAt time.Time

		// Exact bytes received.
		size atomic.Uint64

		// Position shown by the display, refreshed at most once per interval.
		shown atomic.Uint64

		refresh *rate.Sometimes

		once sync.Once

		// Guarded by p.mu.
		total   uint64
		message string
		failed  bool
		done    bool
		elapsed time.Duration
	}
)

// NewProgress returns a display writing to out and redrawing every interval.
func NewProgress(out io.Writer, interval time.Duration) *Progress {

	if out == nil {
		out = os.Stdout
	}

	if interval <= 0 {
		interval = DefaultInterval
	}

	indicator := new(progress.Progress)
	indicator.SetStyle(progressStyle)

	return &Progress{
		out:       out,
		writer:    goterminal.New(out),
		indicator: indicator,
		interval:  interval,
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Register adds a line for name with a range of total bytes.
func (p *Progress) Register(name string, total uint64) *Bar {

	b := &Bar{
		p:         p,
		name:      name,
		total:     total,
		startedAt: time.Now(),
		refresh:   &rate.Sometimes{Interval: p.interval},
	}

	p.mu.Lock()
	p.bars = append(p.bars, b)
	p.wg.Add(1)

	if !p.running {
		p.running = true
		go p.run()
	}
	p.mu.Unlock()

	return b
}

// Wait blocks until every registered bar is finished, then renders the final frame.
func (p *Progress) Wait() {

	p.wg.Wait()

	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if !running {
		return
	}

	select {
	case <-p.stop:
	default:
		close(p.stop)
	}

	<-p.stopped

	p.render()

	p.mu.Lock()
	p.writer.Reset()
	p.mu.Unlock()
}

// run redraws the display based on interval until stopped.
func (p *Progress) run() {

	defer close(p.stopped)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.render()
		}
	}
}

func (p *Progress) render() {

	p.mu.Lock()
	defer p.mu.Unlock()

	width := getWidth(p.out)

	p.writer.Clear()

	for _, b := range p.bars {
		fmt.Fprintln(p.writer, p.line(b, width))
	}

	p.writer.Print()
}

// line formats a bar, p.mu must be held.
func (p *Progress) line(b *Bar, width int) string {

	elapsed := b.elapsed

	if !b.done {
		elapsed = time.Since(b.startedAt)
	}

	size := b.shown.Load()

	perc, err := progress.GetPercentage(float64(size), float64(b.total))

	if err != nil || perc > 100 {
		perc = 100
	}

	var sb strings.Builder

	sb.WriteString(color(fmt.Sprintf("%-12s", truncate(b.name, 24))))
	sb.WriteString(" [" + formatElapsed(elapsed) + "] ")

	// 55 is an estimation of the text around the bar.
	if p.indicator.Width = width - 55 - len(b.message); p.indicator.Width > 0 {
		sb.WriteString(barLeft + p.indicator.GetBar(perc, 100) + barRight + " ")
	}

	fmt.Fprintf(&sb, "%8s/%-8s", humanize.Bytes(size), humanize.Bytes(b.total))

	if b.message != "" {

		msg := b.message

		if b.done {
			msg = statusColor(msg, b.failed)
		}

		sb.WriteString(" " + msg)
	}

	return sb.String()
}

// Name of the file shown by the bar.
func (b *Bar) Name() string {
	return b.name
}

// Size returns the exact number of bytes reported so far.
func (b *Bar) Size() uint64 {
	return b.size.Load()
}

// Advance adds n received bytes. The byte count is exact, the displayed
// position is refreshed at most once per interval.
func (b *Bar) Advance(n uint64) {

	if b == nil {
		return
	}

	b.size.Add(n)

	b.refresh.Do(func() {
		b.shown.Store(b.size.Load())
	})
}

// SetMessage changes the trailing message of an unfinished bar.
func (b *Bar) SetMessage(msg string) {

	if b == nil {
		return
	}

	b.p.mu.Lock()
	if !b.done {
		b.message = msg
	}
	b.p.mu.Unlock()
}

// Finish marks the bar done with a terminal message, only the first call counts.
func (b *Bar) Finish(msg string) {
	b.finish(msg, false, false)
}

// Fail marks the bar done as failed, keeping its current position.
func (b *Bar) Fail(msg string) {
	b.finish(msg, true, false)
}

// FailEmpty marks the bar done as failed with a zero length range.
func (b *Bar) FailEmpty(msg string) {
	b.finish(msg, true, true)
}

// Done reports whether the bar was finished.
func (b *Bar) Done() bool {

	if b == nil {
		return false
	}

	b.p.mu.Lock()
	defer b.p.mu.Unlock()

	return b.done
}

// Message returns the current bar message.
func (b *Bar) Message() string {

	if b == nil {
		return ""
	}

	b.p.mu.Lock()
	defer b.p.mu.Unlock()

	return b.message
}

func (b *Bar) finish(msg string, failed, empty bool) {

	if b == nil {
		return
	}

	b.once.Do(func() {

		defer b.p.wg.Done()

		b.p.mu.Lock()

		if empty {
			b.total = 0
			b.shown.Store(0)
		} else {
			b.shown.Store(b.size.Load())
		}

		b.message = msg
		b.failed = failed
		b.done = true
		b.elapsed = time.Since(b.startedAt)

		b.p.mu.Unlock()

		b.p.render()
	})
}

func getWidth(w io.Writer) int {

	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}

	return 80
}

func formatElapsed(d time.Duration) string {

	s := int(d.Round(time.Second).Seconds())

	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

func truncate(s string, max int) string {

	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "~"
	}

	return s
}
