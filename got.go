package gotlist

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Got mirrors the files listed in a manifest.
type Got struct {

	// Http client shared by every download.
	Client *http.Client

	// Destination dir.
	Dir string

	// Concurrent downloads, DefaultWorkers() if 0.
	Workers int

	// Progress refresh interval.
	Interval time.Duration

	// Read buffer size of a download.
	BufferSize int

	// Progress display output, os.Stdout if nil.
	Output io.Writer

	Logger *log.Logger

	// Log skipped manifest entries.
	Verbose bool

	Metrics *Metrics

	ctx context.Context
}

// Mirror fetches the manifest at manifestURL and downloads every listed file.
// Only manifest failures are returned, per file failures are logged and
// reported in the Summary.
func (g *Got) Mirror(manifestURL string) (*Summary, error) {

	g.init()

	files, err := fetchManifest(g.ctx, g.Client, manifestURL, g.skip)

	if err != nil {
		return nil, err
	}

	if g.Dir != "" && g.Dir != "." {
		if err := os.MkdirAll(g.Dir, 0o755); err != nil {
			g.Logger.Printf("Creating dir %s failed: %v", g.Dir, err)
		}
	}

	pool := NewPool(g.Workers)
	pool.Logger = g.Logger
	defer pool.Close()

	prog := NewProgress(g.Output, g.Interval)

	summary := &Summary{
		ID:      uuid.NewString(),
		Workers: pool.Workers(),
	}

	g.Logger.Printf("Start downloading %d files with %d workers", len(files), pool.Workers())

	downloads := make([]*Download, len(files))

	for i, f := range files {
		downloads[i] = &Download{
			ctx:        g.ctx,
			File:       f,
			Dir:        g.Dir,
			Client:     g.Client,
			BufferSize: g.BufferSize,
			Bar:        prog.Register(f.Name, f.Size),
		}
	}

	// Downloads sharing a destination run one after another.
	locks := make(map[string]*sync.Mutex)

	for _, d := range downloads {

		d := d

		mu, ok := locks[d.Path()]

		if !ok {
			mu = new(sync.Mutex)
			locks[d.Path()] = mu
		}

		if err := pool.Submit(func() { g.run(d, mu) }); err != nil {
			d.Bar.Fail(err.Error())
		}
	}

	// Both must be done before the batch is.
	pool.Wait()
	prog.Wait()

	for _, d := range downloads {

		r := d.Result()

		if r.State == StateSucceeded {
			summary.Succeeded++
		} else {
			summary.Failed++
		}

		summary.Bytes += r.Bytes
		summary.Results = append(summary.Results, r)
	}

	g.Logger.Printf("Batch %s done: %s", summary.ID, summary)

	return summary, nil
}

// run executes one download while holding the lock of its destination
// and records its outcome.
func (g *Got) run(d *Download, mu *sync.Mutex) {

	mu.Lock()
	err := d.Start()
	mu.Unlock()

	g.Metrics.Observe(d.Result())

	if err != nil {
		g.Logger.Printf("Download file %s failed: %v", d.File.Name, err)
	}
}

func (g *Got) skip(index int, reason string) {

	if g.Verbose {
		g.Logger.Printf("Skipping manifest entry %d: %s", index, reason)
	}
}

func (g *Got) init() {

	if g.ctx == nil {
		g.ctx = context.Background()
	}

	if g.Client == nil {
		g.Client = DefaultClient
	}

	if g.Workers <= 0 {
		g.Workers = DefaultWorkers()
	}

	if g.Interval <= 0 {
		g.Interval = DefaultInterval
	}

	if g.BufferSize <= 0 {
		g.BufferSize = DefaultBufferSize
	}

	if g.Output == nil {
		g.Output = os.Stdout
	}

	if g.Logger == nil {
		g.Logger = log.New(os.Stderr, "[gotlist] ", log.LstdFlags)
	}

	if g.Metrics == nil {
		g.Metrics = NewMetrics(nil)
	}
}

// Context returns the context attached to every request.
func (g *Got) Context() context.Context {
	return g.ctx
}

// New returns new *Got with default context.
func New() *Got {
	return NewWithContext(context.Background())
}

// NewWithContext returns new *Got with the given context.
func NewWithContext(ctx context.Context) *Got {
	return &Got{
		ctx:    ctx,
		Client: DefaultClient,
	}
}

// NewFromConfig returns new *Got configured by cfg.
func NewFromConfig(ctx context.Context, cfg Config) *Got {

	g := NewWithContext(ctx)

	g.Dir = cfg.Dir
	g.Workers = cfg.Workers
	g.Interval = cfg.Interval
	g.BufferSize = cfg.BufferSize
	g.Verbose = cfg.Verbose

	if cfg.Timeout > 0 {
		g.Client = NewClient(cfg.Timeout)
	}

	if cfg.Quiet {
		g.Output = io.Discard
	}

	return g
}
