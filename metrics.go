package gotlist

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rcrowley/go-metrics"
)

// Metrics counts batch outcomes in a go-metrics registry.
type Metrics struct {
	Registry metrics.Registry

	succeeded metrics.Counter
	failed    metrics.Counter
	bytes     metrics.Counter
	duration  metrics.Timer
}

// NewMetrics registers the batch metrics in registry, a new one if nil.
func NewMetrics(registry metrics.Registry) *Metrics {

	if registry == nil {
		registry = metrics.NewRegistry()
	}

	return &Metrics{
		Registry:  registry,
		succeeded: metrics.GetOrRegisterCounter("files.succeeded", registry),
		failed:    metrics.GetOrRegisterCounter("files.failed", registry),
		bytes:     metrics.GetOrRegisterCounter("bytes.downloaded", registry),
		duration:  metrics.GetOrRegisterTimer("file.duration", registry),
	}
}

// Observe records a finished download.
func (m *Metrics) Observe(r Result) {

	if r.State == StateSucceeded {
		m.succeeded.Inc(1)
	} else {
		m.failed.Inc(1)
	}

	m.bytes.Inc(int64(r.Bytes))
	m.duration.Update(r.Elapsed)
}

func (m *Metrics) Succeeded() int64 {
	return m.succeeded.Count()
}

func (m *Metrics) Failed() int64 {
	return m.failed.Count()
}

func (m *Metrics) Bytes() int64 {
	return m.bytes.Count()
}

// String returns a one line tally of every observed download.
func (m *Metrics) String() string {
	return tally(m.Succeeded(), m.Failed(), uint64(m.Bytes()))
}

// String returns a one line tally of the batch.
func (s *Summary) String() string {
	return tally(int64(s.Succeeded), int64(s.Failed), s.Bytes)
}

func tally(succeeded, failed int64, bytes uint64) string {
	return fmt.Sprintf("%d succeeded, %d failed, %s downloaded", succeeded, failed, humanize.Bytes(bytes))
}
