package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

type counter struct {
	name  string
	help  string
	value atomic.Uint64
}

func (c *counter) inc() { c.value.Add(1) }

var (
	resumeIngested         = &counter{name: "resume_ingested_total", help: "Résumé uploads extracted to text"}
	resumeRejected         = &counter{name: "resume_rejected_total", help: "Résumé uploads with an unsupported type"}
	resumeExtractionFailed = &counter{name: "resume_extraction_failed_total", help: "Résumé uploads whose text could not be extracted"}
	generationStarted      = &counter{name: "generation_started_total", help: "Cover letter requests sent"}
	generationCompleted    = &counter{name: "generation_completed_total", help: "Cover letter requests answered"}
	generationFailed       = &counter{name: "generation_failed_total", help: "Cover letter requests that failed"}

	// Render order.
	counters = []*counter{
		resumeIngested, resumeRejected, resumeExtractionFailed,
		generationStarted, generationCompleted, generationFailed,
	}

	generationDuration = newHistogram("generation_duration_ms", "Cover letter request duration in milliseconds",
		[]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

func IncResumeIngested()         { resumeIngested.inc() }
func IncResumeRejected()         { resumeRejected.inc() }
func IncResumeExtractionFailed() { resumeExtractionFailed.inc() }
func IncGenerationStarted()      { generationStarted.inc() }
func IncGenerationCompleted()    { generationCompleted.inc() }
func IncGenerationFailed()       { generationFailed.inc() }

// ObserveGenerationDuration records the wall time of one outbound request.
func ObserveGenerationDuration(d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	if ms < 0 {
		ms = 0
	}
	generationDuration.observe(ms)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4", []byte(Render()))
	}
}

// Render writes every metric in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	for _, c := range counters {
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.value.Load())
	}
	generationDuration.write(&buf)
	return buf.String()
}

// histogram keeps per-bucket counts; write accumulates them into le buckets.
type histogram struct {
	name   string
	help   string
	bounds []float64

	mu     sync.Mutex
	counts []uint64 // len(bounds)+1, last is the overflow bucket
	sum    float64
}

func newHistogram(name, help string, bounds []float64) *histogram {
	return &histogram{
		name:   name,
		help:   help,
		bounds: bounds,
		counts: make([]uint64, len(bounds)+1),
	}
}

func (h *histogram) observe(v float64) {
	i := sort.SearchFloat64s(h.bounds, v)
	h.mu.Lock()
	h.counts[i]++
	h.sum += v
	h.mu.Unlock()
}

func (h *histogram) write(buf *bytes.Buffer) {
	h.mu.Lock()
	counts := append([]uint64(nil), h.counts...)
	sum := h.sum
	h.mu.Unlock()

	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
	var total uint64
	for i, n := range counts {
		total += n
		le := "+Inf"
		if i < len(h.bounds) {
			le = formatFloat(h.bounds[i])
		}
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", h.name, le, total)
	}
	fmt.Fprintf(buf, "%s_sum %s\n%s_count %d\n", h.name, formatFloat(sum), h.name, total)
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
