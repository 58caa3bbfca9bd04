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

var (
	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64
	rerunsTotal            atomic.Uint64
	streamsOpenedTotal     atomic.Uint64

	perKind = newKindCounters()

	analysisDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncAnalysisStarted increments the started counter for a kind.
func IncAnalysisStarted(kind string) {
	analysisStartedTotal.Add(1)
	perKind.inc("started", kind)
}

// IncAnalysisCompleted increments the completed counter for a kind.
func IncAnalysisCompleted(kind string) {
	analysisCompletedTotal.Add(1)
	perKind.inc("completed", kind)
}

// IncAnalysisFailed increments the failed counter for a kind.
func IncAnalysisFailed(kind string) {
	analysisFailedTotal.Add(1)
	perKind.inc("failed", kind)
}

// IncRerun increments the rerun counter.
func IncRerun() {
	rerunsTotal.Add(1)
}

// IncStreamOpened increments the progress-stream counter.
func IncStreamOpened() {
	streamsOpenedTotal.Add(1)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_started_total", "Total analyses started", analysisStartedTotal.Load())
	writeCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "analysis_failed_total", "Total analyses failed", analysisFailedTotal.Load())
	writeCounter(&buf, "analysis_reruns_total", "Total rerun requests accepted", rerunsTotal.Load())
	writeCounter(&buf, "analysis_streams_opened_total", "Total progress streams opened", streamsOpenedTotal.Load())
	perKind.write(&buf)
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type kindCounters struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newKindCounters() *kindCounters {
	return &kindCounters{counts: make(map[string]uint64)}
}

func (k *kindCounters) inc(outcome, kind string) {
	if kind == "" {
		return
	}
	k.mu.Lock()
	k.counts[outcome+"|"+kind]++
	k.mu.Unlock()
}

func (k *kindCounters) write(buf *bytes.Buffer) {
	k.mu.Lock()
	keys := make([]string, 0, len(k.counts))
	for key := range k.counts {
		keys = append(keys, key)
	}
	snapshot := make(map[string]uint64, len(k.counts))
	for key, v := range k.counts {
		snapshot[key] = v
	}
	k.mu.Unlock()

	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	fmt.Fprintf(buf, "# HELP analysis_kind_total Per-kind analysis outcomes\n")
	fmt.Fprintf(buf, "# TYPE analysis_kind_total counter\n")
	for _, key := range keys {
		parts := [2]string{}
		if idx := indexByte(key, '|'); idx >= 0 {
			parts[0] = key[:idx]
			parts[1] = key[idx+1:]
		}
		fmt.Fprintf(buf, "analysis_kind_total{outcome=%q,kind=%q} %d\n", parts[0], parts[1], snapshot[key])
	}
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
