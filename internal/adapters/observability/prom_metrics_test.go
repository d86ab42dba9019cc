package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "text")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	obs := NewPromObs(reg, logger)

	obs.IncCounter("tagsync_tags_received_total", 5)
	if got := testutil.ToFloat64(obs.counters["tagsync_tags_received_total"]); got != 5 {
		t.Fatalf("expected received counter 5, got %f", got)
	}

	obs.IncCounter("tagsync_output_dropped_total", 2)
	if got := testutil.ToFloat64(obs.counters["tagsync_output_dropped_total"]); got != 2 {
		t.Fatalf("expected drop counter 2, got %f", got)
	}

	obs.IncCounter("not_a_metric", 1)

	obs.SetGauge("tagsync_journal_size_bytes", 42)
	if got := testutil.ToFloat64(obs.gauges["tagsync_journal_size_bytes"]); got != 42 {
		t.Fatalf("expected journal gauge 42, got %f", got)
	}

	obs.ObserveLatency("tagsync_sink_latency_seconds", 0.5)
	hCollector := obs.histos["tagsync_sink_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.RecordLate(domain.Stimulation{Identifier: domain.StimulationIncorrect, Date: 1 << 32, Duration: 1 << 31})
	if got := testutil.ToFloat64(obs.counters["tagsync_late_markers_total"]); got != 1 {
		t.Fatalf("expected late counter 1, got %f", got)
	}
	if !strings.Contains(buf.String(), "late_tag_corrected") {
		t.Fatalf("expected debug log for late tag, got %q", buf.String())
	}
}

func TestPromObsLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info", "json")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	obs := NewPromObs(prometheus.NewRegistry(), logger)

	obs.LogWarn("tag_timestamp_not_fixed_point", ports.Field{Key: "session", Value: 3})
	obs.LogError("sink_write_failed", errors.New("boom"))
	obs.LogError("ignored", nil)

	out := buf.String()
	for _, want := range []string{`"msg":"tag_timestamp_not_fixed_point"`, `"session":3`, `"error":"boom"`, `"component":"tagsync"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output %q", want, out)
		}
	}
	if strings.Contains(out, "ignored") {
		t.Fatalf("nil errors must not be logged")
	}
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	if _, err := NewLogger(&bytes.Buffer{}, "loud", "text"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := NewLogger(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
