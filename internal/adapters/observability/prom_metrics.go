package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the tagging metrics on reg and logs through logger.
func NewPromObs(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if logger == nil {
		logger = slog.Default()
	}

	newCounter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	newGauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	counters := map[string]prometheus.Counter{
		"tagsync_tags_received_total":        newCounter("tagsync_tags_received_total", "Tags decoded from tagging connections."),
		"tagsync_stamp_replaced_total":       newCounter("tagsync_stamp_replaced_total", "Client timestamps replaced because they were not fixed-point time."),
		"tagsync_connections_total":          newCounter("tagsync_connections_total", "Tagging connections accepted."),
		"tagsync_stimulations_emitted_total": newCounter("tagsync_stimulations_emitted_total", "Stimulations emitted by the synchronizer, late markers excluded."),
		"tagsync_late_markers_total":         newCounter("tagsync_late_markers_total", "Late markers emitted for corrected tag dates."),
		"tagsync_output_dropped_total":       newCounter("tagsync_output_dropped_total", "Events lost to output queue or journal backpressure."),
		"tagsync_stimulations_written_total": newCounter("tagsync_stimulations_written_total", "Events accepted by the sink."),
		"tagsync_collector_tags_total":       newCounter("tagsync_collector_tags_total", "Tags received from auxiliary collectors."),
	}
	gauges := map[string]prometheus.Gauge{
		"tagsync_sessions_active":     newGauge("tagsync_sessions_active", "Open tagging connections."),
		"tagsync_tag_queue_length":    newGauge("tagsync_tag_queue_length", "Tags waiting for the next acquisition iteration."),
		"tagsync_output_queue_length": newGauge("tagsync_output_queue_length", "Events buffered ahead of the sink."),
		"tagsync_journal_size_bytes":  newGauge("tagsync_journal_size_bytes", "Size of the stimulation journal on disk."),
	}
	delay := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tagsync_tag_delay_seconds",
		Help:    "Correction applied to late or out-of-order tags.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tagsync_sink_latency_seconds",
		Help:    "Time to write one batch to the sink.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	for _, c := range counters {
		reg.MustRegister(c)
	}
	for _, g := range gauges {
		reg.MustRegister(g)
	}
	reg.MustRegister(delay, sinkLatency)

	return &PromObs{
		logger:   logger,
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			"tagsync_tag_delay_seconds":    delay,
			"tagsync_sink_latency_seconds": sinkLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.logger.Warn(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Error(msg, append(attrs(fields), "error", err)...)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Error(msg, append(attrs(fields), "error", err, "critical", true)...)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordLate(marker domain.Stimulation) {
	p.IncCounter("tagsync_late_markers_total", 1)
	p.ObserveLatency("tagsync_tag_delay_seconds", marker.Duration.Seconds())
	p.logger.Debug("late_tag_corrected",
		"date", uint64(marker.Date),
		"delay_seconds", marker.Duration.Seconds())
}

func attrs(fields []ports.Field) []any {
	if len(fields) == 0 {
		return nil
	}
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
