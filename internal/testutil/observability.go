package testutil

import (
	"sync"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// RecordingObs captures everything reported through ports.Observability.
type RecordingObs struct {
	mu       sync.Mutex
	Infos    []string
	Warnings []string
	Errors   []error
	Counters map[string]float64
	Gauges   map[string]float64
	Late     []domain.Stimulation
}

func NewRecordingObs() *RecordingObs {
	return &RecordingObs{
		Counters: make(map[string]float64),
		Gauges:   make(map[string]float64),
	}
}

func (o *RecordingObs) LogInfo(msg string, _ ...ports.Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Infos = append(o.Infos, msg)
}

func (o *RecordingObs) LogWarn(msg string, _ ...ports.Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Warnings = append(o.Warnings, msg)
}

func (o *RecordingObs) LogError(_ string, err error, _ ...ports.Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Errors = append(o.Errors, err)
}

func (o *RecordingObs) LogCritical(_ string, err error, _ ...ports.Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Errors = append(o.Errors, err)
}

func (o *RecordingObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Counters[name] += v
}

func (o *RecordingObs) ObserveLatency(string, float64) {}

func (o *RecordingObs) SetGauge(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Gauges[name] = v
}

func (o *RecordingObs) RecordLate(marker domain.Stimulation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Late = append(o.Late, marker)
}

// Counter returns the current value of a counter.
func (o *RecordingObs) Counter(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Counters[name]
}

// Gauge returns the last value set for a gauge.
func (o *RecordingObs) Gauge(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Gauges[name]
}

// WarningCount returns how many warnings were logged with msg.
func (o *RecordingObs) WarningCount(msg string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, w := range o.Warnings {
		if w == msg {
			n++
		}
	}
	return n
}

// ErrorCount returns the number of logged errors.
func (o *RecordingObs) ErrorCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Errors)
}

var _ ports.Observability = (*RecordingObs)(nil)
