package pipeline

import (
	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Synchronizer maps tag timestamps taken on the host wall clock onto the
// acquisition sample-time axis. It is owned by the acquisition goroutine and
// is not safe for concurrent use.
//
// Between two invocations the wall clock advanced from previousClockTime to
// clockTime while the acquired signal advanced from previousSampleTime to
// sampleTime; a tag is placed on the sample axis by linear interpolation
// between those two anchors. Dates emitted over a run never decrease. Every
// correction is announced by a late marker carrying the correction as its
// duration, immediately before the corrected stimulation.
type Synchronizer struct {
	source     ports.TagSource
	clock      ports.Clock
	obs        ports.Observability
	lateMarker uint64

	previousClockTime   domain.Time
	previousSampleTime  domain.Time
	lastTagTime         domain.Time
	lastTagTimeAdjusted domain.Time
}

type SynchronizerOption func(*Synchronizer)

// WithLateMarker overrides the identifier of the late marker stimulation.
func WithLateMarker(id uint64) SynchronizerOption {
	return func(s *Synchronizer) { s.lateMarker = id }
}

func NewSynchronizer(source ports.TagSource, clock ports.Clock, obs ports.Observability, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		source:     source,
		clock:      clock,
		obs:        obs,
		lateMarker: domain.StimulationIncorrect,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resets the state for a new run and anchors the clock axis at now.
func (s *Synchronizer) Start() {
	s.previousClockTime = s.clock.Now()
	s.previousSampleTime = 0
	s.lastTagTime = 0
	s.lastTagTimeAdjusted = 0
}

// OnLoop reads the clock and synchronizes every pending tag against
// sampleTime, the date of the newest sample processed.
func (s *Synchronizer) OnLoop(out *domain.StimulationSet, sampleTime domain.Time) int {
	return s.Synchronize(out, s.clock.Now(), sampleTime)
}

// Synchronize drains the tag source and appends the resulting stimulations to
// out. It returns the number of real stimulations, late markers excluded.
func (s *Synchronizer) Synchronize(out *domain.StimulationSet, clockTime, sampleTime domain.Time) int {
	n := 0
	for {
		tag, ok := s.source.Pop()
		if !ok {
			break
		}
		s.place(out, tag, clockTime, sampleTime)
		n++
	}

	s.previousClockTime = clockTime
	s.previousSampleTime = sampleTime
	return n
}

func (s *Synchronizer) place(out *domain.StimulationSet, tag domain.Tag, clockTime, sampleTime domain.Time) {
	tagTime := tag.Timestamp

	// A tag older than the current interval is moved to its start; a tag
	// older than one already seen is moved up to that one.
	stamp := tagTime
	if stamp < s.previousClockTime {
		stamp = s.previousClockTime
	}
	if stamp < s.lastTagTime {
		stamp = s.lastTagTime
	}
	s.lastTagTime = tagTime
	delay := stamp - tagTime

	adjusted := s.previousSampleTime + s.interpolate(stamp, clockTime, sampleTime)
	if adjusted < s.lastTagTimeAdjusted {
		delay += s.lastTagTimeAdjusted - adjusted
		adjusted = s.lastTagTimeAdjusted
	}
	s.lastTagTimeAdjusted = adjusted

	if delay > 0 {
		marker := domain.Stimulation{Identifier: s.lateMarker, Date: adjusted, Duration: delay}
		out.Append(marker.Identifier, marker.Date, marker.Duration)
		s.obs.RecordLate(marker)
	}
	out.Append(tag.Identifier, adjusted, 0)
}

// interpolate returns the sample-axis offset of stamp from the start of the
// current interval.
func (s *Synchronizer) interpolate(stamp, clockTime, sampleTime domain.Time) domain.Time {
	if clockTime <= s.previousClockTime || sampleTime <= s.previousSampleTime {
		return 0
	}
	elapsedClock := (clockTime - s.previousClockTime).Seconds()
	elapsedSample := (sampleTime - s.previousSampleTime).Seconds()
	tagOffset := (stamp - s.previousClockTime).Seconds()

	return domain.SecondsToTime(tagOffset * (elapsedSample / elapsedClock))
}
