package domain

// StimulationIncorrect is the GDF "incorrect" event code. It is emitted in front
// of a stimulation whose date had to be corrected, with the correction carried
// in its duration.
const StimulationIncorrect uint64 = 0x382

// Stimulation is one entry of the synchronized output stream, dated on the
// sample-time axis.
type Stimulation struct {
	Identifier uint64 `json:"id"`
	Date       Time   `json:"date"`
	Duration   Time   `json:"duration"`
}

// StimulationSet is an ordered batch of stimulations produced by one
// acquisition iteration.
type StimulationSet []Stimulation

// Append adds a stimulation to the end of the set.
func (s *StimulationSet) Append(id uint64, date, duration Time) {
	*s = append(*s, Stimulation{Identifier: id, Date: date, Duration: duration})
}

// Event is an emitted stimulation as it is journaled and published downstream.
// Seq is the journal entry id and, together with RunID, identifies the event.
type Event struct {
	RunID string `json:"run_id"`
	Seq   uint64 `json:"seq"`
	Stimulation
}
