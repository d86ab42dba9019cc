package tagsync

import (
	"github.com/ghalamif/TagSync/internal/adapters/sink"
	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Time is 32.32 fixed-point seconds, used for clock and sample time alike.
type Time = domain.Time

// Tag is one event received from a tagging client or a collector.
type Tag = domain.Tag

// TagFlags qualifies a tag timestamp.
type TagFlags = domain.TagFlags

const (
	FlagFPTime              = domain.FlagFPTime
	FlagAutostampClientSide = domain.FlagAutostampClientSide
	FlagAutostampServerSide = domain.FlagAutostampServerSide
)

// StimulationIncorrect is the default late marker identifier.
const StimulationIncorrect = domain.StimulationIncorrect

// Stimulation is one synchronized output entry dated on the sample axis.
type Stimulation = domain.Stimulation

// StimulationSet is the output of one acquisition iteration.
type StimulationSet = domain.StimulationSet

// Event is a stimulation as journaled and handed to sinks.
type Event = domain.Event

// QueuedEvent represents an item buffered inside the bounded output queue.
type QueuedEvent = ports.QueuedEvent

// TagCollector feeds tags from sources other than the TCP server (OPC UA, simulators, etc.).
type TagCollector = ports.TagCollector

// EventQueue is the bounded, in-memory queue between the acquisition loop and the sinks.
type EventQueue = ports.EventQueue

// Sink consumes batches of events and persists them to any downstream system.
type Sink = ports.Sink

// Clock produces the wall-clock side of synchronization.
type Clock = ports.Clock

// Observability emits metrics/logs about tags, corrections and sink throughput.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// Journal abstracts the append-only record used for durability and replay.
type Journal = ports.Journal

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// Publisher is the part of *nats.Conn the NATS sink needs.
type Publisher = sink.Publisher

// EntryID uniquely identifies a journal entry.
type EntryID = ports.EntryID

// SecondsToTime converts floating-point seconds to fixed point.
func SecondsToTime(s float64) Time { return domain.SecondsToTime(s) }

// SamplesToTime returns the time spanned by count samples at rate.
func SamplesToTime(count uint64, rate uint32) Time { return domain.SamplesToTime(count, rate) }
