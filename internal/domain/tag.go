package domain

// TagFlags qualifies how a tag's timestamp must be interpreted.
type TagFlags uint64

const (
	// FlagFPTime marks the timestamp as valid 32.32 fixed-point time.
	FlagFPTime TagFlags = 1 << iota
	// FlagAutostampClientSide is informational: the client stamped the tag itself.
	FlagAutostampClientSide
	// FlagAutostampServerSide forces the receiver to stamp the tag on receipt.
	FlagAutostampServerSide
)

// Tag is one stimulation event received from an external producer.
type Tag struct {
	Flags      TagFlags
	Identifier uint64
	Timestamp  Time
}

// Resolve applies the receipt timestamp policy. now is the wall-clock time at
// which the tag was fully received. The second return value reports a client
// timestamp that is not fixed-point time and was replaced.
func (t Tag) Resolve(now Time) (Tag, bool) {
	switch {
	case t.Timestamp == 0 || t.Flags&FlagAutostampServerSide != 0:
		t.Timestamp = now
		return t, false
	case t.Flags&FlagFPTime == 0:
		t.Timestamp = now
		return t, true
	default:
		return t, false
	}
}
