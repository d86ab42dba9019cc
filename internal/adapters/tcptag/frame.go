package tcptag

import (
	"encoding/binary"

	"github.com/ghalamif/TagSync/internal/domain"
)

// FrameSize is the size in bytes of one tag on the wire.
const FrameSize = 24

// DefaultPort is the conventional TCP tagging port.
const DefaultPort = 15361

// EncodeFrame serializes a tag into its wire representation.
func EncodeFrame(t domain.Tag) [FrameSize]byte {
	var b [FrameSize]byte
	binary.LittleEndian.PutUint64(b[0:8], uint64(t.Flags))
	binary.LittleEndian.PutUint64(b[8:16], t.Identifier)
	binary.LittleEndian.PutUint64(b[16:24], uint64(t.Timestamp))
	return b
}

// DecodeFrame parses one wire frame. With ignoreFlags the first field is
// treated as padding and the returned flags are zero.
func DecodeFrame(b *[FrameSize]byte, ignoreFlags bool) domain.Tag {
	t := domain.Tag{
		Identifier: binary.LittleEndian.Uint64(b[8:16]),
		Timestamp:  domain.Time(binary.LittleEndian.Uint64(b[16:24])),
	}
	if !ignoreFlags {
		t.Flags = domain.TagFlags(binary.LittleEndian.Uint64(b[0:8]))
	}
	return t
}
