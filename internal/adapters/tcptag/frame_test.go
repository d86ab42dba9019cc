package tcptag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghalamif/TagSync/internal/domain"
)

func TestFrameLayout(t *testing.T) {
	tag := domain.Tag{
		Flags:      domain.FlagFPTime | domain.FlagAutostampClientSide,
		Identifier: 0x8100,
		Timestamp:  domain.Time(0x0000000100000002),
	}
	b := EncodeFrame(tag)

	assert.Equal(t, byte(0x03), b[0])
	assert.Equal(t, []byte{0x00, 0x81, 0, 0, 0, 0, 0, 0}, b[8:16])
	assert.Equal(t, []byte{0x02, 0, 0, 0, 0x01, 0, 0, 0}, b[16:24])

	assert.Equal(t, tag, DecodeFrame(&b, false))

	legacy := DecodeFrame(&b, true)
	assert.Equal(t, domain.TagFlags(0), legacy.Flags)
	assert.Equal(t, tag.Identifier, legacy.Identifier)
	assert.Equal(t, tag.Timestamp, legacy.Timestamp)
}

func TestConfigAddress(t *testing.T) {
	assert.Equal(t, "0.0.0.0:15361", Config{Port: DefaultPort}.Address())
	assert.Equal(t, "127.0.0.1:0", Config{Bind: "127.0.0.1"}.Address())
}
