package opcua

import (
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/testutil"
)

func mustVariant(t *testing.T, v any) *ua.Variant {
	t.Helper()
	variant, err := ua.NewVariant(v)
	require.NoError(t, err)
	return variant
}

func TestVariantToUint(t *testing.T) {
	cases := []struct {
		in   any
		want uint64
		ok   bool
	}{
		{true, 1, true},
		{false, 0, true},
		{int32(33), 33, true},
		{int16(-1), 0, false},
		{uint64(0x8100), 0x8100, true},
		{float64(1.5), 0, false},
		{"start", 0, false},
	}
	for _, tc := range cases {
		got, ok := variantToUint(mustVariant(t, tc.in))
		assert.Equal(t, tc.ok, ok, "%T(%v)", tc.in, tc.in)
		assert.Equal(t, tc.want, got, "%T(%v)", tc.in, tc.in)
	}

	_, ok := variantToUint(nil)
	assert.False(t, ok)
}

func TestSourceTag(t *testing.T) {
	clock := testutil.NewManualClock(0)

	tag := sourceTag(NodeConfig{NodeID: "ns=2;s=Trigger"}, 0x8101, time.Time{}, clock)
	assert.Equal(t, domain.Tag{Identifier: 0x8101}, tag)

	src := clock.Epoch().Add(2 * time.Second)
	tag = sourceTag(NodeConfig{NodeID: "ns=2;s=Trigger", Identifier: 5}, 1, src, clock)
	assert.Equal(t, uint64(5), tag.Identifier)
	assert.Equal(t, domain.Time(2<<32), tag.Timestamp)
	assert.Equal(t, domain.FlagFPTime|domain.FlagAutostampClientSide, tag.Flags)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate())

	cfg = Config{Endpoint: "opc.tcp://localhost:4840", Nodes: []NodeConfig{{NodeID: "not a node"}}}
	assert.Error(t, cfg.Validate())

	cfg = Config{Endpoint: "opc.tcp://localhost:4840", Nodes: []NodeConfig{{NodeID: "ns=2;s=Trigger"}}}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "None", cfg.SecurityMode)
	assert.Equal(t, 100*time.Millisecond, cfg.PublishInterval)

	_, err := NewTriggerCollector(cfg, testutil.NewManualClock(0), testutil.NewRecordingObs())
	require.NoError(t, err)
}

func TestNormalizeSecurityMode(t *testing.T) {
	assert.Equal(t, "Sign", normalizeSecurityMode("sign"))
	assert.Equal(t, "SignAndEncrypt", normalizeSecurityMode("sign+encrypt"))
	assert.Equal(t, "None", normalizeSecurityMode(""))
}
