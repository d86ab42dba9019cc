package tcptag

import (
	"errors"
	"net"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/testutil"
)

func newTestStream(t *testing.T, clock *testutil.ManualClock, obs *testutil.RecordingObs) *Stream {
	t.Helper()
	s, err := NewStream(Config{Bind: "127.0.0.1"}, clock, obs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dialStream(t *testing.T, s *Stream) *Client {
	t.Helper()
	c, err := Dial(s.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitForTags(t *testing.T, s *Stream, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Len() >= n }, 2*time.Second, time.Millisecond)
}

func TestStreamStampsZeroTimestampOnReceipt(t *testing.T) {
	clock := testutil.NewManualClock(1 << 31)
	obs := testutil.NewRecordingObs()
	s := newTestStream(t, clock, obs)
	c := dialStream(t, s)

	require.NoError(t, c.Send(5))
	waitForTags(t, s, 1)

	tag, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint64(5), tag.Identifier)
	assert.Equal(t, domain.Time(1<<31), tag.Timestamp)

	_, ok = s.Pop()
	assert.False(t, ok)
	assert.Equal(t, float64(1), obs.Counter("tagsync_tags_received_total"))
}

func TestStreamStampsWhenFrameCompletes(t *testing.T) {
	clock := testutil.NewManualClock(10 << 32)
	s := newTestStream(t, clock, testutil.NewRecordingObs())
	c := dialStream(t, s)

	frame := EncodeFrame(domain.Tag{Identifier: 7})
	_, err := c.Write(frame[:10])
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, s.Len(), "partial frame must not produce a tag")

	clock.Set(11 << 32)
	_, err = c.Write(frame[10:])
	require.NoError(t, err)
	waitForTags(t, s, 1)

	tag, _ := s.Pop()
	assert.Equal(t, domain.Time(11<<32), tag.Timestamp)
}

func TestStreamKeepsFixedPointClientTime(t *testing.T) {
	clock := testutil.NewManualClock(100 << 32)
	s := newTestStream(t, clock, testutil.NewRecordingObs())
	c := dialStream(t, s)

	require.NoError(t, c.SendTag(domain.Tag{Flags: domain.FlagFPTime, Identifier: 3, Timestamp: 99 << 32}))
	require.NoError(t, c.SendTag(domain.Tag{Flags: domain.FlagFPTime | domain.FlagAutostampServerSide, Identifier: 4, Timestamp: 98 << 32}))
	waitForTags(t, s, 2)

	first, _ := s.Pop()
	second, _ := s.Pop()
	assert.Equal(t, domain.Time(99<<32), first.Timestamp)
	assert.Equal(t, domain.Time(100<<32), second.Timestamp, "server autostamp overrides client time")
}

func TestStreamWarnsOnceForNonFixedPointTime(t *testing.T) {
	clock := testutil.NewManualClock(50 << 32)
	obs := testutil.NewRecordingObs()
	s := newTestStream(t, clock, obs)
	c := dialStream(t, s)

	require.NoError(t, c.SendTag(domain.Tag{Identifier: 1, Timestamp: 12345}))
	require.NoError(t, c.SendTag(domain.Tag{Identifier: 2, Timestamp: 67890}))
	waitForTags(t, s, 2)

	for i := 0; i < 2; i++ {
		tag, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, domain.Time(50<<32), tag.Timestamp)
	}
	assert.Equal(t, 1, obs.WarningCount("tag_timestamp_not_fixed_point"))
	assert.Equal(t, float64(2), obs.Counter("tagsync_stamp_replaced_total"))
}

func TestStreamIgnoreFlagsTreatsFirstFieldAsPadding(t *testing.T) {
	clock := testutil.NewManualClock(8 << 32)
	s, err := NewStream(Config{Bind: "127.0.0.1", IgnoreFlags: true}, clock, testutil.NewRecordingObs())
	require.NoError(t, err)
	defer s.Close()
	c := dialStream(t, s)

	require.NoError(t, c.SendTag(domain.Tag{Flags: domain.FlagFPTime, Identifier: 1, Timestamp: 3 << 32}))
	waitForTags(t, s, 1)

	tag, _ := s.Pop()
	assert.Equal(t, domain.TagFlags(0), tag.Flags)
	assert.Equal(t, domain.Time(8<<32), tag.Timestamp)
}

func TestStreamPreservesArrivalOrder(t *testing.T) {
	clock := testutil.NewManualClock(1 << 32)
	s := newTestStream(t, clock, testutil.NewRecordingObs())
	c := dialStream(t, s)

	for i := uint64(1); i <= 100; i++ {
		require.NoError(t, c.Send(i))
	}
	waitForTags(t, s, 100)

	for i := uint64(1); i <= 100; i++ {
		tag, ok := s.Pop()
		require.True(t, ok)
		require.Equal(t, i, tag.Identifier)
	}
}

func TestStreamBindIsExclusive(t *testing.T) {
	clock := testutil.NewManualClock(0)
	obs := testutil.NewRecordingObs()

	first := newTestStream(t, clock, obs)
	port := first.Addr().(*net.TCPAddr).Port

	second, err := NewStream(Config{Bind: "127.0.0.1", Port: port}, clock, obs)
	require.Error(t, err)
	assert.Nil(t, second)
	assert.True(t, errors.Is(err, ErrBind))
	if runtime.GOOS != "windows" {
		assert.True(t, errors.Is(err, syscall.EADDRINUSE), "got %v", err)
	}

	other := newTestStream(t, clock, obs)
	assert.NotEqual(t, port, other.Addr().(*net.TCPAddr).Port)
}

func TestServerSweepsClosedSessions(t *testing.T) {
	s := newTestStream(t, testutil.NewManualClock(0), testutil.NewRecordingObs())

	c, err := Dial(s.Addr().String(), time.Second)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Sessions() == 1 }, 2*time.Second, time.Millisecond)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return s.Sessions() == 0 }, 2*time.Second, time.Millisecond)
}

func TestSessionsGaugeFollowsDisconnects(t *testing.T) {
	obs := testutil.NewRecordingObs()
	s := newTestStream(t, testutil.NewManualClock(0), obs)

	c, err := Dial(s.Addr().String(), time.Second)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return obs.Gauge("tagsync_sessions_active") == 1 }, 2*time.Second, time.Millisecond)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return obs.Gauge("tagsync_sessions_active") == 0 }, 2*time.Second, time.Millisecond)
}

func TestStreamCloseJoinsAndIsIdempotent(t *testing.T) {
	obs := testutil.NewRecordingObs()
	s, err := NewStream(Config{Bind: "127.0.0.1"}, testutil.NewManualClock(0), obs)
	require.NoError(t, err)
	addr := s.Addr().String()

	c, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer c.Close()
	require.Eventually(t, func() bool { return s.Sessions() == 1 }, 2*time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close did not return")
	}
	require.NoError(t, s.Close())

	_, err = Dial(addr, 200*time.Millisecond)
	assert.Error(t, err)

	s.Inject(domain.Tag{Identifier: 9})
	tag, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint64(9), tag.Identifier)
	assert.Zero(t, obs.ErrorCount())
}
