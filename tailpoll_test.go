package txfeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTailPollThrottle_NoDelayWhenNoObservationYet(t *testing.T) {
	th := newTailPollThrottle(200 * time.Millisecond)
	require.Zero(t, th.delayFor("cp1", time.Now()))
}

func TestTailPollThrottle_NoDelayForDifferentCheckpoint(t *testing.T) {
	th := newTailPollThrottle(200 * time.Millisecond)
	now := time.Now()
	th.record("cp1", now)

	require.Zero(t, th.delayFor("cp2", now))
}

func TestTailPollThrottle_DelaysUntilIntervalElapsed(t *testing.T) {
	th := newTailPollThrottle(200 * time.Millisecond)
	now := time.Now()
	th.record("cp1", now)

	d := th.delayFor("cp1", now.Add(50*time.Millisecond))
	require.InDelta(t, (150 * time.Millisecond).Seconds(), d.Seconds(), 0.01)
}

func TestTailPollThrottle_NoDelayOnceIntervalElapsed(t *testing.T) {
	th := newTailPollThrottle(200 * time.Millisecond)
	now := time.Now()
	th.record("cp1", now)

	require.Zero(t, th.delayFor("cp1", now.Add(250*time.Millisecond)))
}

func TestTailPollThrottle_LaterObservationOverwrites(t *testing.T) {
	th := newTailPollThrottle(200 * time.Millisecond)
	now := time.Now()
	th.record("cp1", now)
	th.record("cp2", now)

	require.Zero(t, th.delayFor("cp1", now))
	require.Greater(t, th.delayFor("cp2", now).Nanoseconds(), int64(0))
}
