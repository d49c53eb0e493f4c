package acquisition

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialplotter/serial"
)

type countingOpener struct {
	port   *serial.MockPort
	err    error
	opened atomic.Int32
}

func (o *countingOpener) open(Target) (serial.Port, error) {
	o.opened.Add(1)
	if o.err != nil {
		return nil, o.err
	}
	return o.port, nil
}

func newTestSession(o *countingOpener) *Session {
	cfg := DefaultConfig()
	cfg.Reader.IdleSleep = time.Millisecond
	return NewSession(cfg, o.open, testLogger())
}

var testTarget = Target{Device: "/dev/mock0", BaudRate: 115200}

func TestSessionStartRequiresTarget(t *testing.T) {
	s := newTestSession(&countingOpener{port: serial.NewMockPort("/dev/mock0")})

	err := s.Start(Target{})
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.Poll())
}

func TestSessionCollectsSamplesInOrder(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	port.FeedString("1\n2\n", "3\n", "4\n5\n")
	s := newTestSession(&countingOpener{port: port})

	require.NoError(t, s.Start(testTarget))
	defer s.Stop()

	var snap []Sample
	require.Eventually(t, func() bool {
		snap = s.Poll()
		return len(snap) == 5
	}, time.Second, 5*time.Millisecond)

	for i, sample := range snap {
		assert.Equal(t, float64(i+1), sample.Value)
		if i > 0 {
			assert.GreaterOrEqual(t, sample.Elapsed, snap[i-1].Elapsed)
		}
	}
	assert.EqualValues(t, 5, s.Status().SamplesReceived)
	assert.Equal(t, 5.0, s.Status().LastValue)
}

func TestSessionStartIsIdempotent(t *testing.T) {
	o := &countingOpener{port: serial.NewMockPort("/dev/mock0")}
	s := newTestSession(o)

	require.NoError(t, s.Start(testTarget))
	require.NoError(t, s.Start(Target{Device: "/dev/other"}))
	assert.True(t, s.IsRunning())
	assert.Equal(t, testTarget, s.Status().Target)

	require.Eventually(t, func() bool { return o.opened.Load() == 1 }, time.Second, time.Millisecond)
	s.Stop()
	assert.EqualValues(t, 1, o.opened.Load())
}

func TestSessionStopIsIdempotent(t *testing.T) {
	s := newTestSession(&countingOpener{port: serial.NewMockPort("/dev/mock0")})
	s.Stop()

	require.NoError(t, s.Start(testTarget))
	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestSessionStopReleasesConnection(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	port.SetReadDelay(20 * time.Millisecond)
	o := &countingOpener{port: port}
	s := newTestSession(o)

	require.NoError(t, s.Start(testTarget))
	require.Eventually(t, func() bool { return port.Reads() > 0 }, time.Second, time.Millisecond)

	start := time.Now()
	s.Stop()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, s.IsRunning())
	assert.False(t, port.IsOpen())
	assert.Equal(t, 1, port.Closes())
	assert.NoError(t, s.Err())
}

func TestSessionInvalidTarget(t *testing.T) {
	o := &countingOpener{err: errors.New("no such file or directory")}
	s := newTestSession(o)

	require.NoError(t, s.Start(Target{Device: "/dev/does-not-exist", BaudRate: 9600}))

	require.Eventually(t, func() bool {
		return len(s.Poll()) == 0 && !s.IsRunning()
	}, time.Second, 5*time.Millisecond)

	require.Error(t, s.Err())
	status := s.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Contains(t, status.LastError, "no such file")
	assert.EqualValues(t, 1, status.ProducerExits)

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestSessionStopAfterOpenFailureBeforePoll(t *testing.T) {
	o := &countingOpener{err: errors.New("permission denied")}
	s := newTestSession(o)

	require.NoError(t, s.Start(testTarget))
	s.Stop()

	assert.False(t, s.IsRunning())
	assert.Error(t, s.Err())
	assert.Empty(t, s.Poll())
}

func TestSessionKeepsSamplesWhenProducerDies(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	port.FeedString("7\n8\n")
	port.SetReadError(errors.New("device unplugged"))
	s := newTestSession(&countingOpener{port: port})

	require.NoError(t, s.Start(testTarget))

	var snap []Sample
	require.Eventually(t, func() bool {
		snap = s.Poll()
		return !s.IsRunning()
	}, time.Second, 5*time.Millisecond)

	require.Len(t, snap, 2)
	assert.Equal(t, 7.0, snap[0].Value)
	assert.Equal(t, 8.0, snap[1].Value)
	assert.ErrorContains(t, s.Err(), "device unplugged")
	assert.False(t, port.IsOpen())

	// A controller may restart right away.
	port.Reopen()
	port.SetReadError(nil)
	require.NoError(t, s.Start(testTarget))
	assert.True(t, s.IsRunning())
	assert.Empty(t, s.Poll())
	assert.NoError(t, s.Err())
	s.Stop()
}

func TestSessionWindowScenario(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	s := newTestSession(&countingOpener{port: port})

	base := time.Unix(1_700_000_000, 0)
	clock := base
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Start(testTarget))
	defer s.Stop()
	require.Equal(t, 10.0, s.WindowLength())

	var snap []Sample
	for i := 0; i <= 15; i++ {
		port.FeedString(fmt.Sprintf("%d\n", i))
		require.Eventually(t, func() bool { return s.rx.Len() == 1 }, time.Second, time.Millisecond)
		clock = base.Add(time.Duration(i) * time.Second)
		snap = s.Poll()
	}

	require.Len(t, snap, 11)
	for _, sample := range snap {
		assert.GreaterOrEqual(t, sample.Elapsed, 5.0)
		assert.LessOrEqual(t, sample.Elapsed, 15.0)
		assert.Equal(t, sample.Elapsed, sample.Value)
	}
}

func TestSessionSetWindowLengthClamps(t *testing.T) {
	s := newTestSession(&countingOpener{port: serial.NewMockPort("/dev/mock0")})

	assert.Equal(t, 4.0, s.SetWindowLength(1))
	assert.Equal(t, 4.0, s.WindowLength())
	assert.Equal(t, 100.0, s.SetWindowLength(1000))
	assert.Equal(t, 25.0, s.SetWindowLength(25))

	lo, hi := s.WindowBounds()
	assert.Equal(t, 4.0, lo)
	assert.Equal(t, 100.0, hi)
}

func TestSessionSetWindowLengthRetrimsImmediately(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	s := newTestSession(&countingOpener{port: port})
	s.SetWindowLength(100)

	base := time.Unix(0, 0)
	clock := base
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Start(testTarget))
	defer s.Stop()

	for i := 0; i <= 20; i++ {
		port.FeedString(fmt.Sprintf("%d\n", i))
		require.Eventually(t, func() bool { return s.rx.Len() == 1 }, time.Second, time.Millisecond)
		clock = base.Add(time.Duration(i) * time.Second)
		s.Poll()
	}
	require.Len(t, s.Poll(), 21)

	s.SetWindowLength(4)
	snap := s.Poll()
	require.Len(t, snap, 5)
	assert.Equal(t, 16.0, snap[0].Elapsed)
}

func TestSessionRestartClearsWindow(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	port.FeedString("1\n")
	s := newTestSession(&countingOpener{port: port})

	require.NoError(t, s.Start(testTarget))
	firstRun := s.Status().RunID
	require.NotEmpty(t, firstRun)
	require.Eventually(t, func() bool { return len(s.Poll()) == 1 }, time.Second, time.Millisecond)
	s.Stop()
	assert.Len(t, s.Poll(), 1)
	assert.Equal(t, firstRun, s.Status().RunID)

	port.Reopen()
	require.NoError(t, s.Start(testTarget))
	defer s.Stop()
	assert.Empty(t, s.Poll())
	assert.Zero(t, s.Status().SamplesReceived)
	assert.NotEqual(t, firstRun, s.Status().RunID)
}

func TestNewSessionNormalizesConfig(t *testing.T) {
	s := NewSession(Config{WindowLength: 500}, nil, testLogger())
	assert.Equal(t, 100.0, s.WindowLength())
	assert.Equal(t, DefaultFloor, s.window.Floor())

	lo, hi := s.WindowBounds()
	assert.Equal(t, DefaultMinWindowLength, lo)
	assert.Equal(t, DefaultMaxWindowLength, hi)
}

func TestSessionStatusJSONWithNonFiniteSamples(t *testing.T) {
	port := serial.NewMockPort("/dev/mock0")
	port.FeedString("inf\n1\nnan\n")
	s := newTestSession(&countingOpener{port: port})

	require.NoError(t, s.Start(testTarget))
	defer s.Stop()

	var snap []Sample
	require.Eventually(t, func() bool {
		snap = s.Poll()
		return len(snap) == 3
	}, time.Second, 5*time.Millisecond)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var samples []map[string]any
	require.NoError(t, json.Unmarshal(data, &samples))
	assert.Nil(t, samples[0]["v"])
	assert.Equal(t, 1.0, samples[1]["v"])
	assert.Nil(t, samples[2]["v"])

	data, err = json.Marshal(s.Status())
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Contains(t, status, "last_value")
	assert.Nil(t, status["last_value"])
	assert.Equal(t, "running", status["state"])
	assert.Equal(t, 3.0, status["samples_received"])
}
