package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ughealth/healthguide/internal/speech"
)

// PlayerState represents the current state of a player.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePlaying
	StateClosed
)

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnStart func(audio []byte)
	OnStop  func()
}

// MockPlayer implements speech.Sink without producing sound. Playback lasts
// as long as the PCM data would at 44.1kHz 16-bit mono, scaled by the delay
// factor.
type MockPlayer struct {
	callbacks MockCallbacks

	mu          sync.Mutex
	state       PlayerState
	audio       []byte
	stopCh      chan struct{}
	delayFactor float64
	startErr    error
	playbackErr error

	startCount atomic.Int64
	stopCount  atomic.Int64
	wg         sync.WaitGroup
}

// DefaultMockPlayer creates a mock player with default settings.
func DefaultMockPlayer() *MockPlayer {
	return &MockPlayer{delayFactor: 1.0}
}

// NewMockPlayer creates a mock player with custom callbacks.
func NewMockPlayer(callbacks MockCallbacks) *MockPlayer {
	mp := DefaultMockPlayer()
	mp.callbacks = callbacks
	return mp
}

// SetDelayFactor scales simulated playback time. Zero ends playback
// immediately.
func (mp *MockPlayer) SetDelayFactor(f float64) {
	mp.mu.Lock()
	mp.delayFactor = f
	mp.mu.Unlock()
}

// FailStart makes the next Start calls return err.
func (mp *MockPlayer) FailStart(err error) {
	mp.mu.Lock()
	mp.startErr = err
	mp.mu.Unlock()
}

// FailPlayback makes subsequent sessions end with err instead of OnEnd.
func (mp *MockPlayer) FailPlayback(err error) {
	mp.mu.Lock()
	mp.playbackErr = err
	mp.mu.Unlock()
}

// Start begins a simulated session, replacing the current one.
func (mp *MockPlayer) Start(audio []byte, ev speech.Events) error {
	mp.mu.Lock()

	if mp.state == StateClosed {
		mp.mu.Unlock()
		return errors.New("player is closed")
	}
	if mp.startErr != nil {
		err := mp.startErr
		mp.mu.Unlock()
		return err
	}
	if len(audio) == 0 {
		mp.mu.Unlock()
		return errors.New("audio data is empty")
	}

	mp.stopLocked()

	mp.audio = make([]byte, len(audio))
	copy(mp.audio, audio)
	mp.state = StatePlaying
	mp.startCount.Add(1)

	stopCh := make(chan struct{})
	mp.stopCh = stopCh
	duration := time.Duration(float64(len(audio)/2) * float64(time.Second) / 44100 * mp.delayFactor)
	playbackErr := mp.playbackErr

	mp.wg.Add(1)
	go mp.simulate(stopCh, duration, playbackErr, ev)
	mp.mu.Unlock()

	if mp.callbacks.OnStart != nil {
		mp.callbacks.OnStart(audio)
	}
	if ev.OnStart != nil {
		ev.OnStart()
	}
	return nil
}

func (mp *MockPlayer) simulate(stopCh chan struct{}, d time.Duration, playbackErr error, ev speech.Events) {
	defer mp.wg.Done()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stopCh:
		return
	case <-timer.C:
	}

	mp.mu.Lock()
	if mp.stopCh != stopCh {
		mp.mu.Unlock()
		return
	}
	mp.stopCh = nil
	mp.state = StateStopped
	mp.mu.Unlock()

	if playbackErr != nil {
		if ev.OnError != nil {
			ev.OnError(playbackErr)
		}
		return
	}
	if ev.OnEnd != nil {
		ev.OnEnd()
	}
}

// Stop ends the current session without firing OnEnd.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	stopped := mp.stopLocked()
	mp.mu.Unlock()

	if stopped && mp.callbacks.OnStop != nil {
		mp.callbacks.OnStop()
	}
	return nil
}

func (mp *MockPlayer) stopLocked() bool {
	if mp.stopCh == nil {
		return false
	}
	close(mp.stopCh)
	mp.stopCh = nil
	if mp.state == StatePlaying {
		mp.state = StateStopped
	}
	mp.stopCount.Add(1)
	return true
}

// Close stops playback and waits for the simulation goroutine.
func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	mp.stopLocked()
	mp.state = StateClosed
	mp.mu.Unlock()
	mp.wg.Wait()
	return nil
}

// IsPlaying reports whether a session is active.
func (mp *MockPlayer) IsPlaying() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state == StatePlaying
}

// State returns the current state.
func (mp *MockPlayer) State() PlayerState {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state
}

// LastAudio returns the audio of the most recent session.
func (mp *MockPlayer) LastAudio() []byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.audio
}

// StartCount returns how many sessions were started.
func (mp *MockPlayer) StartCount() int64 { return mp.startCount.Load() }

// StopCount returns how many active sessions were stopped.
func (mp *MockPlayer) StopCount() int64 { return mp.stopCount.Load() }

var _ speech.Sink = (*MockPlayer)(nil)
