package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/ebitengine/oto/v3"
	"github.com/ughealth/healthguide/internal/speech"
)

// pollInterval is how often a session checks whether oto drained its buffer.
const pollInterval = 50 * time.Millisecond

// oto allows a single context per process.
var (
	contextOnce sync.Once
	otoContext  *oto.Context
	contextErr  error
)

// Player plays raw PCM through oto. It implements speech.Sink and keeps at
// most one session alive.
type Player struct {
	config PlayerConfig

	// newContext is replaced in tests.
	newContext func(PlayerConfig) (*oto.Context, error)

	mu      sync.Mutex
	session *session
	state   atomic.Int32
}

// session is one Start call. The audio data stays referenced until the
// session ends so oto never reads freed memory.
type session struct {
	player   *oto.Player
	data     []byte
	duration time.Duration
	events   speech.Events
	done     chan struct{}
	stopOnce sync.Once
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // 16 bits per sample
	BufferSize int // bytes
}

// DefaultPlayerConfig matches the pcm_44100 output of the speech provider.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		Channels:   1,
		BitDepth:   16,
		BufferSize: 4096,
	}
}

// NewPlayer creates a player. The audio device is opened on first use.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	p := &Player{config: config, newContext: sharedContext}
	p.state.Store(int32(StateStopped))
	return p, nil
}

func validateConfig(config PlayerConfig) error {
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", config.BitDepth)
	}
	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}

func sharedContext(config PlayerConfig) (*oto.Context, error) {
	contextOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   config.SampleRate,
			ChannelCount: config.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*config.Channels*2),
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			contextErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
	})
	return otoContext, contextErr
}

// Duration returns how long audio takes to play with this configuration.
func (p *Player) Duration(audio []byte) time.Duration {
	frame := p.config.Channels * p.config.BitDepth / 8
	samples := len(audio) / frame
	return time.Duration(samples) * time.Second / time.Duration(p.config.SampleRate)
}

// Start stops the current session and plays audio. OnStart fires before
// Start returns; OnEnd or OnError fire later from the session goroutine.
func (p *Player) Start(audio []byte, ev speech.Events) error {
	if len(audio) == 0 {
		return errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if PlayerState(p.state.Load()) == StateClosed {
		return errors.New("player is closed")
	}
	p.stopLocked()

	ctx, err := p.newContext(p.config)
	if err != nil {
		return err
	}

	// Own the data for the lifetime of the session.
	data := make([]byte, len(audio))
	copy(data, audio)

	player := ctx.NewPlayer(bytes.NewReader(data))
	if player == nil {
		return errors.New("failed to create oto player")
	}

	s := &session{
		player:   player,
		data:     data,
		duration: p.Duration(data),
		events:   ev,
		done:     make(chan struct{}),
	}
	p.session = s
	p.state.Store(int32(StatePlaying))

	player.Play()
	log.Debug("audio playback started", "size", humanize.Bytes(uint64(len(data))), "duration", s.duration)

	if ev.OnStart != nil {
		ev.OnStart()
	}
	go p.watch(s)
	return nil
}

// watch waits for the session to drain and reports the outcome unless the
// session was stopped first.
func (p *Player) watch(s *session) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
		if s.player.IsPlaying() {
			continue
		}

		p.mu.Lock()
		if p.session != s {
			p.mu.Unlock()
			return
		}
		err := s.player.Err()
		p.releaseLocked(s)
		p.mu.Unlock()

		if err != nil {
			if s.events.OnError != nil {
				s.events.OnError(err)
			}
			return
		}
		if s.events.OnEnd != nil {
			s.events.OnEnd()
		}
		return
	}
}

// Stop halts playback and releases the session. Stopping an idle player is
// a no-op.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	if p.session == nil {
		return
	}
	p.releaseLocked(p.session)
}

func (p *Player) releaseLocked(s *session) {
	s.stopOnce.Do(func() {
		close(s.done)
		s.player.Pause()
		if err := s.player.Close(); err != nil {
			log.Debug("unable to close oto player", "error", err)
		}
		s.data = nil
	})
	if p.session == s {
		p.session = nil
	}
	if PlayerState(p.state.Load()) != StateClosed {
		p.state.Store(int32(StateStopped))
	}
}

// IsPlaying reports whether a session is active.
func (p *Player) IsPlaying() bool {
	return PlayerState(p.state.Load()) == StatePlaying
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	return PlayerState(p.state.Load())
}

// Close stops playback. The player cannot be used afterwards.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.state.Store(int32(StateClosed))
	return nil
}

var _ speech.Sink = (*Player)(nil)
