package speech

import (
	"context"
	"errors"
	"sync"
)

type fakeSynth struct {
	configured bool
	audio      []byte
	err        error

	mu     sync.Mutex
	calls  int
	voices []string
	texts  []string
}

func (f *fakeSynth) Configured() bool { return f.configured }

func (f *fakeSynth) Synthesize(_ context.Context, voiceID, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.voices = append(f.voices, voiceID)
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

// fakeSink records sessions. Each Start opens a session that stays active
// until Stop, finish or fail is called.
type fakeSink struct {
	startErr error

	mu     sync.Mutex
	starts int
	stops  int
	active bool
	ev     Events
}

func (f *fakeSink) Start(_ []byte, ev Events) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.active {
		f.stops++
	}
	f.starts++
	f.active = true
	f.ev = ev
	return nil
}

func (f *fakeSink) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		f.stops++
		f.active = false
	}
	return nil
}

func (f *fakeSink) finish() {
	f.mu.Lock()
	f.active = false
	ev := f.ev
	f.mu.Unlock()
	ev.end()
}

func (f *fakeSink) fail() {
	f.mu.Lock()
	f.active = false
	ev := f.ev
	f.mu.Unlock()
	ev.fail(errors.New("device lost"))
}

type fakeVoice struct {
	available bool
	startErr  error

	mu         sync.Mutex
	utterances []Utterance
	stops      int
	speaking   bool
	ev         Events
}

func (f *fakeVoice) Available() bool { return f.available }

func (f *fakeVoice) Start(u Utterance, ev Events) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.utterances = append(f.utterances, u)
	f.speaking = true
	f.ev = ev
	return nil
}

func (f *fakeVoice) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.speaking = false
	return nil
}
