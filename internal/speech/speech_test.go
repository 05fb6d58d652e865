package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ughealth/healthguide/internal/cache"
	"github.com/ughealth/healthguide/internal/config"
)

func TestVoiceFor(t *testing.T) {
	def := "pNInz6obpgDQGcFmaJgB"
	tests := map[string]string{
		"lug": "pNInz6obpgDQGcFmaJgB",
		"nyn": "EXAVITQu4vr4xnSDxMaL",
		"ach": "VR6AewLTigWG4xSOukaG",
		"teo": "pFZP5JQG7iQjIQuC4Bku",
		"lgg": "onwK4e9ZLuTAKqWW03F9",
		"xyz": def,
		"":    def,
	}
	for code, want := range tests {
		assert.Equal(t, want, VoiceFor(config.DefaultVoices, def, code), code)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", &StatusError{Status: 401, Body: `{"detail":"invalid api key"}`}, MsgUnauthorized},
		{"401 wins over quota", &StatusError{Status: 401, Body: `{"detail":{"status":"quota_exceeded"}}`}, MsgUnauthorized},
		{"unauthorized body", &StatusError{Status: 400, Body: "Unauthorized request"}, MsgUnauthorized},
		{"quota", &StatusError{Status: 400, Body: `{"detail":{"status":"quota_exceeded"}}`}, MsgQuota},
		{"rate limited", &StatusError{Status: 429, Body: "slow down, limit reached"}, MsgRateLimited},
		{"limit in body", &StatusError{Status: 400, Body: "character limit exceeded"}, MsgQuota},
		{"server error", &StatusError{Status: 500, Body: "oops"}, MsgGenerationFailed},
		{"wrapped status", fmt.Errorf("synth: %w", &StatusError{Status: 401}), MsgUnauthorized},
		{"no text", ErrNoText, MsgNoText},
		{"not configured", newError(KindNotConfigured, ErrNotConfigured), MsgNotConfigured},
		{"unavailable", ErrUnavailable, MsgUnavailable},
		{"local playback", &Error{Kind: KindPlayback, Message: MsgLocalPlaybackFailed}, MsgLocalPlaybackFailed},
		{"remote playback", newError(KindPlayback, errors.New("x")), MsgPlaybackFailed},
		{"other", errors.New("network down"), MsgGenerationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
	assert.Empty(t, Classify(nil))
}

func TestRemoteSpeakerNotConfigured(t *testing.T) {
	synth := &fakeSynth{configured: false}
	sink := &fakeSink{}
	s := NewRemoteSpeaker(RemoteOptions{Synth: synth, Sink: sink})

	err := s.Speak(context.Background(), "Hello", "lug", Events{})
	require.Error(t, err)
	assert.Equal(t, MsgNotConfigured, Classify(err))
	assert.Zero(t, synth.calls, "no request without a key")
}

func TestRemoteSpeakerNoText(t *testing.T) {
	synth := &fakeSynth{configured: true}
	s := NewRemoteSpeaker(RemoteOptions{Synth: synth, Sink: &fakeSink{}})

	err := s.Speak(context.Background(), "  ", "lug", Events{})
	assert.ErrorIs(t, err, ErrNoText)
	assert.Equal(t, MsgNoText, Classify(err))
	assert.Zero(t, synth.calls)
}

func TestRemoteSpeakerPlays(t *testing.T) {
	synth := &fakeSynth{configured: true, audio: []byte{1, 2, 3, 4}}
	sink := &fakeSink{}
	s := NewRemoteSpeaker(RemoteOptions{Synth: synth, Sink: sink})

	var ended atomic.Bool
	require.NoError(t, s.Speak(context.Background(), "**Wash** your hands", "nyn", Events{
		OnEnd: func() { ended.Store(true) },
	}))

	assert.Equal(t, []string{"EXAVITQu4vr4xnSDxMaL"}, synth.voices)
	assert.Equal(t, []string{"Wash your hands"}, synth.texts)
	assert.True(t, sink.active)

	sink.finish()
	assert.True(t, ended.Load())
}

func TestRemoteSpeakerReplacesSession(t *testing.T) {
	synth := &fakeSynth{configured: true, audio: []byte{1, 2}}
	sink := &fakeSink{}
	s := NewRemoteSpeaker(RemoteOptions{Synth: synth, Sink: sink})

	require.NoError(t, s.Speak(context.Background(), "one", "lug", Events{}))
	require.NoError(t, s.Speak(context.Background(), "two", "lug", Events{}))

	assert.Equal(t, 2, sink.starts)
	assert.Equal(t, 1, sink.stops, "first session stopped before the second")
	assert.True(t, sink.active)
}

func TestRemoteSpeakerStopIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	s := NewRemoteSpeaker(RemoteOptions{Synth: &fakeSynth{configured: true, audio: []byte{1}}, Sink: sink})

	require.NoError(t, s.Stop())
	require.NoError(t, s.Speak(context.Background(), "text", "ach", Events{}))
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	assert.False(t, sink.active)
	assert.Equal(t, 1, sink.stops)
}

func TestRemoteSpeakerErrors(t *testing.T) {
	tests := []struct {
		name     string
		synthErr error
		startErr error
		want     string
	}{
		{"unauthorized", &StatusError{Status: 401, Body: "bad key"}, nil, MsgUnauthorized},
		{"rate limited", &StatusError{Status: 429}, nil, MsgRateLimited},
		{"quota", &StatusError{Status: 400, Body: "quota_exceeded"}, nil, MsgQuota},
		{"network", errors.New("dial tcp: refused"), nil, MsgGenerationFailed},
		{"sink failure", nil, errors.New("no device"), MsgPlaybackFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth := &fakeSynth{configured: true, audio: []byte{1}, err: tt.synthErr}
			s := NewRemoteSpeaker(RemoteOptions{Synth: synth, Sink: &fakeSink{startErr: tt.startErr}})
			err := s.Speak(context.Background(), "text", "lug", Events{})
			require.Error(t, err)
			assert.Equal(t, tt.want, Classify(err))
		})
	}
}

func TestRemoteSpeakerPlaybackError(t *testing.T) {
	sink := &fakeSink{}
	s := NewRemoteSpeaker(RemoteOptions{Synth: &fakeSynth{configured: true, audio: []byte{1}}, Sink: sink})

	var got error
	require.NoError(t, s.Speak(context.Background(), "text", "lug", Events{
		OnError: func(err error) { got = err },
	}))
	sink.fail()

	require.Error(t, got)
	assert.Equal(t, MsgPlaybackFailed, Classify(got))
}

func TestLocalSpeakerUnavailable(t *testing.T) {
	voice := &fakeVoice{available: false}
	s := NewLocalSpeaker(LocalOptions{Voice: voice})

	err := s.Speak(context.Background(), "text", "lug", Events{})
	require.Error(t, err)
	assert.Equal(t, MsgUnavailable, Classify(err))
	assert.Empty(t, voice.utterances)
}

func TestLocalSpeakerUtterance(t *testing.T) {
	voice := &fakeVoice{available: true}
	s := NewLocalSpeaker(LocalOptions{
		Voice:         voice,
		Locales:       config.DefaultLocales,
		DefaultLocale: "en-US",
		Rate:          0.8,
	})

	require.NoError(t, s.Speak(context.Background(), "Sleep under a net", "lug", Events{}))
	require.NoError(t, s.Speak(context.Background(), "Eat well", "xyz", Events{}))

	require.Len(t, voice.utterances, 2)
	assert.Equal(t, Utterance{Text: "Sleep under a net", Locale: "sw-KE", Rate: 0.8, Pitch: 1.0, Volume: 1.0}, voice.utterances[0])
	assert.Equal(t, "en-US", voice.utterances[1].Locale)
	assert.Equal(t, 2, voice.stops, "each speak cancels the current utterance first")
}

func TestLocalSpeakerErrors(t *testing.T) {
	voice := &fakeVoice{available: true, startErr: errors.New("boom")}
	s := NewLocalSpeaker(LocalOptions{Voice: voice})
	err := s.Speak(context.Background(), "text", "lug", Events{})
	assert.Equal(t, MsgLocalPlaybackFailed, Classify(err))

	voice = &fakeVoice{available: true}
	s = NewLocalSpeaker(LocalOptions{Voice: voice})
	var got error
	require.NoError(t, s.Speak(context.Background(), "text", "lug", Events{OnError: func(err error) { got = err }}))
	voice.ev.fail(errors.New("interrupted"))
	assert.Equal(t, MsgLocalPlaybackFailed, Classify(got))

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.False(t, voice.speaking)
}

func TestElevenLabsSynthesize(t *testing.T) {
	var calls int32
	var body synthesisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/text-to-speech/VOICE", r.URL.Path)
		assert.Equal(t, "pcm_44100", r.URL.Query().Get("output_format"))
		assert.Equal(t, "key-123", r.Header.Get("xi-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte{0, 1, 0, 1})
	}))
	defer srv.Close()

	store, err := cache.NewStore(cache.Options{MaxSize: 1 << 20})
	require.NoError(t, err)

	c := NewElevenLabs(ElevenLabsOptions{APIKey: "key-123", URL: srv.URL, RequestsPerMinute: 6000, Cache: store})
	assert.True(t, c.Configured())
	assert.Equal(t, 44100, c.SampleRate())

	for range 2 {
		audio, err := c.Synthesize(context.Background(), "VOICE", "Hello")
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 1, 0, 1}, audio)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call served from cache")
	assert.Equal(t, synthesisRequest{Text: "Hello", ModelID: "eleven_multilingual_v2", VoiceSettings: DefaultVoiceSettings}, body)
}

func TestElevenLabsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"quota_exceeded"}}`))
	}))
	defer srv.Close()

	c := NewElevenLabs(ElevenLabsOptions{APIKey: "k", URL: srv.URL, RequestsPerMinute: 6000})
	_, err := c.Synthesize(context.Background(), "VOICE", "Hello")

	var st *StatusError
	require.ErrorAs(t, err, &st)
	assert.Equal(t, 401, st.Status)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, KindUnauthorized, st.Kind())
}

func TestElevenLabsPlaceholderKey(t *testing.T) {
	c := NewElevenLabs(ElevenLabsOptions{APIKey: config.ElevenLabsPlaceholder})
	assert.False(t, c.Configured())
	c.SetAPIKey("real")
	assert.True(t, c.Configured())
}

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 44100, SampleRate("pcm_44100"))
	assert.Equal(t, 48000, SampleRate("pcm_48000"))
	assert.Zero(t, SampleRate("mp3_44100_128"))
	assert.Zero(t, SampleRate("pcm_fast"))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Wash your hands.", "Wash your hands."},
		{"emphasis", "**Sleep** under a _net_.", "Sleep under a net."},
		{"heading and paragraph", "# Malaria\n\nIt spreads\nthrough mosquitoes.", "Malaria\n\nIt spreads through mosquitoes."},
		{"brackets kept", "[Demo Translation to Luganda]\n\nText", "[Demo Translation to Luganda]\n\nText"},
		{"list", "- eat fruit\n- drink water", "eat fruit\n\ndrink water"},
		{"link", "See [the clinic](https://example.org).", "See the clinic."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}

func TestEspeakArgs(t *testing.T) {
	args := espeakArgs(Utterance{Locale: "sw-KE", Rate: 0.8, Pitch: 1.0, Volume: 1.0})
	assert.Equal(t, []string{"-v", "sw", "-s", "140", "-p", "50", "-a", "100"}, args)

	assert.Equal(t, "en-gb", espeakVoice("en-GB"))
	assert.Equal(t, "en", espeakVoice("en"))
	assert.Equal(t, "en", espeakVoice("not a tag!"))
}

func TestEspeakUnavailable(t *testing.T) {
	e := NewEspeak("healthguide-no-such-binary")
	assert.False(t, e.Available())
	assert.Error(t, e.Start(Utterance{Text: "hi"}, Events{}))
	assert.NoError(t, e.Stop())
}

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-espeak")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)) //nolint:gosec
	return path
}

func TestEspeakProcessLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("end", func(t *testing.T) {
		done := make(chan struct{})
		e := NewEspeak(script(t, "cat >/dev/null"))
		require.True(t, e.Available())
		require.NoError(t, e.Start(Utterance{Text: "hi", Rate: 1}, Events{OnEnd: func() { close(done) }}))
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("no end event")
		}
	})

	t.Run("error", func(t *testing.T) {
		failed := make(chan error, 1)
		e := NewEspeak(script(t, "exit 1"))
		require.NoError(t, e.Start(Utterance{Text: "hi", Rate: 1}, Events{OnError: func(err error) { failed <- err }}))
		select {
		case err := <-failed:
			assert.Error(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("no error event")
		}
	})

	t.Run("stop is silent", func(t *testing.T) {
		var events atomic.Int32
		e := NewEspeak(script(t, "sleep 5"))
		require.NoError(t, e.Start(Utterance{Text: "hi", Rate: 1}, Events{
			OnEnd:   func() { events.Add(1) },
			OnError: func(error) { events.Add(1) },
		}))
		require.NoError(t, e.Stop())
		require.NoError(t, e.Stop())
		time.Sleep(200 * time.Millisecond)
		assert.Zero(t, events.Load())
	})
}

func TestSpeakAfterCancelStartsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("remote", func(t *testing.T) {
		sink := &fakeSink{}
		s := NewRemoteSpeaker(RemoteOptions{Synth: &fakeSynth{configured: true, audio: []byte{1}}, Sink: sink})

		err := s.Speak(ctx, "Sleep under a net", "lug", Events{})
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, sink.starts)
		assert.False(t, sink.active)
	})

	t.Run("local", func(t *testing.T) {
		voice := &fakeVoice{available: true}
		s := NewLocalSpeaker(LocalOptions{Voice: voice})

		err := s.Speak(ctx, "Sleep under a net", "lug", Events{})
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, voice.utterances)
		assert.False(t, voice.speaking)
	})
}
