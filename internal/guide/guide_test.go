package guide

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ughealth/healthguide/internal/audio"
	"github.com/ughealth/healthguide/internal/catalog"
	"github.com/ughealth/healthguide/internal/speech"
	"github.com/ughealth/healthguide/internal/translate"
)

type fakeTranslator struct {
	text string
	err  error

	mu    sync.Mutex
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.text, f.err
}

type fakeSynth struct {
	configured bool
	err        error
	calls      int
}

func (f *fakeSynth) Configured() bool { return f.configured }

func (f *fakeSynth) Synthesize(context.Context, string, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return make([]byte, 44100*2), nil
}

// eventLog collects playback events delivered through Notify.
type eventLog struct {
	ch chan SpeechEvent
}

func newEventLog() *eventLog {
	return &eventLog{ch: make(chan SpeechEvent, 16)}
}

func (l *eventLog) notify(ev SpeechEvent) { l.ch <- ev }

func (l *eventLog) next(t *testing.T) SpeechEvent {
	t.Helper()
	select {
	case ev := <-l.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for speech event")
		return SpeechEvent{}
	}
}

func newGuide(t *testing.T, tr translate.Translator, configured bool, sp speech.Speaker, events *eventLog) *Guide {
	t.Helper()
	opts := Options{
		Translator:            tr,
		Speaker:               sp,
		TranslationConfigured: func() bool { return configured },
	}
	if events != nil {
		opts.Notify = events.notify
	}
	return New(opts)
}

func selected(t *testing.T, g *Guide, lang, topic string) {
	t.Helper()
	require.NoError(t, g.SelectLanguage(lang))
	require.NoError(t, g.SelectTopic(topic))
}

func TestDemoTextForEveryPair(t *testing.T) {
	for _, lang := range catalog.Languages() {
		for _, topic := range catalog.Topics() {
			t.Run(lang.Code+"/"+topic.Key, func(t *testing.T) {
				tr := &fakeTranslator{}
				g := newGuide(t, tr, false, nil, nil)
				selected(t, g, lang.Code, topic.Key)

				_, err := g.TranslateNow(context.Background())
				require.NoError(t, err)

				st := g.State()
				assert.Equal(t, translate.DemoText(lang.Name, topic.Content), st.Translation)
				assert.True(t, strings.HasPrefix(st.Translation, "[Demo Translation to "+lang.Name+"]\n\n"))
				assert.Contains(t, st.Translation, topic.Content)
				assert.True(t, st.Demo)
				assert.Empty(t, st.Err)
				assert.False(t, st.Translating)
				assert.Zero(t, tr.calls, "demo mode makes no request")
			})
		}
	}
}

func TestLugandaMalariaDemoPrefix(t *testing.T) {
	g := newGuide(t, &fakeTranslator{}, false, nil, nil)
	selected(t, g, "lug", "malaria")

	_, err := g.TranslateNow(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(g.State().Translation, "[Demo Translation to Luganda]"))
}

func TestIncompleteSelection(t *testing.T) {
	tests := []struct {
		name  string
		lang  string
		topic string
	}{
		{"nothing", "", ""},
		{"language only", "lug", ""},
		{"topic only", "", "hygiene"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTranslator{text: "x"}
			g := newGuide(t, tr, true, nil, nil)
			if tt.lang != "" {
				require.NoError(t, g.SelectLanguage(tt.lang))
			}
			if tt.topic != "" {
				require.NoError(t, g.SelectTopic(tt.topic))
			}

			_, err := g.TranslateNow(context.Background())
			assert.ErrorIs(t, err, ErrSelectionIncomplete)
			assert.Equal(t, MsgSelectionRequired, g.State().Err)
			assert.False(t, g.State().Translating)
			assert.Zero(t, tr.calls, "no network on incomplete selection")
		})
	}
}

func TestUnknownSelection(t *testing.T) {
	g := newGuide(t, &fakeTranslator{}, false, nil, nil)
	assert.ErrorIs(t, g.SelectLanguage("eng"), ErrUnknownLanguage)
	assert.ErrorIs(t, g.SelectTopic("flu"), ErrUnknownTopic)
	assert.Empty(t, g.State().Language)
	assert.Empty(t, g.State().Topic)
}

func TestTranslationSuccess(t *testing.T) {
	tr := &fakeTranslator{text: "Omusujja gw'ensiri"}
	g := newGuide(t, tr, true, nil, nil)
	selected(t, g, "lug", "malaria")

	o, err := g.TranslateNow(context.Background())
	require.NoError(t, err)
	assert.NoError(t, o.Err)

	st := g.State()
	assert.Equal(t, "Omusujja gw'ensiri", st.Translation)
	assert.False(t, st.Demo)
	assert.Empty(t, st.Err)
	assert.Equal(t, 1, tr.calls)
}

func TestTranslationFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", &translate.StatusError{Status: 401}, translate.MsgAuthFailed},
		{"forbidden", &translate.StatusError{Status: 403}, translate.MsgAuthFailed},
		{"rate limited", &translate.StatusError{Status: 429}, translate.MsgRateLimited},
		{"server error", &translate.StatusError{Status: 502}, translate.MsgFailed},
		{"missing field", translate.ErrMissingTranslation, translate.MsgFailed},
		{"network", errors.New("connection refused"), translate.MsgFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGuide(t, &fakeTranslator{err: tt.err}, true, nil, nil)
			selected(t, g, "teo", "nutrition")

			_, err := g.TranslateNow(context.Background())
			require.NoError(t, err)

			topic, _ := catalog.TopicByKey("nutrition")
			st := g.State()
			assert.Equal(t, tt.want, st.Err)
			assert.Equal(t, translate.FallbackText("Ateso", topic.Content), st.Translation)
			assert.True(t, st.Demo)
		})
	}
}

func TestTranslationRejectsRetriggerWhilePending(t *testing.T) {
	tr := &fakeTranslator{text: "ok"}
	g := newGuide(t, tr, true, nil, nil)
	selected(t, g, "ach", "covid19")

	req, err := g.BeginTranslation()
	require.NoError(t, err)
	assert.True(t, g.State().Translating)

	_, err = g.BeginTranslation()
	assert.ErrorIs(t, err, ErrBusy)

	// Selecting while pending changes neither the attempt nor the result.
	require.NoError(t, g.SelectLanguage("lgg"))
	g.CompleteTranslation(g.Translate(context.Background(), req))

	st := g.State()
	assert.Equal(t, "ok", st.Translation)
	assert.Equal(t, "lgg", st.Language)
	assert.False(t, st.Translating)
	assert.Equal(t, 1, tr.calls)
}

func TestStaleOutcomeIgnored(t *testing.T) {
	g := newGuide(t, &fakeTranslator{text: "ok"}, true, nil, nil)
	selected(t, g, "nyn", "maternal")

	_, err := g.TranslateNow(context.Background())
	require.NoError(t, err)

	g.CompleteTranslation(Outcome{ID: 99, Text: "stale"})
	assert.Equal(t, "ok", g.State().Translation)
}

func TestSelectionKeepsTranslation(t *testing.T) {
	g := newGuide(t, &fakeTranslator{}, false, nil, nil)
	selected(t, g, "lug", "malaria")
	_, err := g.TranslateNow(context.Background())
	require.NoError(t, err)
	before := g.State().Translation

	require.NoError(t, g.SelectLanguage("nyn"))
	require.NoError(t, g.SelectTopic("hygiene"))
	assert.Equal(t, before, g.State().Translation)
}

func TestBeginTranslationClearsErrorAndResult(t *testing.T) {
	g := newGuide(t, &fakeTranslator{err: errors.New("down")}, true, nil, nil)
	selected(t, g, "lug", "malaria")
	_, err := g.TranslateNow(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, g.State().Err)

	_, err = g.BeginTranslation()
	require.NoError(t, err)
	assert.Empty(t, g.State().Err)
	assert.Empty(t, g.State().Translation)
}

func TestDemoDelayHonorsContext(t *testing.T) {
	g := New(Options{DemoDelay: time.Hour})
	selected(t, g, "lug", "malaria")
	req, err := g.BeginTranslation()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := g.Translate(ctx, req)
	assert.True(t, o.Demo)
	assert.True(t, strings.HasPrefix(o.Text, "[Demo Translation to Luganda]"))
}

func TestDismissErrorKeepsTextAndSelection(t *testing.T) {
	g := newGuide(t, &fakeTranslator{err: &translate.StatusError{Status: 429}}, true, nil, nil)
	selected(t, g, "lgg", "hygiene")
	_, err := g.TranslateNow(context.Background())
	require.NoError(t, err)

	before := g.State()
	require.NotEmpty(t, before.Err)

	g.DismissError()
	after := g.State()
	assert.Empty(t, after.Err)
	assert.Equal(t, before.Translation, after.Translation)
	assert.Equal(t, before.Language, after.Language)
	assert.Equal(t, before.Topic, after.Topic)
}

func translated(t *testing.T, sp speech.Speaker, events *eventLog) *Guide {
	t.Helper()
	g := newGuide(t, &fakeTranslator{text: "Naaba engalo"}, true, sp, events)
	selected(t, g, "lug", "hygiene")
	_, err := g.TranslateNow(context.Background())
	require.NoError(t, err)
	return g
}

func TestSpeechWithoutText(t *testing.T) {
	synth := &fakeSynth{configured: true}
	g := newGuide(t, &fakeTranslator{}, true, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: synth, Sink: audio.DefaultMockPlayer()}), nil)

	_, err := g.BeginSpeech()
	assert.ErrorIs(t, err, speech.ErrNoText)
	assert.Equal(t, speech.MsgNoText, g.State().Err)
	assert.Zero(t, synth.calls)
}

func TestSpeechNotConfigured(t *testing.T) {
	synth := &fakeSynth{configured: false}
	g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: synth, Sink: audio.DefaultMockPlayer()}), nil)

	_, err := g.BeginSpeech()
	require.Error(t, err)
	assert.Equal(t, speech.MsgNotConfigured, g.State().Err)
	assert.False(t, g.State().GeneratingAudio)
	assert.Zero(t, synth.calls, "no request without a key")
}

func TestSpeechPlaysAndEnds(t *testing.T) {
	player := audio.DefaultMockPlayer()
	player.SetDelayFactor(0.01)
	defer player.Close() //nolint:errcheck

	events := newEventLog()
	g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: &fakeSynth{configured: true}, Sink: player}), events)

	req, err := g.BeginSpeech()
	require.NoError(t, err)
	assert.True(t, g.State().GeneratingAudio)

	g.CompleteSpeech(g.Speak(req))
	assert.False(t, g.State().GeneratingAudio)

	ev := events.next(t)
	assert.Equal(t, EventStarted, ev.Kind)
	g.HandleSpeechEvent(ev)
	assert.True(t, g.State().Playing)

	ev = events.next(t)
	assert.Equal(t, EventEnded, ev.Kind)
	g.HandleSpeechEvent(ev)
	assert.False(t, g.State().Playing)
	assert.Empty(t, g.State().Err)
}

func TestSpeechEndBeforeCompletion(t *testing.T) {
	g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: &fakeSynth{configured: true}, Sink: audio.DefaultMockPlayer()}), nil)

	req, err := g.BeginSpeech()
	require.NoError(t, err)

	// The end event can overtake the result of Speak.
	g.HandleSpeechEvent(SpeechEvent{Session: req.Session, Kind: EventEnded})
	g.CompleteSpeech(SpeechResult{Session: req.Session})
	assert.False(t, g.State().Playing)
}

func TestSpeechSecondSessionStopsFirst(t *testing.T) {
	player := audio.DefaultMockPlayer()
	defer player.Close() //nolint:errcheck

	events := newEventLog()
	g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: &fakeSynth{configured: true}, Sink: player}), events)

	first, err := g.BeginSpeech()
	require.NoError(t, err)
	g.CompleteSpeech(g.Speak(first))
	require.True(t, g.State().Playing)

	second, err := g.BeginSpeech()
	require.NoError(t, err)
	assert.NotEqual(t, first.Session, second.Session)
	g.CompleteSpeech(g.Speak(second))

	assert.Equal(t, int64(2), player.StartCount())
	assert.Equal(t, int64(1), player.StopCount())
	assert.True(t, player.IsPlaying())
	assert.True(t, g.State().Playing)

	// Late events of the first session change nothing.
	g.HandleSpeechEvent(SpeechEvent{Session: first.Session, Kind: EventFailed, Err: errors.New("late")})
	assert.True(t, g.State().Playing)
	assert.Empty(t, g.State().Err)
}

func TestStopSpeechIsIdempotent(t *testing.T) {
	player := audio.DefaultMockPlayer()
	defer player.Close() //nolint:errcheck

	g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: &fakeSynth{configured: true}, Sink: player}), nil)

	g.StopSpeech()
	req, err := g.BeginSpeech()
	require.NoError(t, err)
	g.CompleteSpeech(g.Speak(req))
	require.True(t, g.State().Playing)

	g.StopSpeech()
	g.StopSpeech()
	assert.False(t, g.State().Playing)
	assert.False(t, player.IsPlaying())
	assert.Equal(t, int64(1), player.StopCount())
	assert.Empty(t, g.State().Err)
}

func TestSpeechProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", &speech.StatusError{Status: 401, Body: "invalid key"}, speech.MsgUnauthorized},
		{"rate limited", &speech.StatusError{Status: 429}, speech.MsgRateLimited},
		{"quota", &speech.StatusError{Status: 400, Body: "quota_exceeded"}, speech.MsgQuota},
		{"generic", errors.New("timeout"), speech.MsgGenerationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth := &fakeSynth{configured: true, err: tt.err}
			g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: synth, Sink: audio.DefaultMockPlayer()}), nil)

			req, err := g.BeginSpeech()
			require.NoError(t, err)
			g.CompleteSpeech(g.Speak(req))

			st := g.State()
			assert.Equal(t, tt.want, st.Err)
			assert.False(t, st.Playing)
			assert.False(t, st.GeneratingAudio)
			assert.Equal(t, "Naaba engalo", st.Translation)
		})
	}
}

func TestSpeechPlaybackFailure(t *testing.T) {
	player := audio.DefaultMockPlayer()
	player.SetDelayFactor(0)
	player.FailPlayback(errors.New("underrun"))
	defer player.Close() //nolint:errcheck

	events := newEventLog()
	g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: &fakeSynth{configured: true}, Sink: player}), events)

	req, err := g.BeginSpeech()
	require.NoError(t, err)
	g.CompleteSpeech(g.Speak(req))

	for {
		ev := events.next(t)
		g.HandleSpeechEvent(ev)
		if ev.Kind == EventFailed {
			break
		}
	}
	assert.Equal(t, speech.MsgPlaybackFailed, g.State().Err)
	assert.False(t, g.State().Playing)
}

func TestToggleSpeech(t *testing.T) {
	player := audio.DefaultMockPlayer()
	defer player.Close() //nolint:errcheck
	g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: &fakeSynth{configured: true}, Sink: player}), nil)

	req, started, err := g.ToggleSpeech()
	require.NoError(t, err)
	require.True(t, started)
	g.CompleteSpeech(g.Speak(req))
	require.True(t, g.State().Playing)

	_, started, err = g.ToggleSpeech()
	require.NoError(t, err)
	assert.False(t, started)
	assert.False(t, g.State().Playing)
	assert.False(t, player.IsPlaying())
}

func TestStopDuringGeneration(t *testing.T) {
	player := audio.DefaultMockPlayer()
	defer player.Close() //nolint:errcheck

	g := translated(t, speech.NewRemoteSpeaker(speech.RemoteOptions{Synth: &fakeSynth{configured: true}, Sink: player}), nil)

	req, err := g.BeginSpeech()
	require.NoError(t, err)
	g.StopSpeech()
	assert.False(t, g.State().GeneratingAudio)

	// The abandoned session's result is ignored and never reaches the sink.
	res := g.Speak(req)
	require.ErrorIs(t, res.Err, context.Canceled)
	g.CompleteSpeech(res)
	assert.False(t, g.State().Playing)
	assert.Empty(t, g.State().Err)
	assert.Equal(t, int64(0), player.StartCount())
	assert.False(t, player.IsPlaying())
}

func TestLocalStopDuringGeneration(t *testing.T) {
	voice := &fakeVoice{available: true}
	g := translated(t, speech.NewLocalSpeaker(speech.LocalOptions{Voice: voice}), newEventLog())

	req, err := g.BeginSpeech()
	require.NoError(t, err)
	g.StopSpeech()

	res := g.Speak(req)
	require.ErrorIs(t, res.Err, context.Canceled)
	g.CompleteSpeech(res)
	assert.False(t, g.State().Playing)
	assert.Empty(t, g.State().Err)
	assert.False(t, voice.isSpeaking())
	assert.Zero(t, voice.starts)
}

func TestStopReachesSpeakerWithoutSession(t *testing.T) {
	voice := &fakeVoice{available: true}
	g := translated(t, speech.NewLocalSpeaker(speech.LocalOptions{Voice: voice}), newEventLog())

	// An utterance the guide no longer tracks is still cancelled by stop.
	require.NoError(t, voice.Start(speech.Utterance{Text: "Naaba engalo"}, speech.Events{}))
	require.True(t, voice.isSpeaking())

	g.StopSpeech()
	assert.False(t, voice.isSpeaking())
}

type fakeVoice struct {
	available bool

	mu       sync.Mutex
	ev       speech.Events
	speaking bool
	starts   int
}

func (f *fakeVoice) Available() bool { return f.available }

func (f *fakeVoice) Start(_ speech.Utterance, ev speech.Events) error {
	f.mu.Lock()
	f.ev = ev
	f.speaking = true
	f.starts++
	f.mu.Unlock()
	if ev.OnStart != nil {
		ev.OnStart()
	}
	return nil
}

func (f *fakeVoice) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speaking = false
	return nil
}

func (f *fakeVoice) isSpeaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speaking
}

func TestLocalSpeech(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		g := translated(t, speech.NewLocalSpeaker(speech.LocalOptions{Voice: &fakeVoice{}}), nil)
		_, err := g.BeginSpeech()
		require.Error(t, err)
		assert.Equal(t, speech.MsgUnavailable, g.State().Err)
	})

	t.Run("playback error", func(t *testing.T) {
		voice := &fakeVoice{available: true}
		events := newEventLog()
		g := translated(t, speech.NewLocalSpeaker(speech.LocalOptions{Voice: voice}), events)

		req, err := g.BeginSpeech()
		require.NoError(t, err)
		g.CompleteSpeech(g.Speak(req))
		g.HandleSpeechEvent(events.next(t))
		require.True(t, g.State().Playing)

		voice.ev.OnError(errors.New("audio device busy"))
		g.HandleSpeechEvent(events.next(t))
		assert.Equal(t, speech.MsgLocalPlaybackFailed, g.State().Err)
		assert.False(t, g.State().Playing)
	})
}
