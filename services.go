package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/ughealth/healthguide/internal/audio"
	"github.com/ughealth/healthguide/internal/cache"
	"github.com/ughealth/healthguide/internal/config"
	"github.com/ughealth/healthguide/internal/guide"
	"github.com/ughealth/healthguide/internal/speech"
	"github.com/ughealth/healthguide/internal/translate"
	"github.com/ughealth/healthguide/utils"
)

const megabyte = 1024 * 1024

// services are the provider clients shared by the TUI and the CLI commands.
type services struct {
	cfg     *config.Config
	watcher *config.Watcher // nil unless the config file is watched

	store      *cache.Store // nil when caching is disabled
	translator *translate.Client
	eleven     *speech.ElevenLabs
	player     *audio.Player // nil unless speech is remote
	speaker    speech.Speaker
}

func newServices(cfg *config.Config) (*services, error) {
	s := &services{cfg: cfg}

	var c cache.Cache
	if cfg.Cache.Enabled {
		store, err := openCache(cfg)
		if err != nil {
			return nil, err
		}
		s.store = store
		c = store
	}

	s.translator = translate.NewClient(translate.Options{
		URL:               cfg.Sunbird.URL,
		Token:             cfg.Sunbird.Token,
		RequestsPerMinute: cfg.Sunbird.RequestsPerMinute,
		Timeout:           cfg.HTTPTimeout,
		Cache:             c,
	})

	s.eleven = speech.NewElevenLabs(speech.ElevenLabsOptions{
		APIKey:            cfg.ElevenLabs.APIKey,
		URL:               cfg.ElevenLabs.URL,
		Model:             cfg.ElevenLabs.Model,
		OutputFormat:      cfg.ElevenLabs.OutputFormat,
		RequestsPerMinute: cfg.ElevenLabs.RequestsPerMinute,
		Timeout:           cfg.HTTPTimeout,
		Cache:             c,
	})

	switch cfg.ResolvedEngine() {
	case config.EngineRemote:
		pc := audio.DefaultPlayerConfig()
		pc.SampleRate = s.eleven.SampleRate()
		player, err := audio.NewPlayer(pc)
		if err != nil {
			_ = s.closeCache()
			return nil, fmt.Errorf("unable to create audio player: %w", err)
		}
		s.player = player
		s.speaker = speech.NewRemoteSpeaker(speech.RemoteOptions{
			Synth:        s.eleven,
			Sink:         player,
			Voices:       cfg.ElevenLabs.Voices,
			DefaultVoice: cfg.ElevenLabs.DefaultVoice,
		})
	default:
		s.speaker = speech.NewLocalSpeaker(speech.LocalOptions{
			Voice:         speech.NewEspeak(cfg.Speech.Local.Binary),
			Locales:       cfg.Speech.Local.Locales,
			DefaultLocale: cfg.Speech.Local.DefaultLocale,
			Rate:          cfg.Speech.Local.Rate,
		})
	}

	log.Debug("services ready",
		"engine", cfg.ResolvedEngine(),
		"translation", cfg.Sunbird.Configured(),
		"cache", cfg.Cache.Enabled,
		"cache_dir", cfg.Cache.Dir,
	)
	return s, nil
}

func openCache(cfg *config.Config) (*cache.Store, error) {
	dir := cfg.Cache.Dir
	if dir != "" {
		dir = utils.ExpandPath(dir)
	}
	store, err := cache.NewStore(cache.Options{
		MaxSize: int64(cfg.Cache.MaxSize) * megabyte,
		Dir:     dir,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open cache: %w", err)
	}
	return store, nil
}

// applyCredentials hands reloaded credentials to the provider clients.
func (s *services) applyCredentials(cfg *config.Config) {
	s.translator.SetToken(cfg.Sunbird.Token)
	s.eleven.SetAPIKey(cfg.ElevenLabs.APIKey)
	log.Info("credentials reloaded",
		"translation", cfg.Sunbird.Configured(),
		"speech", cfg.ElevenLabs.Configured(),
	)
}

// snapshot returns the latest configuration: the watcher's when the config
// file is watched, the startup one otherwise.
func (s *services) snapshot() *config.Config {
	if s.watcher != nil {
		return s.watcher.Snapshot()
	}
	return s.cfg
}

func (s *services) translationConfigured() bool {
	return s.snapshot().Sunbird.Configured()
}

// setupRequired reports whether either provider credential is missing.
func (s *services) setupRequired() bool {
	c := s.snapshot()
	return !c.Sunbird.Configured() || !c.ElevenLabs.Configured()
}

func (s *services) newGuide(notify func(guide.SpeechEvent)) *guide.Guide {
	return guide.New(guide.Options{
		Translator:            s.translator,
		Speaker:               s.speaker,
		TranslationConfigured: s.translationConfigured,
		DemoDelay:             s.cfg.Sunbird.DemoDelay,
		Notify:                notify,
	})
}

func (s *services) closeCache() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *services) Close() error {
	var errs []error
	if err := s.speaker.Stop(); err != nil {
		errs = append(errs, err)
	}
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.closeCache(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
