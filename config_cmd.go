package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# style name or JSON path (default "auto")
style: "auto"
# mouse support (TUI-mode only)
mouse: false
# word-wrap at width (0 detects the terminal width)
width: 0

# Sunbird translation. Without a token, demo text is shown.
# SUNBIRD_AUTH_TOKEN is used when the token is empty.
sunbird:
  token: ""
  url: "https://api.sunbird.ai/tasks/nllb_translate"
  requests_per_minute: 30
  demo_delay: "2s"

# ElevenLabs text-to-speech. ELEVENLABS_API_KEY is used when the key is empty.
elevenlabs:
  api_key: ""
  url: "https://api.elevenlabs.io"
  model: "eleven_multilingual_v2"
  # pcm_44100 or pcm_48000
  output_format: "pcm_44100"
  requests_per_minute: 20
  default_voice: "pNInz6obpgDQGcFmaJgB"
  voices:
    lug: "pNInz6obpgDQGcFmaJgB"
    nyn: "EXAVITQu4vr4xnSDxMaL"
    ach: "VR6AewLTigWG4xSOukaG"
    teo: "pFZP5JQG7iQjIQuC4Bku"
    lgg: "onwK4e9ZLuTAKqWW03F9"

speech:
  # auto uses ElevenLabs when a key is set and the local synthesizer otherwise
  engine: "auto"
  local:
    binary: "espeak-ng"
    rate: 0.8
    default_locale: "en-US"
    # None of the languages has a local voice; these are substitutes.
    locales:
      lug: "sw-KE"
      nyn: "sw-KE"
      teo: "sw-KE"
      ach: "en-GB"
      lgg: "en-GB"

cache:
  enabled: true
  # keep translations and audio between runs, e.g. "~/.cache/healthguide"
  dir: ""
  # megabytes per tier
  max_size: 64

http:
  timeout: "30s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the healthguide config file",
	Long:    paragraph(fmt.Sprintf("\n%s the healthguide config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("healthguide config\nhealthguide config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Health Guide", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
