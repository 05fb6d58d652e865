package speech

import (
	"bytes"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// espeakWordsPerMinute is espeak-ng's normal speaking rate.
const espeakWordsPerMinute = 175

// Espeak is a Voice backed by the espeak-ng command.
type Espeak struct {
	binary string

	mu  sync.Mutex
	cmd *exec.Cmd
	gen uint64
}

// NewEspeak creates an Espeak voice running binary.
func NewEspeak(binary string) *Espeak {
	if binary == "" {
		binary = "espeak-ng"
	}
	return &Espeak{binary: binary}
}

// Available reports whether the binary is on the PATH.
func (e *Espeak) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// Start speaks u. The text is passed on stdin.
func (e *Espeak) Start(u Utterance, ev Events) error {
	e.mu.Lock()
	e.stopLocked()

	cmd := exec.Command(e.binary, espeakArgs(u)...) //nolint:gosec
	cmd.Stdin = strings.NewReader(u.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("unable to start %s: %w", e.binary, err)
	}
	e.cmd = cmd
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	ev.start()
	go func() {
		err := cmd.Wait()

		e.mu.Lock()
		current := e.gen == gen && e.cmd == cmd
		if current {
			e.cmd = nil
		}
		e.mu.Unlock()

		// Stopped or replaced sessions report nothing.
		if !current {
			return
		}
		if err != nil {
			log.Debug("espeak failed", "error", err, "stderr", strings.TrimSpace(stderr.String()))
			ev.fail(fmt.Errorf("%s: %w", e.binary, err))
			return
		}
		ev.end()
	}()
	return nil
}

// Stop kills the running utterance, if any.
func (e *Espeak) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	return nil
}

func (e *Espeak) stopLocked() {
	if e.cmd == nil {
		return
	}
	e.gen++
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil
}

// espeakArgs maps an utterance to espeak-ng flags. Pitch and volume of 1.0
// map to espeak-ng's defaults of 50 and 100.
func espeakArgs(u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	pitch := clamp(int(u.Pitch*50), 0, 99)
	amplitude := clamp(int(u.Volume*100), 0, 200)

	return []string{
		"-v", espeakVoice(u.Locale),
		"-s", strconv.Itoa(int(math.Round(espeakWordsPerMinute * rate))),
		"-p", strconv.Itoa(pitch),
		"-a", strconv.Itoa(amplitude),
	}
}

// espeakVoice turns a BCP 47 tag into an espeak-ng voice name. espeak-ng only
// has regional variants for English.
func espeakVoice(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	if base.String() == "en" {
		if region, conf := tag.Region(); conf == language.Exact {
			return "en-" + strings.ToLower(region.String())
		}
	}
	return base.String()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
