package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/ughealth/healthguide/internal/catalog"
	"github.com/ughealth/healthguide/internal/guide"
	"github.com/ughealth/healthguide/utils"
)

type translateOptions struct {
	lang  string
	topic string
	speak bool
}

var (
	translateOpts translateOptions

	translateCmd = &cobra.Command{
		Use:   "translate",
		Short: "Translate a health topic without the TUI",
		Long: paragraph(fmt.Sprintf("\n%s a health topic into one of the supported languages and print it. "+
			"Provider failures print demo text and a warning; only invalid selections fail.", keyword("Translate"))),
		Example: paragraph("healthguide translate --lang lug --topic malaria\nhealthguide translate -l ach -t covid19 --speak"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := newServices(cfg)
			if err != nil {
				return err
			}
			defer svc.Close() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runTranslate(ctx, svc, translateOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
)

func init() {
	translateCmd.Flags().StringVarP(&translateOpts.lang, "lang", "l", "", "language code (see `healthguide languages`)")
	translateCmd.Flags().StringVarP(&translateOpts.topic, "topic", "t", "", "topic key (see `healthguide topics`)")
	translateCmd.Flags().BoolVar(&translateOpts.speak, "speak", false, "read the translation aloud")
	_ = translateCmd.MarkFlagRequired("lang")
	_ = translateCmd.MarkFlagRequired("topic")
}

func runTranslate(ctx context.Context, svc *services, opts translateOptions, out, errOut io.Writer) error {
	events := make(chan guide.SpeechEvent, speechEventBuffer)
	g := svc.newGuide(func(ev guide.SpeechEvent) {
		select {
		case events <- ev:
		default:
			log.Warn("dropping speech event", "session", ev.Session, "kind", ev.Kind)
		}
	})

	if err := g.SelectLanguage(opts.lang); err != nil {
		return fmt.Errorf("unknown language %q: run `healthguide languages` to list codes", opts.lang)
	}
	if err := g.SelectTopic(opts.topic); err != nil {
		return fmt.Errorf("unknown topic %q: run `healthguide topics` to list keys", opts.topic)
	}

	o, err := g.TranslateNow(ctx)
	if err != nil {
		return err
	}
	if o.Message != "" {
		fmt.Fprintln(errOut, warning(o.Message))
	}

	lang, _ := catalog.LanguageByCode(opts.lang)
	topic, _ := catalog.TopicByKey(opts.topic)
	rendered, err := renderMarkdown(translationMarkdown(lang, topic, o.Text))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(out, rendered); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}

	if !opts.speak {
		return nil
	}
	speakAndWait(ctx, g, events, errOut)
	return nil
}

func translationMarkdown(lang catalog.Language, topic catalog.Topic, text string) string {
	return fmt.Sprintf("# Health Information in %s:\n\n## %s\n\n%s\n", lang.Name, topic.Title, text)
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		utils.GlamourStyle(style),
		glamour.WithWordWrap(int(width)), //nolint:gosec
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}

// speakAndWait reads the current translation aloud and returns when playback
// ends, fails, or ctx is done. Failures are reported on errOut.
func speakAndWait(ctx context.Context, g *guide.Guide, events <-chan guide.SpeechEvent, errOut io.Writer) {
	req, err := g.BeginSpeech()
	if err != nil {
		fmt.Fprintln(errOut, warning(g.State().Err))
		return
	}

	done := make(chan guide.SpeechResult, 1)
	go func() { done <- g.Speak(req) }()

	for {
		select {
		case res := <-done:
			g.CompleteSpeech(res)
		case ev := <-events:
			g.HandleSpeechEvent(ev)
		case <-ctx.Done():
			g.StopSpeech()
			return
		}

		st := g.State()
		if st.GeneratingAudio || st.Playing {
			continue
		}
		if st.Err != "" {
			fmt.Fprintln(errOut, warning(st.Err))
		}
		return
	}
}
