// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/medibot-tui/internal/config"
	"github.com/jeranaias/medibot-tui/internal/ui/styles"
	"github.com/jeranaias/medibot-tui/internal/util"
	"github.com/jeranaias/medibot-tui/internal/voice"
)

var voiceIndicator = styles.StatusIndicators.Recording

// waitResult waits for the capture outcome. Cancelling ctx abandons the
// capture and releases the microphone.
func waitResult(ctx context.Context, c *voice.Capture) (voice.Result, error) {
	select {
	case res := <-c.Results():
		return res, nil
	case <-ctx.Done():
		c.Cancel()
		return voice.Result{}, ctx.Err()
	}
}

func newRecordCmd(e *env) *cobra.Command {
	var (
		seconds int
		ask     bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a question and print the transcription",
		Long: `Record from the microphone with the configured capture command and print
the transcription. Recording stops on Enter or after the maximum duration.`,
		Example: `  medibot record
  medibot record --seconds 10 --ask`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if seconds < 0 {
				return &ValidationError{Field: "seconds", Value: fmt.Sprint(seconds), Reason: "must not be negative"}
			}
			if seconds > 0 {
				e.cfg.Voice.MaxSeconds = seconds
			}
			if err := e.signedIn(ctx); err != nil {
				return err
			}

			capture := e.capture()
			if err := capture.Start(ctx); err != nil {
				return err
			}
			hint := fmt.Sprintf("Recording for up to %s", capture.MaxDuration())
			if isTerminal(e.in) {
				hint += ", press Enter to stop"
				go func() {
					_, _ = bufio.NewReader(e.in).ReadString('\n')
					_ = capture.Stop()
				}()
			}
			fmt.Fprintf(e.errOut, "%s %s\n", ErrorStyle.Render(voiceIndicator), hint)

			res, err := waitResult(ctx, capture)
			if err != nil {
				return err
			}
			if res.Err != nil {
				return res.Err
			}
			if !ask {
				return e.output(TextData{Text: res.Text}, func(w io.Writer) {
					fmt.Fprintln(w, res.Text)
				})
			}

			mgr := e.conversations()
			if err := openConversation(ctx, mgr, 0, false); err != nil {
				return err
			}
			sent := mgr.Send(ctx, res.Text, nil)
			if sent.Err != nil {
				return sent.Err
			}
			data := AskData{ConversationID: mgr.CurrentID(), Response: sent.Reply.Content, DetectedLanguage: sent.DetectedLanguage}
			return e.output(data, func(w io.Writer) {
				fmt.Fprintln(w, UserLabelStyle.Render("You")+" "+res.Text)
				e.printer().reply(w, sent.Reply.Content)
				printLanguage(w, sent.DetectedLanguage)
			})
		},
	}
	cmd.Flags().IntVarP(&seconds, "seconds", "s", 0, "maximum recording length (default from config)")
	cmd.Flags().BoolVar(&ask, "ask", false, "send the transcription as a question")
	return cmd
}

func newSpeakCmd(e *env) *cobra.Command {
	var (
		lang   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Convert text to speech and save it as MP3",
		Example: `  medibot speak "Drink plenty of water" --lang hi
  medibot speak --output advice.mp3 < advice.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" || text == "-" {
				b, err := io.ReadAll(e.in)
				if err != nil {
					return err
				}
				text = string(b)
			}
			if util.IsBlank(text) {
				return &ValidationError{Field: "text", Reason: "must not be empty"}
			}
			if lang == "" {
				lang = e.cfg.UI.Language
			}
			if err := e.connect(cmd.Context()); err != nil {
				return err
			}
			audio, err := e.client.TextToSpeech(cmd.Context(), util.NormalizeText(text), lang)
			if err != nil {
				return err
			}
			path := config.ExpandHome(output)
			if path == "" {
				path = filepath.Join(".", fmt.Sprintf("medibot_tts_%s.mp3", time.Now().Format("20060102_150405")))
			}
			if err := util.AtomicWriteFile(path, audio, 0o600); err != nil {
				return err
			}
			return e.output(PathData{Path: path}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Saved %s speech to %s\n", RenderStatus("ok"), lang, path)
			})
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "language code (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default medibot_tts_<time>.mp3)")
	return cmd
}

func newLanguagesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List text-to-speech languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.connect(cmd.Context()); err != nil {
				return err
			}
			langs, err := e.client.SupportedLanguages(cmd.Context())
			if err != nil {
				return err
			}
			return e.output(langs, func(w io.Writer) {
				for _, l := range langs {
					marker := " "
					if strings.EqualFold(l.Code, e.cfg.UI.Language) {
						marker = "*"
					}
					fmt.Fprintf(w, "%s %-4s %s\n", marker, l.Code, l.Name)
				}
			})
		},
	}
}

func newHistoryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "history [n]",
		Short: "Show your last n questions and answers across conversations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 10
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return &ValidationError{Field: "n", Value: args[0], Reason: "must be a positive integer"}
				}
				n = v
			}
			if err := e.signedIn(cmd.Context()); err != nil {
				return err
			}
			entries, err := e.client.History(cmd.Context(), n)
			if err != nil {
				return err
			}
			p := e.printer()
			return e.output(entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No history yet."))
					return
				}
				for i, h := range entries {
					if i > 0 {
						fmt.Fprintln(w, RenderSeparator())
					}
					if h.CreatedAt != "" {
						fmt.Fprintln(w, DimStyle.Render(h.CreatedAt))
					}
					fmt.Fprintln(w, UserLabelStyle.Render("You")+" "+h.Message)
					fmt.Fprintln(w, BotLabelStyle.Render("Dr MAMA"))
					p.reply(w, h.Response)
				}
			})
		},
	}
}
