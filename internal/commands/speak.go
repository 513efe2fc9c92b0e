package commands

import (
	"context"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go.aimuz.me/livetrans/internal/types"
	"go.aimuz.me/livetrans/langdetect"
	"go.aimuz.me/livetrans/tts"
)

var (
	speakOutput string
	speakLang   string
)

var speakCmd = &cobra.Command{
	Use:   "speak <text...>",
	Short: "Synthesize speech with the configured provider",
	Long: `Synthesize text to an audio file using the remote speech provider.

The language is detected from the text unless --lang is given.

Examples:
  livetrans speak -o hello.wav "Hello there"
  livetrans speak --lang zh -o nihao.mp3 "你好"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if speakOutput == "" {
			return fmt.Errorf("output file is required, use -o flag")
		}
		text := strings.Join(args, " ")

		var lang types.Language
		switch strings.ToLower(speakLang) {
		case "":
			lang = langdetect.Detect(text).Language
		case "zh", "en":
			lang = types.ParseLanguage(speakLang)
		default:
			return fmt.Errorf("unsupported language %q", speakLang)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		speech, cred, ok := cfg.ResolveSpeech()
		if !ok {
			return fmt.Errorf("remote speech is not configured")
		}

		ctx := context.Background()
		synth, err := tts.NewSynthesizer(ctx, cred.Type, cred.APIKey, cred.BaseURL, speech.Model, tts.Voices{
			Zh: speech.VoiceZh,
			En: speech.VoiceEn,
		})
		if err != nil {
			return err
		}

		audio, err := synth.Synthesize(ctx, text, lang)
		if err != nil {
			return fmt.Errorf("synthesize: %w", err)
		}
		if err := os.WriteFile(speakOutput, audio.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", speakOutput, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s (%s)\n", len(audio.Data), speakOutput, audio.MIMEType)
		if exts, _ := mime.ExtensionsByType(audio.MIMEType); verbose && len(exts) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "  suggested extension: %s\n", exts[0])
		}
		return nil
	},
}

func init() {
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "", "output audio file")
	speakCmd.Flags().StringVar(&speakLang, "lang", "", "language of the text (zh or en)")
	rootCmd.AddCommand(speakCmd)
}
