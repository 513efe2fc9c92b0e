package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"go.aimuz.me/livetrans/internal/app"
	"go.aimuz.me/livetrans/internal/types"
)

var translateQuiet bool

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate text once and print the result",
	Long: `Translate text between Chinese and English.

The text is taken from the arguments, or from stdin when none are given.
Output is printed as it streams in.

Examples:
  livetrans translate "今天天气不错"
  cat notes.txt | livetrans translate -q`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("nothing to translate")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		out := cmd.OutOrStdout()
		p := &streamPrinter{w: out}
		var final *types.TranslationResult
		err = a.Translate(ctx, text, func(r types.TranslationResult) {
			if !translateQuiet {
				p.print(r.Text)
			}
			if r.Complete {
				final = &r
			}
		})
		if translateQuiet && final != nil {
			fmt.Fprint(out, final.Text)
		}
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("translate: %w", err)
		}

		if verbose && final != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "  source: %s\n", final.Language)
			if u := final.Usage; u != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "  tokens: %d (cache hit: %v)\n", u.TotalTokens, u.CacheHit)
			}
		}
		return nil
	},
}

// streamPrinter writes only the part of each partial result not yet printed.
// Partial results only ever extend the previous one.
type streamPrinter struct {
	w       io.Writer
	printed int
}

func (p *streamPrinter) print(text string) {
	if len(text) <= p.printed {
		return
	}
	fmt.Fprint(p.w, text[p.printed:])
	p.printed = len(text)
}

func init() {
	translateCmd.Flags().BoolVarP(&translateQuiet, "quiet", "q", false, "print only the final translation")
	rootCmd.AddCommand(translateCmd)
}
