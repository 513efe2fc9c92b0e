// Package commands implements the livetrans command line.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.aimuz.me/livetrans/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "livetrans",
	Short: "Real-time Chinese/English translator",
	Long: `livetrans - translate between Chinese and English as you type.

Run 'livetrans serve' and open the page in a browser. Text typed or dictated
on the page is translated incrementally; the result can be spoken or copied.

Credentials come from the config file or the environment:
  GEMINI_API_KEY   use Gemini for translation and speech
  OPENAI_API_KEY   use OpenAI for translation and speech

Examples:
  livetrans serve --addr 127.0.0.1:8787
  livetrans translate "你好，世界"
  echo "good morning" | livetrans translate
  livetrans speak -o hello.wav "Hello there"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return config.LoadDotEnv(envFiles...)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
}

// loadConfig reads the config file named by --config, or the default one.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFrom(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
