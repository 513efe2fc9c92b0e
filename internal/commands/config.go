package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.aimuz.me/livetrans/cache"
	"go.aimuz.me/livetrans/config"
	"go.aimuz.me/livetrans/internal/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage credentials, translation profiles and speech settings.

Examples:
  livetrans config add-credential --name work --type openai --api-key sk-...
  livetrans config add-profile --name fast --credential <id> --model gpt-4o-mini
  livetrans config set-speech --credential <id> --voice-zh Kore --voice-en Puck
  livetrans config show
  livetrans config clear-cache`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			fmt.Fprintln(cmd.OutOrStdout(), configPath)
			return nil
		}
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with keys masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		shown := *cfg
		shown.Credentials = make([]types.APICredential, len(cfg.Credentials))
		for i, c := range cfg.Credentials {
			c.APIKey = maskKey(c.APIKey)
			shown.Credentials[i] = c
		}
		data, err := json.MarshalIndent(&shown, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials and translation profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREDENTIAL\tNAME\tTYPE\tKEY")
		for _, c := range cfg.Credentials {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Type, maskKey(c.APIKey))
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "PROFILE\tNAME\tMODEL\tACTIVE")
		active := cfg.GetActiveTranslationProfile()
		for _, p := range cfg.TranslationProfiles {
			mark := ""
			if active != nil && active.ID == p.ID {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Model, mark)
		}
		return tw.Flush()
	},
}

var (
	credName    string
	credType    string
	credAPIKey  string
	credBaseURL string
)

var configAddCredentialCmd = &cobra.Command{
	Use:   "add-credential",
	Short: "Store an API credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cred := types.APICredential{
			Name:    credName,
			Type:    credType,
			APIKey:  credAPIKey,
			BaseURL: credBaseURL,
		}
		if err := cfg.AddCredential(cred); err != nil {
			return err
		}
		added := cfg.Credentials[len(cfg.Credentials)-1]
		fmt.Fprintf(cmd.OutOrStdout(), "added credential %s (%s)\n", added.Name, added.ID)
		return nil
	},
}

var configRemoveCredentialCmd = &cobra.Command{
	Use:   "remove-credential <id>",
	Short: "Remove an unused API credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return cfg.RemoveCredential(args[0])
	},
}

var (
	profileName        string
	profileCredential  string
	profileModel       string
	profilePrompt      string
	profileActive      bool
	profileTemperature float64
)

var configAddProfileCmd = &cobra.Command{
	Use:   "add-profile",
	Short: "Add a translation profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := types.TranslationProfile{
			Name:         profileName,
			CredentialID: profileCredential,
			Model:        profileModel,
			SystemPrompt: profilePrompt,
			Active:       profileActive,
		}
		if cmd.Flags().Changed("temperature") {
			p.Temperature = &profileTemperature
		}
		if err := cfg.AddTranslationProfile(p); err != nil {
			return err
		}
		added := cfg.TranslationProfiles[len(cfg.TranslationProfiles)-1]
		fmt.Fprintf(cmd.OutOrStdout(), "added profile %s (%s)\n", added.Name, added.ID)
		return nil
	},
}

var configUseProfileCmd = &cobra.Command{
	Use:   "use-profile <id>",
	Short: "Make a translation profile active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return cfg.SetTranslationProfileActive(args[0])
	},
}

var (
	speechCredential string
	speechModel      string
	speechVoiceZh    string
	speechVoiceEn    string
)

var configSetSpeechCmd = &cobra.Command{
	Use:   "set-speech",
	Short: "Configure remote speech synthesis",
	Long: `Configure the provider used to speak translations.

An empty --credential turns remote synthesis off; the browser's own
voices are used instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return cfg.SetSpeechConfig(types.SpeechConfig{
			CredentialID: speechCredential,
			Model:        speechModel,
			VoiceZh:      speechVoiceZh,
			VoiceEn:      speechVoiceEn,
		})
	},
}

var configClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop every cached translation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir, err := cfg.CacheDir()
		if err != nil {
			return fmt.Errorf("get cache dir: %w", err)
		}
		c, err := cache.New(cache.Options{Dir: dir})
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()
		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared cache at %s\n", dir)
		return nil
	},
}

// maskKey keeps the last four characters of a secret.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

func init() {
	configAddCredentialCmd.Flags().StringVar(&credName, "name", "", "display name")
	configAddCredentialCmd.Flags().StringVar(&credType, "type", types.ProviderGemini, "provider: gemini, openai or openai-compatible")
	configAddCredentialCmd.Flags().StringVar(&credAPIKey, "api-key", "", "API key")
	configAddCredentialCmd.Flags().StringVar(&credBaseURL, "base-url", "", "API base URL (required for openai-compatible)")

	configAddProfileCmd.Flags().StringVar(&profileName, "name", "", "profile name")
	configAddProfileCmd.Flags().StringVar(&profileCredential, "credential", "", "credential ID")
	configAddProfileCmd.Flags().StringVar(&profileModel, "model", "", "model name")
	configAddProfileCmd.Flags().StringVar(&profilePrompt, "prompt", "", "system prompt (default built-in)")
	configAddProfileCmd.Flags().BoolVar(&profileActive, "active", false, "make this profile active")
	configAddProfileCmd.Flags().Float64Var(&profileTemperature, "temperature", 0, "sampling temperature (default 0.2)")

	configSetSpeechCmd.Flags().StringVar(&speechCredential, "credential", "", "credential ID")
	configSetSpeechCmd.Flags().StringVar(&speechModel, "model", "", "speech model (default per provider)")
	configSetSpeechCmd.Flags().StringVar(&speechVoiceZh, "voice-zh", "", "voice for Chinese")
	configSetSpeechCmd.Flags().StringVar(&speechVoiceEn, "voice-en", "", "voice for English")

	configCmd.AddCommand(
		configPathCmd,
		configShowCmd,
		configListCmd,
		configAddCredentialCmd,
		configRemoveCredentialCmd,
		configAddProfileCmd,
		configUseProfileCmd,
		configSetSpeechCmd,
		configClearCacheCmd,
	)
	rootCmd.AddCommand(configCmd)
}
