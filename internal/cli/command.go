package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ordkort/internal"
	"ordkort/internal/config"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ordkort [words-file]",
		Short: "Danish Anki Flashcard Pipeline",
		Long: `ordkort turns a Danish word list into finished Anki flashcards.

For every word it generates an example sentence and translations with
Gemini, synthesizes pronunciation audio, and delivers the note to a
running Anki through AnkiConnect. Progress is checkpointed after every
step, so an interrupted run resumes exactly where it stopped.

Examples:
  ordkort                       # Process ./words.txt
  ordkort mywords.txt           # Process a specific word list
  ordkort --retry-failed        # Also reprocess words that failed before
  ordkort export --csv          # Offline export instead of AnkiConnect`,
		Args:    cobra.MaximumNArgs(1),
		Version: internal.Version,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.ordkort.yaml)")

	// Local flags
	cmd.Flags().StringVarP(&flags.WordsFile, "words", "w", flags.WordsFile, "Word list file, one word or phrase per line")
	cmd.Flags().StringVar(&flags.DeckName, "deck", flags.DeckName, "Anki deck receiving the notes")
	cmd.Flags().StringVar(&flags.NoteModel, "note-model", flags.NoteModel, "Anki note type used for the forward cards")
	cmd.Flags().StringVar(&flags.AudioDir, "audio-dir", flags.AudioDir, "Directory for synthesized audio files")
	cmd.Flags().StringVar(&flags.CheckpointFile, "checkpoint", flags.CheckpointFile, "Checkpoint file recording per-word progress")
	cmd.Flags().Float64Var(&flags.TTSDelay, "tts-delay", flags.TTSDelay, "Minimum seconds between API calls of the same kind")
	cmd.Flags().BoolVar(&flags.SkipExistingAudio, "skip-existing-audio", false, "Reuse audio files that already exist on disk")
	cmd.Flags().BoolVar(&flags.TestMode, "test-mode", false, "Never call TTS providers, require existing audio files")
	cmd.Flags().BoolVar(&flags.ReverseCards, "reverse-cards", false, "Also add English-to-Danish reverse notes")
	cmd.Flags().BoolVar(&flags.RetryFailed, "retry-failed", false, "Reprocess words that failed in an earlier run")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available models and voices, then exit")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Move the checkpoint and audio directory into a timestamped archive, then exit")
	cmd.Flags().BoolVar(&flags.SaveConfig, "save-config", false, "Write the resolved configuration to the config file, then exit")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	// Audio provider flags
	cmd.Flags().StringVar(&flags.AudioProvider, "audio-provider", flags.AudioProvider, "Audio provider: gemini, openai or espeak")
	cmd.Flags().StringVarP(&flags.AudioFormat, "format", "f", flags.AudioFormat, "Audio format (wav or mp3)")
	cmd.Flags().StringVar(&flags.Voice, "voice", "", "Voice for the selected provider (default: provider default)")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("words_file", cmd.Flags().Lookup("words"))
	viper.BindPFlag("deck_name", cmd.Flags().Lookup("deck"))
	viper.BindPFlag("model_name", cmd.Flags().Lookup("note-model"))
	viper.BindPFlag("audio_dir", cmd.Flags().Lookup("audio-dir"))
	viper.BindPFlag("checkpoint_file", cmd.Flags().Lookup("checkpoint"))
	viper.BindPFlag("tts_delay", cmd.Flags().Lookup("tts-delay"))
	viper.BindPFlag("skip_existing_audio", cmd.Flags().Lookup("skip-existing-audio"))
	viper.BindPFlag("test_mode", cmd.Flags().Lookup("test-mode"))
	viper.BindPFlag("reverse_cards", cmd.Flags().Lookup("reverse-cards"))
	viper.BindPFlag("retry_failed", cmd.Flags().Lookup("retry-failed"))
	viper.BindPFlag("audio.provider", cmd.Flags().Lookup("audio-provider"))
	viper.BindPFlag("audio.format", cmd.Flags().Lookup("format"))
	viper.BindPFlag("audio.voice", cmd.Flags().Lookup("voice"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	config.SetDefaults()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".ordkort" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ordkort")
	}

	// Environment variables
	viper.SetEnvPrefix("ORDKORT")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// DefaultConfigPath returns where --save-config writes when no explicit
// config file was given
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ordkort.yaml"
	}
	return filepath.Join(home, ".ordkort.yaml")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	// First check environment variable
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("gemini_api_key")
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("audio.openai_key")
}
