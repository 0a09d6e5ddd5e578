package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ordkort/internal/anki"
	"ordkort/internal/archive"
	"ordkort/internal/audio"
	"ordkort/internal/checkpoint"
	"ordkort/internal/cli"
	"ordkort/internal/config"
	"ordkort/internal/content"
	"ordkort/internal/models"
	"ordkort/internal/pipeline"
	"ordkort/internal/ratelimit"
	"ordkort/internal/words"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)
	rootCmd.AddCommand(cli.NewExportCommand())

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
		initLogger(flags.Verbose)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogger replaces the global zap logger. Info level by default,
// debug with --verbose.
func initLogger(verbose bool) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return
	}
	zap.ReplaceGlobals(logger)
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	// Handle --list-models flag
	if flags.ListModels {
		lister := models.NewLister(cli.GetOpenAIKey())
		return lister.ListAvailableModels()
	}

	settings, err := config.Resolve()
	if err != nil {
		return err
	}

	// Handle --archive flag
	if flags.Archive {
		archivePath, err := archive.ArchiveRun(settings.CheckpointFile, settings.AudioDir)
		if err != nil {
			return fmt.Errorf("failed to archive run: %w", err)
		}
		fmt.Printf("Run artifacts archived to: %s\n", archivePath)
		return nil
	}

	// Handle --save-config flag
	if flags.SaveConfig {
		path := flags.CfgFile
		if path == "" {
			path = cli.DefaultConfigPath()
		}
		if err := config.Save(path); err != nil {
			return err
		}
		fmt.Printf("Configuration written to: %s\n", path)
		return nil
	}

	// The positional argument overrides the configured word list
	if len(args) > 0 {
		settings.WordsFile = args[0]
	}

	list, err := words.Load(settings.WordsFile)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("word list %s contains no words", settings.WordsFile)
	}

	store, err := openCheckpoint(settings.CheckpointFile)
	if err != nil {
		return err
	}
	if sum := store.Summary(); sum.Total > 0 {
		zap.S().Infof("Checkpoint has %d words: %d delivered, %d failed, %d in progress",
			sum.Total, sum.Delivered, sum.Failed, sum.Total-sum.Delivered-sum.Failed)
	}

	orch, err := buildPipeline(cmd.Context(), settings, store)
	if err != nil {
		return err
	}

	// SIGINT finishes the word in flight, checkpoints it and stops
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := orch.Run(ctx, list)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		fmt.Printf("\n%d words failed, run again with --retry-failed to reprocess them:\n", summary.Failed)
		for _, fw := range summary.FailedWords {
			fmt.Printf("  %s: %s\n", fw.Word, fw.Reason)
		}
	}

	return nil
}

// openCheckpoint loads the checkpoint, moving an unreadable file aside
// rather than refusing to run
func openCheckpoint(path string) (*checkpoint.Store, error) {
	store, err := checkpoint.Open(path)
	if err == nil {
		return store, nil
	}

	var corrupt *checkpoint.CorruptError
	if !errors.As(err, &corrupt) {
		return nil, err
	}

	zap.S().Warnf("%v, keeping it as %s.corrupt and starting fresh", corrupt, path)
	return checkpoint.Reset(path)
}

func buildPipeline(ctx context.Context, settings *config.Settings, store *checkpoint.Store) (*pipeline.Orchestrator, error) {
	generator, err := content.NewGenerator(ctx, cli.GetGeminiKey(), settings.ContentModel, settings.StylePrompt)
	if err != nil {
		return nil, err
	}

	// One limiter paces content and audio calls independently by kind
	limiter := ratelimit.NewLimiter(settings.TTSDelayDuration())

	contentPolicy := ratelimit.NewPolicy(limiter, settings.MaxAttempts, settings.CooldownDuration(), content.Classify)
	contentStage := content.NewStage(generator, contentPolicy)

	audioStage, err := buildAudioStage(settings, limiter)
	if err != nil {
		return nil, err
	}

	client := anki.NewClient(settings.Anki.URL)
	deliverer := anki.NewDeliverer(client, anki.DelivererOptions{
		DeckName:         settings.DeckName,
		ModelName:        settings.ModelName,
		ReverseModelName: settings.ReverseModelName,
		ReverseCards:     settings.ReverseCards,
		AudioDir:         settings.AudioDir,
	})

	return pipeline.New(settings, store, contentStage, audioStage, deliverer, printEvent), nil
}

func buildAudioStage(settings *config.Settings, limiter *ratelimit.Limiter) (*audio.Stage, error) {
	stageConfig := audio.StageConfig{
		Dir:           settings.AudioDir,
		Format:        settings.Audio.Format,
		SkipExisting:  settings.SkipExistingAudio,
		TestMode:      settings.TestMode,
		SentenceAudio: settings.SentenceAudio,
	}
	policy := ratelimit.NewPolicy(limiter, settings.MaxAttempts, settings.CooldownDuration(), audio.Classify)

	if settings.TestMode {
		// Test mode never calls a provider, so none is constructed and
		// no TTS credentials are needed
		return audio.NewStage(nil, policy, stageConfig), nil
	}

	providerConfig := audio.DefaultProviderConfig()
	providerConfig.Provider = settings.Audio.Provider
	providerConfig.FallbackProvider = settings.Audio.FallbackProvider
	providerConfig.Voice = settings.Audio.Voice
	if settings.Audio.Language != "" {
		providerConfig.Language = settings.Audio.Language
	}
	providerConfig.GeminiKey = cli.GetGeminiKey()
	providerConfig.OpenAIKey = cli.GetOpenAIKey()
	if settings.Audio.OpenAIModel != "" {
		providerConfig.OpenAIModel = settings.Audio.OpenAIModel
	}
	if settings.Audio.OpenAISpeed != 0 {
		providerConfig.OpenAISpeed = settings.Audio.OpenAISpeed
	}

	provider, err := audio.NewProvider(providerConfig)
	if err != nil {
		return nil, err
	}

	return audio.NewStage(provider, policy, stageConfig), nil
}

// printEvent renders pipeline progress for the terminal. Stage changes
// only show up in debug logging, finished words always print.
func printEvent(e pipeline.Event) {
	switch e.Type {
	case pipeline.EventRunStarted:
		fmt.Println(e.Message)
	case pipeline.EventWordStageChanged:
		zap.S().Debugf("%s -> %s", e.Word, e.Status)
	case pipeline.EventWordFinished:
		if e.Message != "" {
			fmt.Printf("  %s: %s (%s)\n", e.Word, e.Status, e.Message)
		} else {
			fmt.Printf("  %s: %s\n", e.Word, e.Status)
		}
	case pipeline.EventRunFinished:
		fmt.Printf("\n%s\n", e.Message)
	case pipeline.EventLog:
		fmt.Println(e.Message)
	}
}
