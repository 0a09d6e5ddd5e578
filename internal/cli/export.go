package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ordkort/internal/anki"
	"ordkort/internal/checkpoint"
	"ordkort/internal/config"
	"ordkort/internal/pipeline"
)

// NewExportCommand creates the export subcommand. It turns the
// checkpoint into an offline Anki package, for when AnkiConnect is not
// available.
func NewExportCommand() *cobra.Command {
	var outputPath string
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build an offline Anki package from the checkpoint",
		Long: `export collects every word with generated content from the checkpoint
and writes an .apkg package (or, with --csv, a CSV import file) that can
be imported into Anki manually. Audio files are bundled from the audio
directory; words that never got past content generation are left out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Resolve()
			if err != nil {
				return err
			}

			if outputPath == "" {
				if asCSV {
					outputPath = "anki_import.csv"
				} else {
					outputPath = "ordkort.apkg"
				}
			}

			return runExport(settings, outputPath, asCSV)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default ordkort.apkg, or anki_import.csv with --csv)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write a CSV import file instead of an APKG package")

	return cmd
}

func runExport(settings *config.Settings, outputPath string, asCSV bool) error {
	store, err := checkpoint.Open(settings.CheckpointFile)
	if err != nil {
		return err
	}

	records := store.All()
	words := make([]string, 0, len(records))
	for word := range records {
		words = append(words, word)
	}
	sort.Strings(words)

	generator := anki.NewGenerator(&anki.GeneratorOptions{
		OutputPath:     outputPath,
		AudioDir:       settings.AudioDir,
		IncludeHeaders: true,
	})

	for _, word := range words {
		rec := records[word]
		if rec.Content == nil {
			continue
		}
		generator.AddCard(pipeline.CardFor(rec))
	}

	total, withAudio, _ := generator.Stats()
	if total == 0 {
		return fmt.Errorf("no finished cards in %s, run ordkort first", settings.CheckpointFile)
	}

	if asCSV {
		if err := generator.GenerateCSV(); err != nil {
			return err
		}
	} else {
		if err := generator.GenerateAPKG(outputPath, settings.DeckName); err != nil {
			return err
		}
	}

	fmt.Printf("Exported %d cards (%d with audio) to %s\n", total, withAudio, outputPath)
	return nil
}
