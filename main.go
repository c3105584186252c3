package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/aktagon/hourly-writer/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
)

var (
	settingsPath string
	contentDir   string
	debugMode    bool

	apiKey       string
	promptPath   string
	templatePath string
	reindex      bool
	dryRun       bool

	listLimit  int
	listTitles bool
)

var rootCmd = &cobra.Command{
	Use:   "hourly-writer",
	Short: "Hourly AI content generator with a date/hour partitioned store",
	Long: `Generates a set of articles every hour, stores them under content/YYYY/MM/DD/
and maintains content/index.json for the static site and feed readers.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetPrefix(fmt.Sprintf("[%s] ", uuid.New().String()[:8]))
		if debugMode {
			SetDebugMode(true)
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the content of the current hour",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		overrides := buildOverrides()
		if promptPath != "" {
			overrides.PromptPath = &promptPath
		}
		if templatePath != "" {
			overrides.TemplatePath = &templatePath
		}

		config, err := NewConfig(overrides)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		generator, err := NewGenerator(config.Settings.Agent, apiKey)
		if err != nil {
			log.Fatalf("Failed to create generator: %v", err)
		}

		st, err := store.New(config.Settings.ContentDirectory)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}

		processor := NewContentProcessor(config, generator, st)
		processor.SetDryRun(dryRun)

		result, err := processor.RunCycle(context.Background())
		if err != nil {
			var pwe *store.PartialWriteError
			if errors.As(err, &pwe) {
				for _, path := range pwe.Written {
					log.Printf("✓ Saved: %s", path)
				}
			}
			log.Fatalf("✗ Generation failed: %v", err)
		}

		if dryRun {
			fmt.Print(result.Document)
			return
		}
		log.Printf("✓ JSON saved: %s", result.JSONPath)
		log.Printf("✓ Markdown saved: %s", result.MDPath)

		if reindex {
			rebuildIndex(st)
		}
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild content/index.json from the stored cycles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := NewConfig(buildOverrides())
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		st, err := store.New(config.Settings.ContentDirectory)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		rebuildIndex(st)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Copy the site and content into the dist directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := NewConfig(buildOverrides())
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		builder, err := NewBuilder(config.Settings)
		if err != nil {
			log.Fatalf("Failed to prepare build: %v", err)
		}
		stats, err := builder.Build()
		if err != nil {
			log.Fatalf("Build failed: %v", err)
		}
		log.Printf("✓ Build complete: %s (%d site files, %d content files, %d excluded)",
			config.Settings.DistDirectory, stats.SiteFiles, stats.ContentFiles, stats.Excluded)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored cycles, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := NewConfig(buildOverrides())
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		st, err := store.New(config.Settings.ContentDirectory)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		idx, err := loadIndex(st, time.Now())
		if err != nil {
			log.Fatalf("Failed to load index: %v", err)
		}
		if err := writeListing(os.Stdout, st, idx, listLimit, listTitles); err != nil {
			log.Fatalf("Failed to list: %v", err)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hourly-writer %s\n", version)
	},
}

// rebuildIndex rebuilds the index and exits on failure
func rebuildIndex(st *store.Store) {
	log.Printf("→ Updating index...")
	idx, skipped, err := st.RebuildIndex(time.Now())
	for _, s := range skipped {
		debugLog("skipped %s: %s", s.Path, s.Reason)
	}
	if err != nil {
		log.Fatalf("✗ Index update failed: %v", err)
	}
	log.Printf("✓ Index updated: %s/%s (%d entries)", st.Root(), store.IndexFile, idx.TotalCount)
}

func buildOverrides() *ConfigOverrides {
	overrides := &ConfigOverrides{}
	if settingsPath != "" {
		overrides.SettingsPath = &settingsPath
	}
	if contentDir != "" {
		overrides.ContentDirPath = &contentDir
	}
	return overrides
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to settings file")
	rootCmd.PersistentFlags().StringVar(&contentDir, "content-dir", "", "Override the content directory")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	generateCmd.Flags().StringVar(&apiKey, "api-key", "", "Generation service API key")
	generateCmd.Flags().StringVar(&promptPath, "prompt", "", "Path to custom prompt template file")
	generateCmd.Flags().StringVar(&templatePath, "template", "", "Path to custom markdown template file")
	generateCmd.Flags().BoolVar(&reindex, "reindex", false, "Rebuild the index after a successful cycle")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print the document without writing")

	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Show at most N cycles (0 = all)")
	listCmd.Flags().BoolVar(&listTitles, "titles", false, "Show the titles of each cycle")

	rootCmd.AddCommand(generateCmd, indexCmd, buildCmd, listCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
