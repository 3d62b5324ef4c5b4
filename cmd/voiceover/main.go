// Command voiceover regenerates automatic voiceovers for lesson
// content and inspects the synthesis cache.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/wangjess/oppia/internal/blobstore"
	"github.com/wangjess/oppia/internal/config"
	"github.com/wangjess/oppia/internal/secrets"
	"github.com/wangjess/oppia/internal/speech"
	"github.com/wangjess/oppia/internal/speech/azure"
	"github.com/wangjess/oppia/internal/speech/devmode"
	"github.com/wangjess/oppia/internal/voiceover"
	"github.com/wangjess/oppia/internal/voiceovercache"
)

var (
	flagEntityID string
	flagAccent   string
	flagOutput   string
)

func main() {
	root := &cobra.Command{
		Use:          "voiceover",
		Short:        "Automatic voiceover regeneration for lesson content",
		SilenceUsage: true,
	}

	regenerate := &cobra.Command{
		Use:   "regenerate [markup file]",
		Short: "Synthesize a voiceover for a lesson markup file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegenerate,
	}
	regenerate.Flags().StringVar(&flagEntityID, "entity", "exploration", "entity ID the content belongs to")
	regenerate.Flags().StringVar(&flagAccent, "accent", "en-US", "language-accent code")
	regenerate.Flags().StringVar(&flagOutput, "output", "voiceover.mp3", "voiceover filename to commit the audio under")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show synthesis cache statistics",
		RunE:  runStats,
	}
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Synthesis cache operations",
	}
	cache.AddCommand(stats)

	initConfig := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write an example configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return config.WriteExample(args[0])
		},
	}

	root.AddCommand(regenerate, cache, initConfig)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.InitLogging(cfg.DebugLogging)

	markup, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read markup file: %w", err)
	}

	cache, closeCache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	blobs, err := blobstore.NewFileStore(cfg.BlobDir)
	if err != nil {
		return err
	}

	regenerator := voiceover.New(cache, newProvider(cfg), blobs, cfg.SynthesisTimeout())

	timings, err := regenerator.Regenerate(cmd.Context(), flagEntityID, string(markup), flagAccent, flagOutput)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(timings)
}

func runStats(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.InitLogging(cfg.DebugLogging)

	cache, closeCache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	fmt.Printf("entries: %d\n", cache.Len())
	stats := cache.Stats()
	fmt.Printf("hits: %d\nmisses: %d\n", stats.Hits, stats.Misses)
	return nil
}

func newProvider(cfg *config.Config) speech.Provider {
	if cfg.Provider == config.ProviderNameAzure {
		log.Debug("using live synthesis provider", "region", cfg.AzureRegion)
		return azure.New(secrets.EnvProvider{}, cfg.AzureRegion)
	}
	log.Debug("using dev-mode synthesis provider", "fixtures", cfg.FixturesDir)
	return devmode.New(cfg.FixturesDir)
}

func openCache(cfg *config.Config) (*voiceovercache.Cache, func(), error) {
	store, err := voiceovercache.NewDiskStore(cfg.CacheDir)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close cache store", "error", err)
		}
	}
	return voiceovercache.New(store), closeStore, nil
}
