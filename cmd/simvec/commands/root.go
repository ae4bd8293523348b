package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/simvec/simvec"
	"github.com/simvec/simvec/embedding"
	"github.com/simvec/simvec/metric"
)

var cfgFile string

// payload is the record payload type used by the CLI: arbitrary JSON
// metadata attached to each vector.
type payload = map[string]any

var rootCmd = &cobra.Command{
	Use:           "simvec",
	Short:         "simvec - embedded embedding similarity index",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `simvec maintains a snapshot file holding vector records and answers
nearest-neighbor queries against it.

Records are ingested from JSONL files ({"id": ..., "vector": [...], "payload": {...}})
or embedded from raw text with an OpenAI embedder. Queries take an explicit
vector or a text string to embed.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.simvec.yaml)")
	rootCmd.PersistentFlags().String("snapshot", defaultSnapshotPath(), "snapshot file to operate on")
	rootCmd.PersistentFlags().String("metric", "cosine", "similarity metric for new snapshots (dot|cosine)")
	rootCmd.PersistentFlags().String("index", "smallworld", "index kind for new snapshots (exact|smallworld)")
	rootCmd.PersistentFlags().Int("dim", 1536, "vector dimension for new snapshots")
	rootCmd.PersistentFlags().Int("m", 16, "graph connectivity for new smallworld snapshots")
	rootCmd.PersistentFlags().Int("ef-construction", 128, "build-time beam width for new smallworld snapshots")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key for text embedding")
	rootCmd.PersistentFlags().String("embedding-model", "", "OpenAI embedding model (default text-embedding-3-small)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	for _, name := range []string{"snapshot", "metric", "index", "dim", "m", "ef-construction", "openai-api-key", "embedding-model", "verbose"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".simvec")
	}

	viper.SetEnvPrefix("SIMVEC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func defaultSnapshotPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vectors.simvec"
	}
	return filepath.Join(home, ".simvec", "vectors.simvec")
}

func cliLogger() *simvec.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return simvec.NewTextLogger(level)
}

func dbOptions() []simvec.Option {
	opts := []simvec.Option{simvec.WithLogger(cliLogger())}
	if e := newEmbedder(); e != nil {
		opts = append(opts, simvec.WithEmbedder(e))
	}
	return opts
}

func newEmbedder() embedding.Embedder {
	apiKey := viper.GetString("openai-api-key")
	if apiKey == "" {
		return nil
	}
	var optFns []embedding.OpenAIOption
	if model := viper.GetString("embedding-model"); model != "" {
		optFns = append(optFns, embedding.WithModel(openai.EmbeddingModel(model)))
	}
	return embedding.NewOpenAI(apiKey, optFns...)
}

// openDB loads the snapshot if it exists, or creates a fresh database from
// the configured flags when create is true.
func openDB(ctx context.Context, create bool) (*simvec.DB[payload], error) {
	path := viper.GetString("snapshot")

	db, err := simvec.LoadFromFile[payload](ctx, path, dbOptions()...)
	if err == nil {
		return db, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	if !create {
		return nil, fmt.Errorf("snapshot %s does not exist (run 'simvec ingest' first)", path)
	}

	return newDBFromFlags()
}

func newDBFromFlags() (*simvec.DB[payload], error) {
	dim := viper.GetInt("dim")
	opts := dbOptions()

	m, err := metric.Parse(viper.GetString("metric"))
	if err != nil {
		return nil, err
	}

	switch kind := viper.GetString("index"); kind {
	case string(simvec.IndexKindExact):
		b := simvec.Exact[payload](dim).Options(opts...)
		if m == metric.Dot {
			b = b.Dot()
		} else {
			b = b.Cosine()
		}
		return b.Build()
	case string(simvec.IndexKindSmallWorld):
		b := simvec.SmallWorld[payload](dim).
			M(viper.GetInt("m")).
			EFConstruction(viper.GetInt("ef-construction")).
			Options(opts...)
		if m == metric.Dot {
			b = b.Dot()
		} else {
			b = b.Cosine()
		}
		return b.Build()
	default:
		return nil, fmt.Errorf("unknown index kind %q", kind)
	}
}

func saveDB(ctx context.Context, db *simvec.DB[payload]) error {
	path := viper.GetString("snapshot")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return db.SaveToFile(ctx, path)
}
