// Package cli implements the mnemo CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-dev/mnemo/internal/assembler"
	"github.com/mnemo-dev/mnemo/internal/classify"
	"github.com/mnemo-dev/mnemo/internal/config"
	"github.com/mnemo-dev/mnemo/internal/embedding"
	"github.com/mnemo-dev/mnemo/internal/memory"
	"github.com/mnemo-dev/mnemo/internal/store"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

var (
	cfgPath    string
	dbFlag     string
	userFlag   string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Token-budgeted memory for AI agents",
	Long: "Working memory with relevance-based eviction, vector-searchable long-term\n" +
		"memory, and intent-weighted context assembly. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: $MNEMO_CONFIG or ~/.mnemo/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbFlag, "db", "d", "", "Database path (overrides config)")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User ID (default: $MNEMO_USER or \"default\")")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func userID() string {
	if userFlag != "" {
		return userFlag
	}
	if env := os.Getenv("MNEMO_USER"); env != "" {
		return env
	}
	return "default"
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	return cfg
}

func openStore(cfg *config.Config) *store.Store {
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

// openManager wires the full pipeline: store, vector index, embedder, and
// classifier per the loaded config.
func openManager() (*memory.Manager, func()) {
	cfg := loadConfig()
	s := openStore(cfg)

	ix, err := vector.NewPersistent(cfg.VectorPath)
	if err != nil {
		s.Close()
		exitErr("open vector index", err)
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		s.Close()
		exitErr("embedder", err)
	}

	mgr := memory.New(s, ix, emb, newClassifier(cfg), nil)
	return mgr, func() { s.Close() }
}

func openAssembler() (*assembler.Assembler, func()) {
	mgr, closeFn := openManager()
	return assembler.New(mgr), closeFn
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		emb = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Dims)
	case "ollama":
		emb = embedding.NewOllamaEmbedder(cfg.Embedding.Model)
	case "mock", "":
		emb = embedding.NewMockEmbedder(cfg.Embedding.Dims)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.CacheSize > 0 {
		return embedding.NewCachedEmbedder(emb, int64(cfg.Embedding.CacheSize))
	}
	return emb, nil
}

func newClassifier(cfg *config.Config) classify.Classifier {
	switch cfg.Classifier.Provider {
	case "openai":
		return classify.New(classify.NewOpenAIChat(cfg.Classifier.APIKey, cfg.Classifier.BaseURL, cfg.Classifier.Model))
	case "anthropic":
		return classify.New(classify.NewAnthropicChat(cfg.Classifier.APIKey, cfg.Classifier.Model))
	default:
		return nil
	}
}

// readContent resolves content from positional args or piped stdin.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
