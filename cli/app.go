package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/coursepilot/engine/infra/server"
	"github.com/compozy/coursepilot/engine/knowledge/embedder"
	"github.com/compozy/coursepilot/engine/knowledge/ingest"
	"github.com/compozy/coursepilot/engine/knowledge/retriever"
	"github.com/compozy/coursepilot/engine/knowledge/vectordb"
	"github.com/compozy/coursepilot/engine/llm"
	"github.com/compozy/coursepilot/engine/loader"
	"github.com/compozy/coursepilot/engine/loader/youtube"
	"github.com/compozy/coursepilot/engine/rag"
	"github.com/compozy/coursepilot/pkg/config"
	"github.com/compozy/coursepilot/pkg/logger"
)

// app wires the service graph shared by every command: config, logger,
// vector store, ingest pipeline, RAG engine, and the optional YouTube loader.
type app struct {
	cfg          *config.Config
	log          logger.Logger
	store        vectordb.Store
	releaseStore func(context.Context) error
	pipeline     *ingest.Pipeline
	engine       *rag.Engine
	youtube      *youtube.Loader
}

func newApp(cmd *cobra.Command) (context.Context, *app, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log := buildLogger(cfg)
	ctx = logger.ContextWithLogger(ctx, log)

	store, release, err := vectordb.AcquireShared(ctx, storeConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	a := &app{cfg: cfg, log: log, store: store, releaseStore: release}
	if err := a.buildServices(ctx); err != nil {
		a.Close(ctx)
		return nil, nil, err
	}
	return ctx, a, nil
}

func (a *app) buildServices(ctx context.Context) error {
	emb, err := embedder.New(ctx, &embedder.Config{
		Provider:      embedder.Provider(a.cfg.Embedder.Provider),
		Model:         a.cfg.Embedder.Model,
		APIKey:        a.cfg.Embedder.APIKey,
		Dimension:     a.cfg.Embedder.Dimension,
		BatchSize:     a.cfg.Embedder.BatchSize,
		StripNewLines: a.cfg.Embedder.StripNewLines,
		CacheSize:     a.cfg.Embedder.CacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.pipeline, err = ingest.NewPipeline(emb, a.store, ingest.Config{
		ChunkSize:    a.cfg.Ingest.ChunkSize,
		ChunkOverlap: a.cfg.Ingest.ChunkOverlap,
		BatchSize:    a.cfg.Embedder.BatchSize,
		Retry: ingest.Retry{
			Attempts:   a.cfg.Ingest.RetryAttempts,
			Backoff:    a.cfg.Ingest.RetryBackoff,
			MaxBackoff: a.cfg.Ingest.RetryMaxBackoff,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ingest pipeline: %w", err)
	}
	estimator := retriever.NewTokenEstimator(a.cfg.Embedder.Model)
	retr, err := retriever.NewService(emb, a.store, estimator, retriever.Options{
		TopK:      a.cfg.RAG.TopK,
		MinScore:  a.cfg.RAG.MinScore,
		MaxTokens: a.cfg.RAG.MaxContextTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize retriever: %w", err)
	}
	client, err := llm.NewClient(ctx, &llm.Config{
		Provider:    llm.Provider(a.cfg.LLM.Provider),
		Model:       a.cfg.LLM.Model,
		APIKey:      a.cfg.LLM.APIKey,
		Temperature: a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	a.engine, err = rag.NewEngine(retr, client, a.cfg.RAG.PromptHeader)
	if err != nil {
		return fmt.Errorf("failed to initialize RAG engine: %w", err)
	}
	if a.cfg.ValidateYouTube() == nil {
		a.youtube, err = youtube.New(ctx, youtube.Config{
			APIKey:            a.cfg.YouTube.APIKey,
			MaxVideos:         int64(a.cfg.YouTube.MaxVideos),
			RequestsPerSecond: a.cfg.YouTube.RequestsPerSecond,
		}, a.pipeline)
		if err != nil {
			return fmt.Errorf("failed to initialize youtube loader: %w", err)
		}
	}
	return nil
}

// Close releases the shared vector store reference.
func (a *app) Close(ctx context.Context) {
	if a.releaseStore == nil {
		return
	}
	if err := a.releaseStore(ctx); err != nil {
		a.log.Error("Failed to release vector store", "error", err)
	}
}

func (a *app) dependencies() *server.Dependencies {
	deps := &server.Dependencies{
		Ingest:           a.pipeline,
		RAG:              a.engine,
		PDF:              loader.NewPDFLoader(),
		DefaultChannelID: a.cfg.YouTube.ChannelID,
	}
	if a.youtube != nil {
		deps.YouTube = a.youtube
	}
	return deps
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("log-level") {
		if level, err := cmd.Flags().GetString("log-level"); err == nil && level != "" {
			cfg.Log.Level = level
		}
	}
	if cmd.Flags().Changed("json-logs") {
		if jsonLogs, err := cmd.Flags().GetBool("json-logs"); err == nil {
			cfg.Log.JSON = jsonLogs
		}
	}
}

func buildLogger(cfg *config.Config) logger.Logger {
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LogLevel(cfg.Log.Level)
	logCfg.JSON = cfg.Log.JSON
	return logger.NewLogger(logCfg)
}

func storeConfig(cfg *config.Config) *vectordb.Config {
	out := &vectordb.Config{
		ID:        "default",
		Provider:  vectordb.Provider(cfg.Store.Provider),
		DSN:       cfg.Store.DSN,
		Path:      cfg.Store.Path,
		Index:     cfg.Store.Index,
		Namespace: cfg.Store.Namespace,
		Metric:    cfg.Store.Metric,
		Dimension: cfg.Store.Dimension,
	}
	if out.Provider == vectordb.ProviderPinecone {
		out.DSN = pineconeHost(&cfg.Store)
		out.Auth = map[string]string{"api_key": cfg.Store.APIKey}
	}
	return out
}

// pineconeHost prefers an explicit data-plane host and falls back to the
// index/environment form used by pod-based indexes.
func pineconeHost(store *config.StoreConfig) string {
	if host := strings.TrimSpace(store.Host); host != "" {
		if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
			return host
		}
		return "https://" + host
	}
	return fmt.Sprintf("https://%s.svc.%s.pinecone.io", store.Index, store.Environment)
}
