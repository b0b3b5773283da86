package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/companion/internal/config"
	"github.com/rcliao/companion/internal/llm"
	"github.com/rcliao/companion/internal/media"
	"github.com/rcliao/companion/internal/ratelimit"
	"github.com/rcliao/companion/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay HTTP server",
		RunE:  runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, :3000)")
	cmd.Flags().Bool("no-store", false, "Do not persist moods and memories")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	noStore, _ := cmd.Flags().GetBool("no-store")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("no LLM API key configured; set OPENROUTER_API_KEY")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter, closeLimiter, err := newLimiter(cfg.RateLimit)
	if err != nil {
		return err
	}
	defer closeLimiter()

	srvCfg := server.Config{
		LLM: llm.New(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			VisionModel: cfg.LLM.VisionModel,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.GetLLMTimeout(),
			Logger:      logger.Named("llm"),
		}),
		Limiter:         limiter,
		Logger:          logger.Named("relay"),
		Model:           cfg.LLM.Model,
		HistoryLimit:    cfg.Server.HistoryLimit,
		MaxMemories:     cfg.Server.MaxMemories,
		ShutdownTimeout: cfg.GetShutdownTimeout(),
		PruneInterval:   cfg.GetRateWindow(),
	}

	mc, err := media.New(media.Config{
		CloudName:    cfg.Media.CloudName,
		APIKey:       cfg.Media.APIKey,
		APISecret:    cfg.Media.APISecret,
		Folder:       cfg.Media.Folder,
		UploadPreset: cfg.Media.UploadPreset,
	})
	if err != nil {
		logger.Warn("media routes disabled", zap.Error(err))
	} else {
		srvCfg.Media = mc
	}

	if !noStore {
		s, err := openStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		srvCfg.Store = s
	}

	return server.New(srvCfg).ListenAndServe(ctx, addr)
}

func newLimiter(rc config.RateLimitConfig) (ratelimit.Limiter, func(), error) {
	window := cfg.GetRateWindow()
	if rc.Backend != config.BackendRedis {
		return ratelimit.NewMemoryLimiter(rc.Requests, window), func() {}, nil
	}

	client, err := ratelimit.NewRedisClient(rc.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("rate limiting through redis", zap.String("addr", client.Options().Addr))
	l := ratelimit.NewRedisLimiter(client, rc.Requests, window)
	return l, func() { l.Close() }, nil
}
