package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/lookie/backend/internal/config"
	"github.com/zhouzirui/lookie/backend/internal/handler"
	"github.com/zhouzirui/lookie/backend/internal/logging"
	"github.com/zhouzirui/lookie/backend/internal/model/persona"
	"github.com/zhouzirui/lookie/backend/internal/service/ai"
	"github.com/zhouzirui/lookie/backend/internal/service/chat"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	// 配置加载前先用默认生产日志输出致命错误
	boot, _ := zap.NewProduction()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		boot.Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	client := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout,
		gateway.WithLogger(logger.Named("gateway")))

	opts := []chat.Option{
		chat.WithLogger(logger.Named("session")),
		chat.WithLookbookPublisher(client),
		chat.WithDeleteTimeout(cfg.Gateway.DeleteTimeout),
	}

	// 大模型只用于完成穿搭后的点评，缺失时使用固定文案
	switch {
	case !cfg.AI.Enabled():
		logger.Info("Ark 凭证未配置，跳过穿搭点评")
	case !cfg.AI.NarrationEnabled:
		logger.Info("outfit narration disabled by configuration")
	default:
		narrator, err := ai.NewNarrator(ctx, personaStore, cfg.AI, logger.Named("narrator"))
		if err != nil {
			logger.Warn("failed to initialize narrator, continuing without it", zap.Error(err))
		} else {
			opts = append(opts, chat.WithNarrator(narrator))
			logger.Info("outfit narrator initialized", zap.String("model", cfg.AI.Model))
		}
	}

	chatService := chat.NewService(client, personaStore, opts...)
	go runJanitor(ctx, chatService, cfg.Session.IdleTimeout, logger)

	router := handler.NewRouter(personaStore, chatService, handler.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TypingDelay:    cfg.Typing.Delay,
		Logger:         logger,
	})

	startServer(ctx, cfg.Server, router, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.DeleteTimeout+time.Second)
	defer cancel()
	if err := chatService.Shutdown(shutdownCtx); err != nil {
		logger.Warn("session cleanup incomplete", zap.Error(err))
	}
	logger.Info("lookie backend stopped")
}

// runJanitor 定期清理长时间无操作的会话
func runJanitor(ctx context.Context, svc *chat.Service, idle time.Duration, logger *zap.Logger) {
	if idle <= 0 {
		return
	}
	interval := idle / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.SweepIdle(idle); n > 0 {
				logger.Info("expired idle sessions", zap.Int("count", n), zap.Int("active", svc.Len()))
			}
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("lookie backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
