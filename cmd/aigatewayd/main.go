package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"OpenAI-Gateway/internal/api"
	"OpenAI-Gateway/internal/config"
	"OpenAI-Gateway/internal/gateway"
	"OpenAI-Gateway/internal/llm/openai"
	"OpenAI-Gateway/internal/observability/alerting"
	"OpenAI-Gateway/internal/observability/metrics"
	"OpenAI-Gateway/internal/storage/mysql"
	"OpenAI-Gateway/pkg/logger"
)

// main 是 AI 网关守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("aigatewayd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("AIGATEWAY_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "aigateway.yaml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
		Access: logger.AccessConfig{
			Enabled:    cfg.Log.Access.Enabled,
			Path:       cfg.Log.Access.Path,
			MaxSizeMB:  cfg.Log.Access.MaxSizeMB,
			MaxBackups: cfg.Log.Access.MaxBackups,
			MaxAgeDays: cfg.Log.Access.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// 密钥在启动阶段解析一次，缺失时立即退出。
	apiKey, err := cfg.OpenAI.ResolveAPIKey()
	if err != nil {
		return err
	}

	llmClient, err := openai.NewClient(openai.Config{
		APIKey:  apiKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout(),
	})
	if err != nil {
		return err
	}

	if cfg.Storage.MySQL.DSN != "" {
		db, err := mysql.Open(ctx, mysql.Config{
			DSN:             cfg.Storage.MySQL.DSN,
			MaxOpenConns:    cfg.Storage.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.MySQL.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Storage.MySQL.ConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Storage.MySQL.ConnMaxIdleTimeSeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.L().Warn("关闭 MySQL 连接失败", "error", err)
			}
		}()
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(ctx, cfg.Metrics.Address); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("指标服务异常退出", "error", err)
			}
		}()
	}

	svc := gateway.NewService(llmClient)
	alerts := alerting.NewFanout(&alerting.LogNotifier{})

	server := api.NewServer(cfg.Server.Address, svc,
		api.WithModelDefaults(api.ModelDefaults{
			Generate:  cfg.OpenAI.Models.Generate,
			Translate: cfg.OpenAI.Models.Translate,
			Code:      cfg.OpenAI.Models.Code,
		}),
		api.WithAlertDispatcher(alerts),
	)

	logger.L().Info("aigatewayd 启动", "address", cfg.Server.Address)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
