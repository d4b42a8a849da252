package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/discovery/etcd"
	"DocQA/backend/go/internal/docqa_service/api"
	"DocQA/backend/go/internal/docqa_service/rag/loaders"
	httpserver "DocQA/backend/go/pkg/http"
	"DocQA/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "docqa_service",
	Short:        "Document QA service: upload a document and ask questions about it",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

func init() {
	defaultPath := os.Getenv("DOCQA_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	rootCmd.Flags().StringVar(&configPath, "config", defaultPath, "path to the YAML config (env DOCQA_CONFIG)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "docqa_service: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	// 1. Initialize Logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level), cfg.Logger.Format)
	appLogger := logger.New(cfg.App.Name, "", "")
	appLogger.WithField("version", cfg.App.Version).Info("Starting document QA service...")
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. 清理上次崩溃残留的临时文件
	maxAge := config.Duration(cfg.Loader.ScratchMaxAge, time.Hour)
	if n, err := loaders.SweepScratch(cfg.Loader.ScratchDir, maxAge); err != nil {
		appLogger.WithError(err).Warn("Failed to sweep scratch directory")
	} else if n > 0 {
		appLogger.WithField("removed", n).Info("Removed stale scratch files")
	}

	// 3. Initialize Dependencies
	deps, closers, err := bootstrap(ctx, cfg, appLogger)
	defer closers.closeAll(appLogger)
	if err != nil {
		return err
	}

	// 4. HTTP server
	server, err := httpserver.NewServer(cfg, appLogger)
	if err != nil {
		return err
	}
	api.RegisterRoutes(server.Engine(), api.NewAPI(deps.service, appLogger, cfg.Server.MaxUploadMB<<20))

	// 5. 服务注册 (可选)
	if len(cfg.Databases.Etcd.Endpoints) > 0 {
		sd, err := etcd.NewServiceDiscovery(cfg.Databases.Etcd)
		if err != nil {
			return err
		}
		closers.add("etcd", sd.Close)
		advertise := cfg.Server.AdvertiseAddr
		if advertise == "" {
			advertise = server.Addr()
		}
		unregister, err := sd.Register(ctx, cfg.App.Name, advertise, cfg.Databases.Etcd.LeaseTTL)
		if err != nil {
			return err
		}
		defer unregister()
		appLogger.WithField("address", advertise).Info("Registered with etcd")
	}

	err = server.Run(ctx)
	// 等待后台的查询历史写入完成
	deps.service.Wait()
	appLogger.Info("Server gracefully stopped")
	return err
}
