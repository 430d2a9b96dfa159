// @title Study Companion API
// @version 1.0
// @description 学习进度与掌握度追踪服务：学习会话、连续学习、测验、闪卡、徽章与统计。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"fmt"
	"os"
	"study_companion_backend/internal/app"
	"study_companion_backend/internal/config"
	"study_companion_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configDir   string
	migrate     bool
	migrateOnly bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "study-companion",
		Short:         "Study progress and mastery tracking server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.Flags().StringVar(&configDir, "config", "configs", "directory containing config.yaml")
	rootCmd.Flags().BoolVar(&migrate, "migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	rootCmd.Flags().BoolVar(&migrateOnly, "migrate-only", false, "只执行数据库迁移，完成后退出")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = migrate || migrateOnly
	cfg.MigrateOnly = migrateOnly

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if migrateOnly {
		logger.Log.Info("Database migration finished, exiting")
		application.Close(context.Background())
		return nil
	}

	return application.Run()
}
