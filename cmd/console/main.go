package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/rehab-eng/nova-max-ws/internal/app"
	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
)

func main() {
	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Console.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := cfg.Validate(); err != nil {
		stdLog.Fatalf("配置校验失败: %v", err)
	}

	// 初始化本地状态库
	if err := models.InitDB(cfg.State.Driver, cfg.State.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.State.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.State.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.State.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.State.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("状态库初始化失败: %v", err)
	}

	// 自动迁移状态库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("状态库迁移失败: %v", err)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), sync")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiCyan + "███╗   ██╗ ██████╗ ██╗   ██╗ █████╗     ███╗   ███╗ █████╗ ██╗  ██╗" + ansiReset)
	fmt.Println(ansiCyan + "████╗  ██║██╔═══██╗██║   ██║██╔══██╗    ████╗ ████║██╔══██╗╚██╗██╔╝" + ansiReset)
	fmt.Println(ansiCyan + "██╔██╗ ██║██║   ██║██║   ██║███████║    ██╔████╔██║███████║ ╚███╔╝ " + ansiReset)
	fmt.Println(ansiCyan + "██║╚██╗██║██║   ██║╚██╗ ██╔╝██╔══██║    ██║╚██╔╝██║██╔══██║ ██╔██╗ " + ansiReset)
	fmt.Println(ansiCyan + "██║ ╚████║╚██████╔╝ ╚████╔╝ ██║  ██║    ██║ ╚═╝ ██║██║  ██║██╔╝ ██╗" + ansiReset)
	fmt.Println(ansiCyan + "╚═╝  ╚═══╝ ╚═════╝   ╚═══╝  ╚═╝  ╚═╝    ╚═╝     ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "Nova Max 配送工作台同步控制台" + ansiReset)
	fmt.Println(ansiBlue + "• 实时链路: websocket / sse，断线指数退避重连，离线轮询兜底" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}
