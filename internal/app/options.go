package app

import (
	"os"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/logger"

	"go.uber.org/zap"
)

// 运行模式：all 同步链路加状态汇报，sync 仅同步链路
const (
	ModeAll  = "all"
	ModeSync = "sync"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
