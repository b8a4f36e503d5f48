package app

import (
	"errors"

	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/provider"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if mode != ModeAll && mode != ModeSync {
		return nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)

	realtimeService := NewRealtimeService(cfg, container)
	services := []Service{realtimeService}

	// 汇报服务消费通知并周期性输出工作台概览
	if mode == ModeAll {
		services = append(services, NewReportService(container, realtimeService, cfg.Console.ReportInterval()))
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "backend", opts.Config.Backend.BaseURL, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
