package app

import (
	"context"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/provider"
	"github.com/rehab-eng/nova-max-ws/internal/view"
)

// ReportService 状态汇报服务：消费操作员通知并周期输出工作台概览
type ReportService struct {
	name      string
	container *provider.Container
	realtime  *RealtimeService
	interval  time.Duration
}

// NewReportService 创建状态汇报服务
func NewReportService(container *provider.Container, realtime *RealtimeService, interval time.Duration) *ReportService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ReportService{
		name:      "report",
		container: container,
		realtime:  realtime,
		interval:  interval,
	}
}

// Name 服务名称
func (s *ReportService) Name() string {
	if s == nil || s.name == "" {
		return "report"
	}
	return s.name
}

// Start 启动汇报循环，阻塞运行直到停止
func (s *ReportService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	notifications := s.container.SyncService.Notifications()

	for {
		select {
		case <-ctx.Done():
			return nil
		case note := <-notifications:
			logger.Infow("operator_toast",
				"kind", note.Kind,
				"order_id", note.OrderID,
				"status", note.Status,
			)
		case <-ticker.C:
			s.report()
		}
	}
}

// Stop 停止服务
func (s *ReportService) Stop(ctx context.Context) error {
	return nil
}

// report 输出一行工作台概览日志
func (s *ReportService) report() {
	reconciler := s.container.Reconciler
	counts := view.Counts(reconciler.Orders())
	drivers := view.PartitionDrivers(reconciler.Drivers())

	logger.Infow("console_report",
		"connection", string(s.realtime.Status()),
		"orders_total", counts.Total,
		"orders_pending", counts.Pending,
		"orders_delivering", counts.Delivering,
		"orders_delivered", counts.Delivered,
		"drivers_active", drivers.ActiveCount(),
		"drivers_online", drivers.ActiveOnlineCount(),
		"flashes", len(reconciler.Flashes()),
	)
}
