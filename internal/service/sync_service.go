package service

import (
	"context"
	"strings"
	"sync"

	"github.com/rehab-eng/nova-max-ws/internal/api"
	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"
	"github.com/rehab-eng/nova-max-ws/internal/reconcile"
)

const notificationBuffer = 64

// SyncService 同步服务：把实时链路的输出路由进对账器，
// 并执行事件表的副作用（骑手重拉、账本失效等）。
type SyncService struct {
	client     *api.Client
	reconciler *reconcile.Reconciler
	identity   *IdentityService
	ledger     *LedgerService

	mu             sync.RWMutex
	finance        bool
	learnedStoreID string

	notifications chan reconcile.Notification
}

// NewSyncService 创建同步服务
func NewSyncService(
	client *api.Client,
	reconciler *reconcile.Reconciler,
	identity *IdentityService,
	ledger *LedgerService,
	financeWatch bool,
) *SyncService {
	return &SyncService{
		client:        client,
		reconciler:    reconciler,
		identity:      identity,
		ledger:        ledger,
		finance:       financeWatch,
		notifications: make(chan reconcile.Notification, notificationBuffer),
	}
}

// Notifications 操作员通知流（新订单、状态变更）
func (s *SyncService) Notifications() <-chan reconcile.Notification {
	return s.notifications
}

// WatchFinance 切换财务视图激活状态
func (s *SyncService) WatchFinance(active bool) {
	s.mu.Lock()
	s.finance = active
	s.mu.Unlock()
}

// FinanceActive 财务视图是否激活
func (s *SyncService) FinanceActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finance
}

// HandleSnapshot 应用订单快照。首次装载静默，之后的快照产生差量通知。
func (s *SyncService) HandleSnapshot(ctx context.Context, orders []models.Order, source string) {
	notify := s.reconciler.Loaded()
	notes := s.reconciler.ApplySnapshot(orders, notify)
	s.learnStore(orders)
	s.publish(notes)
	logger.Debugw("snapshot_handled",
		"source", source,
		"orders", len(orders),
		"notifications", len(notes),
	)
}

// HandleEvent 按事件表处理单条实时事件
func (s *SyncService) HandleEvent(ctx context.Context, ev models.Event) {
	storeID := ev.EffectiveStoreID()
	if !s.allows(storeID) {
		logger.Debugw("event_discarded",
			"type", ev.Type,
			"store_id", storeID,
		)
		return
	}

	switch ev.Type {
	case constants.EventOrderCreated:
		if ev.Order == nil || ev.Order.ID == "" {
			logger.Debugw("event_discarded", "type", ev.Type, "reason", "missing order")
			return
		}
		notes := s.reconciler.ApplyUpsert(models.PatchFromOrder(*ev.Order), true)
		s.publish(notes)

	case constants.EventOrderStatus:
		orderID := ev.EffectiveOrderID()
		if orderID == "" {
			logger.Debugw("event_discarded", "type", ev.Type, "reason", "missing order_id")
			return
		}
		patch := models.OrderPatch{ID: orderID}
		if ev.Status != "" {
			status := ev.Status
			patch.Status = &status
		}
		if ev.DriverID != "" {
			driverID := ev.DriverID
			patch.DriverID = &driverID
		}
		if ev.DeliveredAt != nil {
			patch.DeliveredAt = ev.DeliveredAt
		}
		notes := s.reconciler.ApplyUpsert(patch, true)
		s.publish(notes)

	case constants.EventDriverStatus:
		if ev.DriverID == "" {
			return
		}
		s.reconciler.UpdateDriverStatus(ev.DriverID, ev.Status)

	case constants.EventDriverCreated:
		if err := s.RefreshDrivers(ctx); err != nil {
			logger.Warnw("driver_refresh_failed", "trigger", ev.Type, "error", err)
		}

	case constants.EventDriverDisabled:
		if ev.DriverID == "" {
			return
		}
		s.reconciler.SetDriverActive(ev.DriverID, false)

	case constants.EventDriverActive:
		if ev.DriverID == "" {
			return
		}
		s.reconciler.SetDriverActive(ev.DriverID, true)

	case constants.EventWalletTransaction:
		if !s.FinanceActive() {
			return
		}
		s.ledger.Invalidate()
		if err := s.ledger.Refresh(ctx); err != nil {
			logger.Warnw("ledger_refresh_failed", "error", err)
		}

	case constants.EventPong:
		// 心跳回执，无副作用

	default:
		logger.Debugw("event_ignored", "type", ev.Type)
	}
}

// RefreshOrders 拉取订单快照并应用
func (s *SyncService) RefreshOrders(ctx context.Context) error {
	orders, err := s.client.Orders(ctx, s.identity.SubscriptionKey())
	if err != nil {
		return err
	}
	s.HandleSnapshot(ctx, orders, constants.SnapshotSourceRefresh)
	return nil
}

// RefreshDrivers 拉取骑手列表并替换本地状态
func (s *SyncService) RefreshDrivers(ctx context.Context) error {
	drivers, err := s.client.Drivers(ctx, s.identity.SubscriptionKey())
	if err != nil {
		return err
	}
	s.reconciler.SetDrivers(drivers)
	return nil
}

// InitialLoad 启动预热：先订单后骑手，来源标注 initial
func (s *SyncService) InitialLoad(ctx context.Context) error {
	orders, err := s.client.Orders(ctx, s.identity.SubscriptionKey())
	if err != nil {
		return err
	}
	s.HandleSnapshot(ctx, orders, constants.SnapshotSourceInitial)
	return s.RefreshDrivers(ctx)
}

// CreateOrder 创建订单，确认后重拉订单快照
func (s *SyncService) CreateOrder(ctx context.Context, input api.CreateOrderInput) (*models.Order, error) {
	if strings.TrimSpace(input.StoreID) == "" {
		input.StoreID = s.identity.StoreID()
	}
	order, err := s.client.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	s.refetchOrders(ctx, "create_order")
	return order, nil
}

// ReopenOrder 重开订单（回到 pending），确认后重拉订单快照
func (s *SyncService) ReopenOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.client.ReopenOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.refetchOrders(ctx, "reopen_order")
	return order, nil
}

// CreateDriver 创建骑手，确认后重拉骑手列表
func (s *SyncService) CreateDriver(ctx context.Context, input api.CreateDriverInput) (*models.Driver, error) {
	if strings.TrimSpace(input.StoreID) == "" {
		input.StoreID = s.identity.StoreID()
	}
	driver, err := s.client.CreateDriver(ctx, input)
	if err != nil {
		return nil, err
	}
	s.refetchDrivers(ctx, "create_driver")
	return driver, nil
}

// DeleteDriver 删除骑手，确认后重拉骑手列表
func (s *SyncService) DeleteDriver(ctx context.Context, driverID string) error {
	if err := s.client.DeleteDriver(ctx, driverID); err != nil {
		return err
	}
	s.refetchDrivers(ctx, "delete_driver")
	return nil
}

// SetDriverActive 启用/停用骑手，确认后重拉骑手列表
func (s *SyncService) SetDriverActive(ctx context.Context, driverID string, active bool) (*models.Driver, error) {
	driver, err := s.client.SetDriverActive(ctx, driverID, active)
	if err != nil {
		return nil, err
	}
	s.refetchDrivers(ctx, "set_driver_active")
	return driver, nil
}

// CreditWallet 骑手钱包入账，确认后重拉骑手列表
func (s *SyncService) CreditWallet(ctx context.Context, driverID string, amount models.Money, note string) (*models.Driver, error) {
	driver, err := s.client.CreditWallet(ctx, driverID, amount, note)
	if err != nil {
		return nil, err
	}
	s.refetchDrivers(ctx, "credit_wallet")
	return driver, nil
}

// DebitWallet 骑手钱包出账，确认后重拉骑手列表
func (s *SyncService) DebitWallet(ctx context.Context, driverID string, amount models.Money, note string) (*models.Driver, error) {
	driver, err := s.client.DebitWallet(ctx, driverID, amount, note)
	if err != nil {
		return nil, err
	}
	s.refetchDrivers(ctx, "debit_wallet")
	return driver, nil
}

// 动作本身不重试：确认成功后重拉失败只记日志，轮询会兜底收敛。
func (s *SyncService) refetchOrders(ctx context.Context, action string) {
	if err := s.RefreshOrders(ctx); err != nil {
		logger.Warnw("refetch_after_action_failed", "action", action, "error", err)
	}
}

func (s *SyncService) refetchDrivers(ctx context.Context, action string) {
	if err := s.RefreshDrivers(ctx); err != nil {
		logger.Warnw("refetch_after_action_failed", "action", action, "error", err)
	}
}

// allows 判断事件是否属于当前订阅。管理码会话在快照中学到
// 门店 ID 后，用它过滤后续事件。
func (s *SyncService) allows(storeID string) bool {
	key := s.identity.SubscriptionKey()
	if !key.Matches(storeID) {
		return false
	}
	if storeID == "" || key.Kind != models.SubscriptionAdmin {
		return true
	}
	s.mu.RLock()
	learned := s.learnedStoreID
	s.mu.RUnlock()
	return learned == "" || learned == storeID
}

// learnStore 管理码会话从快照推断所属门店
func (s *SyncService) learnStore(orders []models.Order) {
	if s.identity.StoreID() != "" {
		return
	}
	for _, order := range orders {
		if order.StoreID == "" {
			continue
		}
		s.mu.Lock()
		changed := s.learnedStoreID != order.StoreID
		s.learnedStoreID = order.StoreID
		s.mu.Unlock()
		if changed {
			logger.Debugw("store_learned", "store_id", order.StoreID)
		}
		return
	}
}

// publish 非阻塞投递通知；消费者跟不上时丢弃并记日志
func (s *SyncService) publish(notes []reconcile.Notification) {
	for _, note := range notes {
		select {
		case s.notifications <- note:
		default:
			logger.Warnw("notification_dropped",
				"kind", note.Kind,
				"order_id", note.OrderID,
			)
		}
	}
}
