package reconcile

import (
	"sort"
	"sync"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"

	"github.com/google/uuid"
)

// Notification 对账产生的操作员通知
type Notification struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"` // new_order / status_change
	OrderID string    `json:"order_id"`
	Status  string    `json:"status"`
	At      time.Time `json:"at"`
}

// Options 对账器配置
type Options struct {
	FlashTTL time.Duration // 高亮保留时长，缺省 2s
}

// Reconciler 持有会话内权威的订单与骑手列表。
// 快照到达时整体替换并按 ID 对比产生通知；增量事件按 ID 浅合并。
// 所有方法并发安全。
type Reconciler struct {
	mu      sync.RWMutex
	orders  []models.Order
	drivers []models.Driver
	loaded  bool

	flashMu sync.Mutex
	flashes map[string]*time.Timer
	ttl     time.Duration
	closed  bool
}

// New 创建对账器
func New(opts Options) *Reconciler {
	ttl := opts.FlashTTL
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &Reconciler{
		flashes: make(map[string]*time.Timer),
		ttl:     ttl,
	}
}

// ApplySnapshot 用全量快照整体替换订单列表。
// notify 为真时按 ID 与上一份列表对比：新 ID 产生 new_order，
// 已知 ID 状态变化产生 status_change，通知顺序跟随快照顺序。
func (r *Reconciler) ApplySnapshot(orders []models.Order, notify bool) []Notification {
	r.mu.Lock()
	prev := make(map[string]models.Order, len(r.orders))
	for _, o := range r.orders {
		prev[o.ID] = o
	}
	r.orders = append([]models.Order(nil), orders...)
	r.loaded = true
	r.mu.Unlock()

	if !notify {
		logger.Debugw("snapshot_applied", "orders", len(orders), "initial", true)
		return nil
	}

	var notifications []Notification
	for _, o := range orders {
		before, seen := prev[o.ID]
		switch {
		case !seen:
			notifications = append(notifications, r.notify(constants.NotificationNewOrder, o.ID, o.Status))
		case before.Status != o.Status:
			notifications = append(notifications, r.notify(constants.NotificationStatusChange, o.ID, o.Status))
		}
	}
	logger.Debugw("snapshot_applied", "orders", len(orders), "notifications", len(notifications))
	return notifications
}

// ApplyUpsert 按 ID 合并局部更新；本地未见过该 ID 时前插新订单。
// 合并只覆盖补丁带出的字段，未带出的字段保持原值。
func (r *Reconciler) ApplyUpsert(patch models.OrderPatch, notify bool) []Notification {
	if patch.ID == "" {
		return nil
	}

	r.mu.Lock()
	idx := -1
	for i := range r.orders {
		if r.orders[i].ID == patch.ID {
			idx = i
			break
		}
	}

	var notifications []Notification
	if idx >= 0 {
		before := r.orders[idx].Status
		patch.Apply(&r.orders[idx])
		after := r.orders[idx].Status
		r.mu.Unlock()
		if notify && before != after {
			notifications = append(notifications, r.notify(constants.NotificationStatusChange, patch.ID, after))
		}
		return notifications
	}

	order := patch.NewOrder()
	r.orders = append([]models.Order{order}, r.orders...)
	r.mu.Unlock()
	if notify {
		notifications = append(notifications, r.notify(constants.NotificationNewOrder, order.ID, order.Status))
	}
	return notifications
}

// Loaded 是否已经应用过首份快照
func (r *Reconciler) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Reset 清空状态并恢复首载静默（切换门店 / 登出时使用）
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.orders = nil
	r.drivers = nil
	r.loaded = false
	r.mu.Unlock()

	r.flashMu.Lock()
	for id, timer := range r.flashes {
		timer.Stop()
		delete(r.flashes, id)
	}
	r.flashMu.Unlock()
}

// SetDrivers 整体替换骑手列表
func (r *Reconciler) SetDrivers(drivers []models.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = append([]models.Driver(nil), drivers...)
}

// UpdateDriverStatus 更新骑手在线状态
func (r *Reconciler) UpdateDriverStatus(driverID, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.drivers {
		if r.drivers[i].ID == driverID {
			r.drivers[i].Status = status
			return
		}
	}
}

// SetDriverActive 启停骑手；启停都会把在线状态压回 offline，
// 之后的在线状态由后续 driver_status 事件重新习得。
func (r *Reconciler) SetDriverActive(driverID string, active bool) {
	flag := constants.DriverInactive
	if active {
		flag = constants.DriverActive
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.drivers {
		if r.drivers[i].ID == driverID {
			r.drivers[i].IsActive = flag
			r.drivers[i].Status = constants.DriverStatusOffline
			return
		}
	}
}

// Orders 返回订单列表副本
func (r *Reconciler) Orders() []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Order(nil), r.orders...)
}

// Drivers 返回骑手列表副本
func (r *Reconciler) Drivers() []models.Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Driver(nil), r.drivers...)
}

// Order 按 ID 查单
func (r *Reconciler) Order(id string) (models.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// FlashActive 指定订单当前是否处于高亮期
func (r *Reconciler) FlashActive(orderID string) bool {
	r.flashMu.Lock()
	defer r.flashMu.Unlock()
	_, ok := r.flashes[orderID]
	return ok
}

// Flashes 返回当前高亮中的订单 ID（字典序）
func (r *Reconciler) Flashes() []string {
	r.flashMu.Lock()
	defer r.flashMu.Unlock()
	ids := make([]string, 0, len(r.flashes))
	for id := range r.flashes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close 停掉全部高亮计时器，之后不再接受新的高亮
func (r *Reconciler) Close() {
	r.flashMu.Lock()
	defer r.flashMu.Unlock()
	r.closed = true
	for id, timer := range r.flashes {
		timer.Stop()
		delete(r.flashes, id)
	}
}

// notify 生成通知并登记高亮
func (r *Reconciler) notify(kind, orderID, status string) Notification {
	r.flash(orderID)
	return Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		OrderID: orderID,
		Status:  status,
		At:      time.Now(),
	}
}

// flash 为订单登记高亮：再次通知同一订单只重置既有计时器，
// 任一时刻每个 ID 至多挂着一个待触发的过期。
func (r *Reconciler) flash(orderID string) {
	r.flashMu.Lock()
	defer r.flashMu.Unlock()
	if r.closed {
		return
	}
	if timer, ok := r.flashes[orderID]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(r.ttl, func() {
		r.flashMu.Lock()
		defer r.flashMu.Unlock()
		if r.flashes[orderID] == timer {
			delete(r.flashes, orderID)
		}
	})
	r.flashes[orderID] = timer
}
