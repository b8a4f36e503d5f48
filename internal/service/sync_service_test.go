package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/api"
	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/models"
	"github.com/rehab-eng/nova-max-ws/internal/reconcile"
)

// syncBackend 内存假后端：记录调用次数，维护可变的订单与骑手列表
type syncBackend struct {
	mu            sync.Mutex
	orders        []models.Order
	drivers       []models.Driver
	ordersGets    int
	driversGets   int
	summaryGets   int
	ledgerGets    int
	lastOrderBody map[string]interface{}
}

func (b *syncBackend) writeEnvelope(w http.ResponseWriter, key string, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	payload, _ := json.Marshal(map[string]interface{}{key: value})
	w.Write(payload)
}

func (b *syncBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet && path == "/orders":
			b.mu.Lock()
			b.ordersGets++
			orders := append([]models.Order(nil), b.orders...)
			b.mu.Unlock()
			b.writeEnvelope(w, "orders", orders)

		case r.Method == http.MethodPost && path == "/orders":
			var input map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.mu.Lock()
			b.lastOrderBody = input
			order := models.Order{
				ID:     fmt.Sprintf("srv-o%d", len(b.orders)+1),
				Status: constants.OrderStatusPending,
			}
			if v, ok := input["store_id"].(string); ok {
				order.StoreID = v
			}
			if v, ok := input["customer_name"].(string); ok {
				order.CustomerName = v
			}
			b.orders = append([]models.Order{order}, b.orders...)
			b.mu.Unlock()
			b.writeEnvelope(w, "order", order)

		case r.Method == http.MethodPatch && strings.HasPrefix(path, "/orders/") && strings.HasSuffix(path, "/status"):
			id := strings.TrimSuffix(strings.TrimPrefix(path, "/orders/"), "/status")
			var body struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.mu.Lock()
			var updated models.Order
			for i := range b.orders {
				if b.orders[i].ID == id {
					b.orders[i].Status = body.Status
					updated = b.orders[i]
				}
			}
			b.mu.Unlock()
			b.writeEnvelope(w, "order", updated)

		case r.Method == http.MethodGet && path == "/drivers":
			b.mu.Lock()
			b.driversGets++
			drivers := append([]models.Driver(nil), b.drivers...)
			b.mu.Unlock()
			b.writeEnvelope(w, "drivers", drivers)

		case r.Method == http.MethodPost && path == "/drivers":
			var input struct {
				StoreID string `json:"store_id"`
				Name    string `json:"name"`
				Phone   string `json:"phone"`
			}
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.mu.Lock()
			driver := models.Driver{
				ID:         fmt.Sprintf("srv-d%d", len(b.drivers)+1),
				StoreID:    input.StoreID,
				Name:       input.Name,
				Phone:      input.Phone,
				Status:     constants.DriverStatusOffline,
				IsActive:   constants.DriverActive,
				SecretCode: "7777",
			}
			b.drivers = append(b.drivers, driver)
			b.mu.Unlock()
			b.writeEnvelope(w, "driver", driver)

		case r.Method == http.MethodDelete && strings.HasPrefix(path, "/drivers/"):
			id := strings.TrimPrefix(path, "/drivers/")
			b.mu.Lock()
			kept := b.drivers[:0]
			for _, d := range b.drivers {
				if d.ID != id {
					kept = append(kept, d)
				}
			}
			b.drivers = kept
			b.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)

		case r.Method == http.MethodPatch && strings.HasPrefix(path, "/drivers/") && strings.HasSuffix(path, "/active"):
			id := strings.TrimSuffix(strings.TrimPrefix(path, "/drivers/"), "/active")
			var body struct {
				IsActive int `json:"is_active"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.mu.Lock()
			var updated models.Driver
			for i := range b.drivers {
				if b.drivers[i].ID == id {
					b.drivers[i].IsActive = body.IsActive
					b.drivers[i].Status = constants.DriverStatusOffline
					updated = b.drivers[i]
				}
			}
			b.mu.Unlock()
			b.writeEnvelope(w, "driver", updated)

		case r.Method == http.MethodPost && strings.HasPrefix(path, "/drivers/") && strings.Contains(path, "/wallet/"):
			rest := strings.TrimPrefix(path, "/drivers/")
			parts := strings.SplitN(rest, "/wallet/", 2)
			if len(parts) != 2 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			id, op := parts[0], parts[1]
			var body struct {
				Amount models.Money `json:"amount"`
				Note   string       `json:"note"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.mu.Lock()
			var updated models.Driver
			for i := range b.drivers {
				if b.drivers[i].ID != id {
					continue
				}
				balance := models.NewMoneyFromFloat(0)
				if b.drivers[i].WalletBalance != nil {
					balance = *b.drivers[i].WalletBalance
				}
				if op == "credit" {
					balance = balance.AddMoney(body.Amount)
				} else {
					balance = models.NewMoneyFromDecimal(balance.Decimal.Sub(body.Amount.Decimal))
				}
				b.drivers[i].WalletBalance = &balance
				updated = b.drivers[i]
			}
			b.mu.Unlock()
			b.writeEnvelope(w, "driver", updated)

		case r.Method == http.MethodGet && path == "/ledger/summary":
			b.mu.Lock()
			b.summaryGets++
			b.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"summary":[{"bucket":"2026-08-25","orders":1,"delivery_fees":"5.00","payouts":"8.00"}]}`))

		case r.Method == http.MethodGet && path == "/ledger/drivers":
			b.mu.Lock()
			b.ledgerGets++
			b.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"drivers":[{"driver_id":"d1","driver_name":"小王","orders":1,"total":"8.00"}]}`))

		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		}
	})
}

func (b *syncBackend) counts() (orders, drivers, summary, ledger int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ordersGets, b.driversGets, b.summaryGets, b.ledgerGets
}

func setupSyncServiceTest(t *testing.T, seed config.IdentityConfig) (*SyncService, *reconcile.Reconciler, *LedgerService, *syncBackend) {
	t.Helper()

	backend := &syncBackend{}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	client := api.New(config.BackendConfig{BaseURL: server.URL})
	identity, _ := setupIdentityServiceTest(t)
	if err := identity.Load(seed); err != nil {
		t.Fatalf("load identity failed: %v", err)
	}

	reconciler := reconcile.New(reconcile.Options{FlashTTL: 50 * time.Millisecond})
	t.Cleanup(reconciler.Close)

	ledger := NewLedgerService(client, identity)
	svc := NewSyncService(client, reconciler, identity, ledger, false)
	return svc, reconciler, ledger, backend
}

func syncOrder(id, storeID, status string) models.Order {
	return models.Order{ID: id, StoreID: storeID, Status: status}
}

func mustNote(t *testing.T, ch <-chan reconcile.Notification, kind string) reconcile.Notification {
	t.Helper()
	select {
	case note := <-ch:
		if note.Kind != kind {
			t.Fatalf("notification kind = %s, want %s", note.Kind, kind)
		}
		return note
	case <-time.After(time.Second):
		t.Fatalf("notification %s not received", kind)
	}
	return reconcile.Notification{}
}

func mustNoNote(t *testing.T, ch <-chan reconcile.Notification) {
	t.Helper()
	select {
	case note := <-ch:
		t.Fatalf("unexpected notification: %s %s", note.Kind, note.OrderID)
	default:
	}
}

func TestSyncFirstSnapshotSilentThenNotifies(t *testing.T) {
	svc, reconciler, _, _ := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	svc.HandleSnapshot(ctx, []models.Order{
		syncOrder("o1", "s1", constants.OrderStatusPending),
	}, constants.SnapshotSourceInitial)
	mustNoNote(t, svc.Notifications())
	if !reconciler.Loaded() {
		t.Fatalf("reconciler should be loaded after first snapshot")
	}

	svc.HandleSnapshot(ctx, []models.Order{
		syncOrder("o1", "s1", constants.OrderStatusPending),
		syncOrder("o2", "s1", constants.OrderStatusPending),
	}, constants.SnapshotSourcePoll)
	note := mustNote(t, svc.Notifications(), constants.NotificationNewOrder)
	if note.OrderID != "o2" {
		t.Fatalf("notification order = %s, want o2", note.OrderID)
	}
}

func TestSyncDiscardsForeignStoreEvents(t *testing.T) {
	svc, reconciler, _, _ := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	svc.HandleSnapshot(ctx, []models.Order{
		syncOrder("o1", "s1", constants.OrderStatusPending),
	}, constants.SnapshotSourceInitial)

	foreign := syncOrder("o9", "s2", constants.OrderStatusPending)
	svc.HandleEvent(ctx, models.Event{Type: constants.EventOrderCreated, Order: &foreign})
	if _, ok := reconciler.Order("o9"); ok {
		t.Fatalf("foreign-store order must not reach local state")
	}
	mustNoNote(t, svc.Notifications())

	local := syncOrder("o2", "s1", constants.OrderStatusPending)
	svc.HandleEvent(ctx, models.Event{Type: constants.EventOrderCreated, Order: &local})
	if _, ok := reconciler.Order("o2"); !ok {
		t.Fatalf("same-store order should be applied")
	}
	note := mustNote(t, svc.Notifications(), constants.NotificationNewOrder)
	if note.OrderID != "o2" {
		t.Fatalf("notification order = %s, want o2", note.OrderID)
	}
}

func TestSyncAdminSessionLearnsStoreFromSnapshot(t *testing.T) {
	svc, reconciler, _, _ := setupSyncServiceTest(t, config.IdentityConfig{AdminCode: "AC-1"})
	ctx := context.Background()

	svc.HandleSnapshot(ctx, []models.Order{
		syncOrder("o1", "s7", constants.OrderStatusPending),
	}, constants.SnapshotSourceInitial)

	// 学到 s7 后，其它门店的事件被丢弃
	svc.HandleEvent(ctx, models.Event{
		Type:    constants.EventOrderStatus,
		StoreID: "s8",
		OrderID: "o1",
		Status:  constants.OrderStatusDelivering,
	})
	order, ok := reconciler.Order("o1")
	if !ok || order.Status != constants.OrderStatusPending {
		t.Fatalf("order status = %s, want pending (foreign event discarded)", order.Status)
	}

	svc.HandleEvent(ctx, models.Event{
		Type:    constants.EventOrderStatus,
		StoreID: "s7",
		OrderID: "o1",
		Status:  constants.OrderStatusDelivering,
	})
	order, _ = reconciler.Order("o1")
	if order.Status != constants.OrderStatusDelivering {
		t.Fatalf("order status = %s, want delivering", order.Status)
	}
}

func TestSyncOrderStatusEventMergesSparseFields(t *testing.T) {
	svc, reconciler, _, _ := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	seeded := syncOrder("o1", "s1", constants.OrderStatusPending)
	seeded.CustomerName = "张三"
	svc.HandleSnapshot(ctx, []models.Order{seeded}, constants.SnapshotSourceInitial)

	svc.HandleEvent(ctx, models.Event{
		Type:     constants.EventOrderStatus,
		StoreID:  "s1",
		OrderID:  "o1",
		Status:   constants.OrderStatusDelivering,
		DriverID: "d1",
	})

	order, ok := reconciler.Order("o1")
	if !ok {
		t.Fatalf("order o1 missing")
	}
	if order.Status != constants.OrderStatusDelivering {
		t.Fatalf("status = %s, want delivering", order.Status)
	}
	if order.DriverID != "d1" {
		t.Fatalf("driver = %s, want d1", order.DriverID)
	}
	if order.CustomerName != "张三" {
		t.Fatalf("customer = %s, want 张三 (untouched)", order.CustomerName)
	}
	mustNote(t, svc.Notifications(), constants.NotificationStatusChange)
}

func TestSyncDriverEventSideEffects(t *testing.T) {
	svc, reconciler, _, backend := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	backend.mu.Lock()
	backend.drivers = []models.Driver{{
		ID:       "d1",
		StoreID:  "s1",
		Name:     "小王",
		Status:   constants.DriverStatusOnline,
		IsActive: constants.DriverActive,
	}}
	backend.mu.Unlock()
	if err := svc.RefreshDrivers(ctx); err != nil {
		t.Fatalf("refresh drivers failed: %v", err)
	}

	svc.HandleEvent(ctx, models.Event{
		Type:     constants.EventDriverStatus,
		StoreID:  "s1",
		DriverID: "d1",
		Status:   constants.DriverStatusBusy,
	})
	if got := reconciler.Drivers()[0].Status; got != constants.DriverStatusBusy {
		t.Fatalf("driver status = %s, want busy", got)
	}

	svc.HandleEvent(ctx, models.Event{
		Type:     constants.EventDriverDisabled,
		StoreID:  "s1",
		DriverID: "d1",
	})
	driver := reconciler.Drivers()[0]
	if driver.IsActive != constants.DriverInactive {
		t.Fatalf("driver is_active = %d, want 0", driver.IsActive)
	}
	if driver.Status != constants.DriverStatusOffline {
		t.Fatalf("disabled driver status = %s, want offline", driver.Status)
	}

	svc.HandleEvent(ctx, models.Event{
		Type:     constants.EventDriverActive,
		StoreID:  "s1",
		DriverID: "d1",
	})
	driver = reconciler.Drivers()[0]
	if driver.IsActive != constants.DriverActive {
		t.Fatalf("driver is_active = %d, want 1", driver.IsActive)
	}
	if driver.Status != constants.DriverStatusOffline {
		t.Fatalf("re-enabled driver status = %s, want offline until next presence", driver.Status)
	}

	// driver_created 触发整表重拉
	backend.mu.Lock()
	backend.drivers = append(backend.drivers, models.Driver{
		ID: "d2", StoreID: "s1", Name: "小李",
		Status: constants.DriverStatusOffline, IsActive: constants.DriverActive,
	})
	backend.mu.Unlock()
	_, before, _, _ := backend.counts()
	svc.HandleEvent(ctx, models.Event{Type: constants.EventDriverCreated, StoreID: "s1"})
	_, after, _, _ := backend.counts()
	if after != before+1 {
		t.Fatalf("driver list fetches = %d, want %d", after, before+1)
	}
	if got := len(reconciler.Drivers()); got != 2 {
		t.Fatalf("drivers after refetch = %d, want 2", got)
	}
}

func TestSyncWalletEventGatedByFinanceWatch(t *testing.T) {
	svc, _, ledger, backend := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	walletEvent := models.Event{Type: constants.EventWalletTransaction, StoreID: "s1"}

	svc.HandleEvent(ctx, walletEvent)
	if _, _, summary, _ := backend.counts(); summary != 0 {
		t.Fatalf("ledger fetches = %d, want 0 while finance inactive", summary)
	}

	svc.WatchFinance(true)
	if !svc.FinanceActive() {
		t.Fatalf("finance watch should be active")
	}

	// 尚无已请求周期，刷新无事可做
	svc.HandleEvent(ctx, walletEvent)
	if _, _, summary, _ := backend.counts(); summary != 0 {
		t.Fatalf("ledger fetches = %d, want 0 before any period requested", summary)
	}

	if _, err := ledger.Summary(ctx, "daily"); err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	svc.HandleEvent(ctx, walletEvent)
	_, _, summary, perDriver := backend.counts()
	if summary != 2 {
		t.Fatalf("ledger summary fetches = %d, want 2 (warm + refresh)", summary)
	}
	if perDriver != 1 {
		t.Fatalf("ledger driver fetches = %d, want 1 after refresh", perDriver)
	}
}

func TestSyncCreateOrderDefaultsStoreAndRefetches(t *testing.T) {
	svc, reconciler, _, backend := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, api.CreateOrderInput{
		OrderType:    "及时达",
		CustomerName: "张三",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order == nil || order.ID != "srv-o1" {
		t.Fatalf("created order = %+v, want srv-o1", order)
	}

	backend.mu.Lock()
	sentStore := backend.lastOrderBody["store_id"]
	backend.mu.Unlock()
	if sentStore != "s1" {
		t.Fatalf("store_id sent = %v, want s1 (defaulted from identity)", sentStore)
	}

	if orders, _, _, _ := backend.counts(); orders != 1 {
		t.Fatalf("order list fetches = %d, want 1 (confirm-then-refetch)", orders)
	}
	if _, ok := reconciler.Order("srv-o1"); !ok {
		t.Fatalf("created order should be in local state after refetch")
	}
}

func TestSyncReopenOrderRefetches(t *testing.T) {
	svc, reconciler, _, backend := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	backend.mu.Lock()
	backend.orders = []models.Order{syncOrder("o1", "s1", constants.OrderStatusCancelled)}
	backend.mu.Unlock()
	if err := svc.RefreshOrders(ctx); err != nil {
		t.Fatalf("refresh orders failed: %v", err)
	}

	order, err := svc.ReopenOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("reopened status = %s, want pending", order.Status)
	}
	local, _ := reconciler.Order("o1")
	if local.Status != constants.OrderStatusPending {
		t.Fatalf("local status = %s, want pending after refetch", local.Status)
	}
}

func TestSyncDriverMutationsRefetch(t *testing.T) {
	svc, reconciler, _, _ := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	driver, err := svc.CreateDriver(ctx, api.CreateDriverInput{Name: "小王", Phone: "13800000000"})
	if err != nil {
		t.Fatalf("create driver failed: %v", err)
	}
	if driver.Code() != "7777" {
		t.Fatalf("driver code = %s, want 7777", driver.Code())
	}
	if driver.StoreID != "s1" {
		t.Fatalf("driver store = %s, want s1 (defaulted)", driver.StoreID)
	}
	if got := len(reconciler.Drivers()); got != 1 {
		t.Fatalf("drivers after create = %d, want 1", got)
	}

	updated, err := svc.SetDriverActive(ctx, "srv-d1", false)
	if err != nil {
		t.Fatalf("set driver active failed: %v", err)
	}
	if updated.Active() {
		t.Fatalf("driver should be inactive")
	}
	if got := reconciler.Drivers()[0].IsActive; got != constants.DriverInactive {
		t.Fatalf("local is_active = %d, want 0 after refetch", got)
	}

	credited, err := svc.CreditWallet(ctx, "srv-d1", models.NewMoneyFromFloat(12.5), "补贴")
	if err != nil {
		t.Fatalf("credit wallet failed: %v", err)
	}
	if credited.WalletBalance == nil || credited.WalletBalance.String() != "12.50" {
		t.Fatalf("wallet balance = %v, want 12.50", credited.WalletBalance)
	}

	debited, err := svc.DebitWallet(ctx, "srv-d1", models.NewMoneyFromFloat(2.5), "")
	if err != nil {
		t.Fatalf("debit wallet failed: %v", err)
	}
	if debited.WalletBalance.String() != "10.00" {
		t.Fatalf("wallet balance = %s, want 10.00", debited.WalletBalance.String())
	}

	if err := svc.DeleteDriver(ctx, "srv-d1"); err != nil {
		t.Fatalf("delete driver failed: %v", err)
	}
	if got := len(reconciler.Drivers()); got != 0 {
		t.Fatalf("drivers after delete = %d, want 0", got)
	}
}

func TestSyncIgnoresPongAndUnknownEvents(t *testing.T) {
	svc, reconciler, _, backend := setupSyncServiceTest(t, config.IdentityConfig{StoreID: "s1"})
	ctx := context.Background()

	svc.HandleEvent(ctx, models.Event{Type: constants.EventPong})
	svc.HandleEvent(ctx, models.Event{Type: "mystery_event", StoreID: "s1"})

	if got := len(reconciler.Orders()); got != 0 {
		t.Fatalf("orders = %d, want 0", got)
	}
	orders, drivers, summary, ledger := backend.counts()
	if orders+drivers+summary+ledger != 0 {
		t.Fatalf("backend calls = %d/%d/%d/%d, want none", orders, drivers, summary, ledger)
	}
	mustNoNote(t, svc.Notifications())
}
