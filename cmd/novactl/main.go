package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/api"
	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"
	"github.com/rehab-eng/nova-max-ws/internal/provider"
	"github.com/rehab-eng/nova-max-ws/internal/service"
	"github.com/rehab-eng/nova-max-ws/internal/view"
)

const usageText = `novactl - Nova Max 配送工作台控制工具

用法: novactl <命令> [参数]

门店与身份:
  resolve-store  -admin-code <码>            用管理码解析并采用门店
  create-store   -name <名称> [-code <门店码>] 创建门店并采用（输出管理码，务必保存）
  delete-store   -store-id <ID>              删除门店并清理本地记录
  use-store      -store-id <ID>              从最近门店切换
  recent                                     列出最近使用的门店
  logout                                     清除本地身份（保留最近门店与口令锁）

订单:
  orders         [-query <词>] [-status <状态>] [-days <7|30|90>]
  create-order   -customer <名> [-receiver <名>] [-phone <电话>] [-address <地址>]
                 [-price <金额>] [-fee <配送费>] [-type <类型>] [-payout <结算>] [-notes <备注>]
  reopen-order   -id <订单ID>

骑手:
  drivers                                    列出骑手（启用在线优先）
  create-driver  -name <名> [-phone <电话>]    创建骑手（输出登录码）
  delete-driver  -id <骑手ID>
  driver-active  -id <骑手ID> -active <true|false>
  wallet-credit  -id <骑手ID> -amount <金额> [-note <备注>]
  wallet-debit   -id <骑手ID> -amount <金额> [-note <备注>]

账本:
  ledger         [-period <daily|weekly|monthly>] [-passphrase <口令>] [-drivers]
  gate-enroll    -passphrase <口令>            为当前管理码设置账本口令锁
  gate-remove                                移除当前管理码的口令锁
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usageText)
		os.Exit(2)
	}

	cfg := config.Load()
	logger.Init(cfg.Console.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.State.Driver, cfg.State.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.State.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.State.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.State.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.State.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("状态库初始化失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("状态库迁移失败: %v", err)
	}

	container := provider.NewContainer(cfg)
	ctx := context.Background()

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "resolve-store":
		err = cmdResolveStore(ctx, container, args)
	case "create-store":
		err = cmdCreateStore(ctx, container, args)
	case "delete-store":
		err = cmdDeleteStore(ctx, container, args)
	case "use-store":
		err = cmdUseStore(container, args)
	case "recent":
		err = cmdRecent(container)
	case "logout":
		err = cmdLogout(container)
	case "orders":
		err = cmdOrders(ctx, container, args)
	case "create-order":
		err = cmdCreateOrder(ctx, container, args)
	case "reopen-order":
		err = cmdReopenOrder(ctx, container, args)
	case "drivers":
		err = cmdDrivers(ctx, container)
	case "create-driver":
		err = cmdCreateDriver(ctx, container, args)
	case "delete-driver":
		err = cmdDeleteDriver(ctx, container, args)
	case "driver-active":
		err = cmdDriverActive(ctx, container, args)
	case "wallet-credit":
		err = cmdWallet(ctx, container, args, true)
	case "wallet-debit":
		err = cmdWallet(ctx, container, args, false)
	case "ledger":
		err = cmdLedger(ctx, container, args)
	case "gate-enroll":
		err = cmdGateEnroll(container, args)
	case "gate-remove":
		err = cmdGateRemove(container)
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Print(usageText)
		stdLog.Fatalf("未知命令: %s", command)
	}

	if err != nil {
		exitWithError(stdLog, err)
	}
}

// exitWithError 对常见业务错误给出可读提示
func exitWithError(stdLog *log.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrGateLocked):
		stdLog.Fatalf("账本口令校验失败")
	case errors.Is(err, service.ErrStoreRequired):
		stdLog.Fatalf("尚未配置门店或管理码，先执行 resolve-store 或 create-store")
	default:
		stdLog.Fatalf("操作失败: %v", err)
	}
}

func cmdResolveStore(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("resolve-store", flag.ExitOnError)
	adminCode := fs.String("admin-code", "", "管理码")
	if err := fs.Parse(args); err != nil {
		return err
	}
	code := strings.TrimSpace(*adminCode)
	if code == "" {
		code = c.IdentityService.AdminCode()
	}
	if code == "" {
		return service.ErrAdminCodeRequired
	}

	store, err := c.Client.ResolveStoreByAdmin(ctx, code)
	if err != nil {
		return err
	}
	if err := c.IdentityService.AdoptStore(store, code); err != nil {
		return err
	}
	fmt.Printf("已采用门店: %s (%s) 门店码=%s\n", store.Name, store.ID, store.StoreCode)
	return nil
}

func cmdCreateStore(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("create-store", flag.ExitOnError)
	name := fs.String("name", "", "门店名称")
	code := fs.String("code", "", "门店码（可选，后端可自动签发）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("missing -name")
	}

	store, err := c.Client.CreateStore(ctx, api.CreateStoreInput{
		Name:      strings.TrimSpace(*name),
		StoreCode: strings.TrimSpace(*code),
	})
	if err != nil {
		return err
	}
	if err := c.IdentityService.AdoptStore(store, store.AdminCode); err != nil {
		return err
	}
	fmt.Printf("门店已创建并采用: %s (%s)\n", store.Name, store.ID)
	fmt.Printf("门店码: %s\n", store.StoreCode)
	// 管理码只在创建响应里出现一次
	fmt.Printf("管理码: %s  （请妥善保存，后端不再重复下发）\n", store.AdminCode)
	return nil
}

func cmdDeleteStore(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("delete-store", flag.ExitOnError)
	storeID := fs.String("store-id", "", "门店 ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id := strings.TrimSpace(*storeID)
	if id == "" {
		return errors.New("missing -store-id")
	}

	if err := c.Client.DeleteStore(ctx, id); err != nil {
		return err
	}
	if err := c.IdentityService.ForgetRecent(id); err != nil {
		return err
	}
	// 删除的是当前门店时一并清除本地身份
	if c.IdentityService.StoreID() == id {
		if err := c.IdentityService.Clear(); err != nil {
			return err
		}
	}
	fmt.Printf("门店 %s 已删除\n", id)
	return nil
}

func cmdUseStore(c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("use-store", flag.ExitOnError)
	storeID := fs.String("store-id", "", "最近门店列表中的门店 ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id := strings.TrimSpace(*storeID)
	if id == "" {
		return errors.New("missing -store-id")
	}

	recents, err := c.IdentityService.RecentStores()
	if err != nil {
		return err
	}
	for _, r := range recents {
		if r.StoreID != id {
			continue
		}
		store := &models.Store{
			ID:        r.StoreID,
			Name:      r.Name,
			StoreCode: r.StoreCode,
			AdminCode: r.AdminCode,
		}
		if err := c.IdentityService.AdoptStore(store, r.AdminCode); err != nil {
			return err
		}
		fmt.Printf("已切换到门店: %s (%s)\n", r.Name, r.StoreID)
		return nil
	}
	return fmt.Errorf("store %s not in recent list", id)
}

func cmdRecent(c *provider.Container) error {
	recents, err := c.IdentityService.RecentStores()
	if err != nil {
		return err
	}
	if len(recents) == 0 {
		fmt.Println("最近没有使用过门店")
		return nil
	}
	current := c.IdentityService.StoreID()
	fmt.Printf("%-12s %-20s %-10s %s\n", "STORE_ID", "NAME", "CODE", "LAST_USED")
	for _, r := range recents {
		marker := " "
		if r.StoreID == current {
			marker = "*"
		}
		fmt.Printf("%s%-11s %-20s %-10s %s\n",
			marker, r.StoreID, r.Name, r.StoreCode, r.LastUsedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func cmdOrders(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	query := fs.String("query", "", "跨客户/收件人/类型/骑手的子串筛选")
	status := fs.String("status", "", "状态筛选，空或 all 不过滤")
	days := fs.Int("days", 0, "时间范围（天），0 不限")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key := c.IdentityService.SubscriptionKey()
	if key.IsZero() {
		return service.ErrStoreRequired
	}
	orders, err := c.Client.Orders(ctx, key)
	if err != nil {
		return err
	}

	filtered := view.FilterInventory(view.SortOrders(orders), view.InventoryFilter{
		Query:     *query,
		Status:    *status,
		RangeDays: *days,
	}, time.Now())

	counts := view.Counts(orders)
	fmt.Printf("订单 %d 笔（待处理 %d / 配送中 %d / 已送达 %d），筛选后 %d 笔\n",
		counts.Total, counts.Pending, counts.Delivering, counts.Delivered, len(filtered))
	if len(filtered) == 0 {
		return nil
	}
	fmt.Printf("%-14s %-11s %-12s %-12s %-10s %-8s %s\n",
		"ORDER_ID", "STATUS", "CUSTOMER", "RECEIVER", "DRIVER", "PRICE", "CREATED")
	for _, o := range filtered {
		fmt.Printf("%-14s %-11s %-12s %-12s %-10s %-8s %s\n",
			o.ID, o.Status, o.CustomerName, o.ReceiverName, o.DriverID,
			moneyString(o.Price), timestampString(o.CreatedAt))
	}
	return nil
}

func cmdCreateOrder(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("create-order", flag.ExitOnError)
	customer := fs.String("customer", "", "客户名")
	customerPhone := fs.String("customer-phone", "", "客户电话")
	receiver := fs.String("receiver", "", "收件人")
	phone := fs.String("phone", "", "收件电话")
	address := fs.String("address", "", "配送地址")
	price := fs.String("price", "", "订单金额")
	fee := fs.String("fee", "", "配送费")
	orderType := fs.String("type", "", "订单类型")
	payout := fs.String("payout", "", "结算方式")
	notes := fs.String("notes", "", "备注")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := api.CreateOrderInput{
		OrderType:     strings.TrimSpace(*orderType),
		PayoutMethod:  strings.TrimSpace(*payout),
		CustomerName:  strings.TrimSpace(*customer),
		CustomerPhone: strings.TrimSpace(*customerPhone),
		ReceiverName:  strings.TrimSpace(*receiver),
		ReceiverPhone: strings.TrimSpace(*phone),
		Address:       strings.TrimSpace(*address),
		Notes:         *notes,
	}
	if m, ok, err := parseMoneyFlag(*price); err != nil {
		return fmt.Errorf("invalid -price: %w", err)
	} else if ok {
		input.Price = &m
	}
	if m, ok, err := parseMoneyFlag(*fee); err != nil {
		return fmt.Errorf("invalid -fee: %w", err)
	} else if ok {
		input.DeliveryFee = &m
	}

	order, err := c.SyncService.CreateOrder(ctx, input)
	if err != nil {
		return err
	}
	fmt.Printf("订单已创建: %s 状态=%s\n", order.ID, order.Status)
	return nil
}

func cmdReopenOrder(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("reopen-order", flag.ExitOnError)
	id := fs.String("id", "", "订单 ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("missing -id")
	}

	order, err := c.SyncService.ReopenOrder(ctx, strings.TrimSpace(*id))
	if err != nil {
		return err
	}
	fmt.Printf("订单已重开: %s 状态=%s\n", order.ID, order.Status)
	return nil
}

func cmdDrivers(ctx context.Context, c *provider.Container) error {
	key := c.IdentityService.SubscriptionKey()
	if key.IsZero() {
		return service.ErrStoreRequired
	}
	drivers, err := c.Client.Drivers(ctx, key)
	if err != nil {
		return err
	}

	partition := view.PartitionDrivers(drivers)
	fmt.Printf("骑手 %d 名（启用 %d / 启用且在线 %d）\n",
		partition.Total(), partition.ActiveCount(), partition.ActiveOnlineCount())
	if partition.Total() == 0 {
		return nil
	}
	fmt.Printf("%-12s %-12s %-8s %-6s %-10s %s\n",
		"DRIVER_ID", "NAME", "STATUS", "ACTIVE", "CODE", "BALANCE")
	for _, d := range partition.Ordered() {
		active := "yes"
		if !d.Active() {
			active = "no"
		}
		fmt.Printf("%-12s %-12s %-8s %-6s %-10s %s\n",
			d.ID, d.Name, d.Status, active, d.Code(), moneyString(d.WalletBalance))
	}
	return nil
}

func cmdCreateDriver(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("create-driver", flag.ExitOnError)
	name := fs.String("name", "", "骑手姓名")
	phone := fs.String("phone", "", "骑手电话")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("missing -name")
	}

	driver, err := c.SyncService.CreateDriver(ctx, api.CreateDriverInput{
		Name:  strings.TrimSpace(*name),
		Phone: strings.TrimSpace(*phone),
	})
	if err != nil {
		return err
	}
	fmt.Printf("骑手已创建: %s (%s)\n", driver.Name, driver.ID)
	fmt.Printf("登录码: %s\n", driver.Code())
	return nil
}

func cmdDeleteDriver(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("delete-driver", flag.ExitOnError)
	id := fs.String("id", "", "骑手 ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("missing -id")
	}

	if err := c.SyncService.DeleteDriver(ctx, strings.TrimSpace(*id)); err != nil {
		return err
	}
	fmt.Printf("骑手 %s 已删除\n", strings.TrimSpace(*id))
	return nil
}

func cmdDriverActive(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("driver-active", flag.ExitOnError)
	id := fs.String("id", "", "骑手 ID")
	active := fs.Bool("active", true, "true 启用 / false 停用")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("missing -id")
	}

	driver, err := c.SyncService.SetDriverActive(ctx, strings.TrimSpace(*id), *active)
	if err != nil {
		return err
	}
	state := "启用"
	if !driver.Active() {
		state = "停用"
	}
	fmt.Printf("骑手 %s 已%s，当前状态=%s\n", driver.ID, state, driver.Status)
	return nil
}

func cmdWallet(ctx context.Context, c *provider.Container, args []string, credit bool) error {
	name := "wallet-debit"
	if credit {
		name = "wallet-credit"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.String("id", "", "骑手 ID")
	amount := fs.String("amount", "", "金额")
	note := fs.String("note", "", "备注")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("missing -id")
	}
	m, ok, err := parseMoneyFlag(*amount)
	if err != nil || !ok {
		return fmt.Errorf("invalid -amount: %q", *amount)
	}

	var driver *models.Driver
	if credit {
		driver, err = c.SyncService.CreditWallet(ctx, strings.TrimSpace(*id), m, *note)
	} else {
		driver, err = c.SyncService.DebitWallet(ctx, strings.TrimSpace(*id), m, *note)
	}
	if err != nil {
		return err
	}
	fmt.Printf("骑手 %s 钱包余额: %s\n", driver.ID, moneyString(driver.WalletBalance))
	return nil
}

func cmdLedger(ctx context.Context, c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("ledger", flag.ExitOnError)
	period := fs.String("period", "daily", "统计口径: daily / weekly / monthly")
	passphrase := fs.String("passphrase", "", "账本口令（设置过口令锁时必填）")
	perDriver := fs.Bool("drivers", false, "附带骑手维度账本")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// 口令锁只拦财务视图入口
	if err := c.GateService.Verify(c.IdentityService.AdminCode(), *passphrase); err != nil {
		return err
	}

	rows, err := c.LedgerService.Summary(ctx, *period)
	if err != nil {
		return err
	}
	fmt.Printf("%-14s %-8s %-14s %s\n", "BUCKET", "ORDERS", "DELIVERY_FEES", "PAYOUTS")
	for _, row := range rows {
		fmt.Printf("%-14s %-8d %-14s %s\n",
			row.Bucket, row.Orders, row.DeliveryFees.String(), row.Payouts.String())
	}

	if !*perDriver {
		return nil
	}
	driverRows, err := c.LedgerService.PerDriver(ctx, *period)
	if err != nil {
		return err
	}
	fmt.Printf("\n%-12s %-12s %-8s %s\n", "DRIVER_ID", "NAME", "ORDERS", "TOTAL")
	for _, row := range driverRows {
		fmt.Printf("%-12s %-12s %-8d %s\n",
			row.DriverID, row.DriverName, row.Orders, row.Total.String())
	}
	return nil
}

func cmdLogout(c *provider.Container) error {
	if err := c.IdentityService.Clear(); err != nil {
		return err
	}
	fmt.Println("本地身份已清除（最近门店与口令锁保留）")
	return nil
}

func cmdGateEnroll(c *provider.Container, args []string) error {
	fs := flag.NewFlagSet("gate-enroll", flag.ExitOnError)
	passphrase := fs.String("passphrase", "", "账本口令")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.GateService.Enroll(c.IdentityService.AdminCode(), *passphrase); err != nil {
		return err
	}
	fmt.Println("账本口令锁已设置")
	return nil
}

func cmdGateRemove(c *provider.Container) error {
	code := c.IdentityService.AdminCode()
	if code == "" {
		return service.ErrAdminCodeRequired
	}
	if err := c.GateService.Remove(code); err != nil {
		return err
	}
	fmt.Println("账本口令锁已移除")
	return nil
}

func parseMoneyFlag(raw string) (models.Money, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Money{}, false, nil
	}
	m, err := models.NewMoneyFromString(raw)
	if err != nil {
		return models.Money{}, false, err
	}
	return m, true, nil
}

func moneyString(m *models.Money) string {
	if m == nil {
		return "-"
	}
	return m.String()
}

func timestampString(t models.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Time.Format("2006-01-02 15:04")
}
