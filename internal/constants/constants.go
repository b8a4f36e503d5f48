package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusAccepted   = "accepted"
	OrderStatusDelivering = "delivering"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// 骑手在线状态常量
const (
	DriverStatusOnline  = "online"
	DriverStatusOffline = "offline"
	DriverStatusBusy    = "busy"
)

// 骑手启用状态（线上协议使用 0/1 整数）
const (
	DriverInactive = 0
	DriverActive   = 1
)

// 结算方式常量（透传字段，客户端不做业务判断）
const (
	PayoutMethodCard         = "card"
	PayoutMethodWallet       = "wallet"
	PayoutMethodCash         = "cash"
	PayoutMethodBankTransfer = "bank_transfer"
)

// 实时事件类型常量
const (
	EventOrderCreated      = "order_created"
	EventOrderStatus       = "order_status"
	EventDriverStatus      = "driver_status"
	EventDriverCreated     = "driver_created"
	EventDriverDisabled    = "driver_disabled"
	EventDriverActive      = "driver_active"
	EventWalletTransaction = "wallet_transaction"
	EventPong              = "pong"
)

// 通知类型常量
const (
	NotificationNewOrder     = "new_order"
	NotificationStatusChange = "status_change"
)

// 账本统计周期常量
const (
	LedgerPeriodDaily   = "daily"
	LedgerPeriodWeekly  = "weekly"
	LedgerPeriodMonthly = "monthly"
)

// 实时订阅角色
const (
	RealtimeRoleAdmin = "admin"
)

// 实时传输方式
const (
	TransportWebSocket = "websocket"
	TransportSSE       = "sse"
)

// 快照来源（流入对账器时标注）
const (
	SnapshotSourceInitial = "initial"
	SnapshotSourceRefresh = "refresh"
	SnapshotSourcePoll    = "poll"
	SnapshotSourceSSE     = "sse"
)

// 本地状态键（沿用浏览器端的 localStorage 键名）
const (
	SettingKeyStoreID    = "nova.store_id"
	SettingKeyStoreCode  = "nova.store_code"
	SettingKeyAdminCode  = "nova.admin_code"
	SettingKeyStoreName  = "nova.store_name"
	SettingKeyGatePrefix = "nova.gate."
)

// 最近使用门店的保留上限
const RecentStoreLimit = 12

// 库存视图时间范围（天，0 表示不限）
const (
	InventoryRange7   = 7
	InventoryRange30  = 30
	InventoryRange90  = 90
	InventoryRangeAll = 0
)

// 后端未携带 error 字段时的兜底提示
const GenericBackendError = "request failed"
