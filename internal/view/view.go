package view

import (
	"sort"
	"strings"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/models"
)

// StatusCounts 看板订单计数
type StatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Delivering int `json:"delivering"`
	Delivered  int `json:"delivered"`
}

// Counts 统计订单状态分布，其余状态只计入总数
func Counts(orders []models.Order) StatusCounts {
	counts := StatusCounts{Total: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case constants.OrderStatusPending:
			counts.Pending++
		case constants.OrderStatusDelivering:
			counts.Delivering++
		case constants.OrderStatusDelivered:
			counts.Delivered++
		}
	}
	return counts
}

// SortOrders 返回按创建时间倒序排列的新切片，入参不被修改。
// 无法解析的创建时间按纪元零值参与排序（沉底），同刻按 ID 升序。
func SortOrders(orders []models.Order) []models.Order {
	sorted := append([]models.Order(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].CreatedAt.SortKey(), sorted[j].CreatedAt.SortKey()
		if a != b {
			return a > b
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// InventoryFilter 库存视图筛选条件
type InventoryFilter struct {
	Query     string // 跨客户名 / 收件人名 / 订单类型 / 骑手 ID 的子串匹配
	Status    string // 空串或 all 不过滤
	RangeDays int    // 7 / 30 / 90，0 不限
}

// FilterInventory 按筛选条件过滤订单。
// 子串匹配大小写不敏感；创建时间无法解析的订单不受时间范围排除。
func FilterInventory(orders []models.Order, f InventoryFilter, now time.Time) []models.Order {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	status := strings.ToLower(strings.TrimSpace(f.Status))
	var cutoff time.Time
	if f.RangeDays > 0 {
		cutoff = now.Add(-time.Duration(f.RangeDays) * 24 * time.Hour)
	}

	var filtered []models.Order
	for _, o := range orders {
		if query != "" && !matchesQuery(o, query) {
			continue
		}
		if status != "" && status != "all" && o.Status != status {
			continue
		}
		if f.RangeDays > 0 && !o.CreatedAt.IsZero() && o.CreatedAt.Time.Before(cutoff) {
			continue
		}
		filtered = append(filtered, o)
	}
	return filtered
}

func matchesQuery(o models.Order, query string) bool {
	for _, field := range []string{o.CustomerName, o.ReceiverName, o.OrderType, o.DriverID} {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// DriverPartition 骑手分组视图：启用在前、在线在前，组内按名字（再按 ID）排序
type DriverPartition struct {
	ActiveOnline    []models.Driver
	ActiveOffline   []models.Driver
	InactiveOnline  []models.Driver
	InactiveOffline []models.Driver
}

// PartitionDrivers 将骑手划入四个象限并分别排序
func PartitionDrivers(drivers []models.Driver) DriverPartition {
	var p DriverPartition
	for _, d := range drivers {
		online := d.Status == constants.DriverStatusOnline
		switch {
		case d.Active() && online:
			p.ActiveOnline = append(p.ActiveOnline, d)
		case d.Active():
			p.ActiveOffline = append(p.ActiveOffline, d)
		case online:
			p.InactiveOnline = append(p.InactiveOnline, d)
		default:
			p.InactiveOffline = append(p.InactiveOffline, d)
		}
	}
	sortDrivers(p.ActiveOnline)
	sortDrivers(p.ActiveOffline)
	sortDrivers(p.InactiveOnline)
	sortDrivers(p.InactiveOffline)
	return p
}

// Ordered 按展示顺序拼接四个象限
func (p DriverPartition) Ordered() []models.Driver {
	ordered := make([]models.Driver, 0, p.Total())
	ordered = append(ordered, p.ActiveOnline...)
	ordered = append(ordered, p.ActiveOffline...)
	ordered = append(ordered, p.InactiveOnline...)
	ordered = append(ordered, p.InactiveOffline...)
	return ordered
}

// Total 全部骑手数
func (p DriverPartition) Total() int {
	return len(p.ActiveOnline) + len(p.ActiveOffline) + len(p.InactiveOnline) + len(p.InactiveOffline)
}

// ActiveCount 启用中的骑手数
func (p DriverPartition) ActiveCount() int {
	return len(p.ActiveOnline) + len(p.ActiveOffline)
}

// ActiveOnlineCount 启用且在线的骑手数
func (p DriverPartition) ActiveOnlineCount() int {
	return len(p.ActiveOnline)
}

func sortDrivers(drivers []models.Driver) {
	sort.Slice(drivers, func(i, j int) bool {
		a, b := strings.ToLower(drivers[i].Name), strings.ToLower(drivers[j].Name)
		if a != b {
			return a < b
		}
		return drivers[i].ID < drivers[j].ID
	})
}
