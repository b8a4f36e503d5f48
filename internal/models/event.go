package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedEvent 实时帧无法解析
var ErrMalformedEvent = errors.New("malformed realtime event")

// Event 实时事件帧。order_created 携带完整 order 对象，
// 其余事件使用顶层扁平字段。
type Event struct {
	Type        string     `json:"type"`
	StoreID     string     `json:"store_id"`
	Order       *Order     `json:"order"`
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	DriverID    string     `json:"driver_id"`
	DeliveredAt *Timestamp `json:"delivered_at"`
	Driver      *Driver    `json:"driver"`
	Amount      *Money     `json:"amount"`
}

// ParseEvent 解析实时事件；缺少 type 的帧视为畸形帧
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(ev.Type) == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return ev, nil
}

// EffectiveStoreID 事件归属门店：顶层缺失时回退到内嵌订单
func (e Event) EffectiveStoreID() string {
	if e.StoreID != "" {
		return e.StoreID
	}
	if e.Order != nil {
		return e.Order.StoreID
	}
	return ""
}

// EffectiveOrderID 事件关联订单 ID：顶层缺失时回退到内嵌订单
func (e Event) EffectiveOrderID() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	if e.Order != nil {
		return e.Order.ID
	}
	return ""
}
