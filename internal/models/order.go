package models

// Order 配送订单（后端 /orders 资源的客户端侧表示）
type Order struct {
	ID            string     `json:"id"`
	StoreID       string     `json:"store_id"`
	Status        string     `json:"status"` // pending / accepted / delivering / delivered / cancelled
	OrderType     string     `json:"order_type"`
	PayoutMethod  string     `json:"payout_method"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	ReceiverName  string     `json:"receiver_name"`
	ReceiverPhone string     `json:"receiver_phone"`
	Address       string     `json:"address"`
	Price         *Money     `json:"price"`
	DeliveryFee   *Money     `json:"delivery_fee"`
	DriverID      string     `json:"driver_id"`
	Notes         string     `json:"notes"`
	CreatedAt     Timestamp  `json:"created_at"`
	DeliveredAt   *Timestamp `json:"delivered_at"`
}

// OrderPatch 订单局部更新：nil 字段不参与合并
type OrderPatch struct {
	ID            string
	StoreID       *string
	Status        *string
	OrderType     *string
	PayoutMethod  *string
	CustomerName  *string
	CustomerPhone *string
	ReceiverName  *string
	ReceiverPhone *string
	Address       *string
	Price         *Money
	DeliveryFee   *Money
	DriverID      *string
	Notes         *string
	CreatedAt     *Timestamp
	DeliveredAt   *Timestamp
}

// PatchFromOrder 用完整订单构造全量补丁
func PatchFromOrder(o Order) OrderPatch {
	created := o.CreatedAt
	return OrderPatch{
		ID:            o.ID,
		StoreID:       stringPtr(o.StoreID),
		Status:        stringPtr(o.Status),
		OrderType:     stringPtr(o.OrderType),
		PayoutMethod:  stringPtr(o.PayoutMethod),
		CustomerName:  stringPtr(o.CustomerName),
		CustomerPhone: stringPtr(o.CustomerPhone),
		ReceiverName:  stringPtr(o.ReceiverName),
		ReceiverPhone: stringPtr(o.ReceiverPhone),
		Address:       stringPtr(o.Address),
		Price:         o.Price,
		DeliveryFee:   o.DeliveryFee,
		DriverID:      stringPtr(o.DriverID),
		Notes:         stringPtr(o.Notes),
		CreatedAt:     &created,
		DeliveredAt:   o.DeliveredAt,
	}
}

// Apply 将补丁浅合并到订单上
func (p OrderPatch) Apply(o *Order) {
	if o == nil {
		return
	}
	if p.StoreID != nil {
		o.StoreID = *p.StoreID
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.OrderType != nil {
		o.OrderType = *p.OrderType
	}
	if p.PayoutMethod != nil {
		o.PayoutMethod = *p.PayoutMethod
	}
	if p.CustomerName != nil {
		o.CustomerName = *p.CustomerName
	}
	if p.CustomerPhone != nil {
		o.CustomerPhone = *p.CustomerPhone
	}
	if p.ReceiverName != nil {
		o.ReceiverName = *p.ReceiverName
	}
	if p.ReceiverPhone != nil {
		o.ReceiverPhone = *p.ReceiverPhone
	}
	if p.Address != nil {
		o.Address = *p.Address
	}
	if p.Price != nil {
		o.Price = p.Price
	}
	if p.DeliveryFee != nil {
		o.DeliveryFee = p.DeliveryFee
	}
	if p.DriverID != nil {
		o.DriverID = *p.DriverID
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
	if p.CreatedAt != nil {
		o.CreatedAt = *p.CreatedAt
	}
	if p.DeliveredAt != nil {
		o.DeliveredAt = p.DeliveredAt
	}
}

// NewOrder 以补丁为底构造新订单（用于本地列表未见过该 ID 时的前插）
func (p OrderPatch) NewOrder() Order {
	var o Order
	o.ID = p.ID
	p.Apply(&o)
	return o
}

func stringPtr(s string) *string {
	return &s
}
