package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/models"
)

// CreateOrderInput 创建订单参数
type CreateOrderInput struct {
	StoreID       string        `json:"store_id"`
	OrderType     string        `json:"order_type,omitempty"`
	PayoutMethod  string        `json:"payout_method,omitempty"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	ReceiverName  string        `json:"receiver_name,omitempty"`
	ReceiverPhone string        `json:"receiver_phone,omitempty"`
	Address       string        `json:"address,omitempty"`
	Price         *models.Money `json:"price,omitempty"`
	DeliveryFee   *models.Money `json:"delivery_fee,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

// Orders 拉取订单全量快照
func (c *Client) Orders(ctx context.Context, key models.SubscriptionKey) ([]models.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/orders", key.Query(), nil)
	if err != nil {
		return nil, err
	}
	var orders []models.Order
	if err := decodeList(body, "orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder 创建订单
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	body, err := c.do(ctx, http.MethodPost, "/orders", nil, input)
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := decodeResource(body, "order", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrderStatus 更新订单状态
func (c *Client) SetOrderStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	path := "/orders/" + url.PathEscape(orderID) + "/status"
	body, err := c.do(ctx, http.MethodPatch, path, nil, map[string]string{"status": status})
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := decodeResource(body, "order", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ReopenOrder 重开已取消的订单，状态回到待处理
func (c *Client) ReopenOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return c.SetOrderStatus(ctx, orderID, constants.OrderStatusPending)
}
