package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/models"
)

// CreateDriverInput 创建骑手参数
type CreateDriverInput struct {
	StoreID string `json:"store_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
}

// walletInput 钱包加扣款请求体
type walletInput struct {
	Amount models.Money `json:"amount"`
	Note   string       `json:"note,omitempty"`
}

// Drivers 拉取骑手列表
func (c *Client) Drivers(ctx context.Context, key models.SubscriptionKey) ([]models.Driver, error) {
	body, err := c.do(ctx, http.MethodGet, "/drivers", key.Query(), nil)
	if err != nil {
		return nil, err
	}
	var drivers []models.Driver
	if err := decodeList(body, "drivers", &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// CreateDriver 创建骑手，返回的骑手携带后端签发的接单码
func (c *Client) CreateDriver(ctx context.Context, input CreateDriverInput) (*models.Driver, error) {
	body, err := c.do(ctx, http.MethodPost, "/drivers", nil, input)
	if err != nil {
		return nil, err
	}
	var driver models.Driver
	if err := decodeResource(body, "driver", &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// DeleteDriver 删除骑手
func (c *Client) DeleteDriver(ctx context.Context, driverID string) error {
	body, err := c.do(ctx, http.MethodDelete, "/drivers/"+url.PathEscape(driverID), nil, nil)
	if err != nil {
		return err
	}
	return decodeAck(body)
}

// SetDriverActive 启用或停用骑手（线上协议按 0/1 整数传递）
func (c *Client) SetDriverActive(ctx context.Context, driverID string, active bool) (*models.Driver, error) {
	flag := constants.DriverInactive
	if active {
		flag = constants.DriverActive
	}
	path := "/drivers/" + url.PathEscape(driverID) + "/active"
	body, err := c.do(ctx, http.MethodPatch, path, nil, map[string]int{"is_active": flag})
	if err != nil {
		return nil, err
	}
	var driver models.Driver
	if err := decodeResource(body, "driver", &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// CreditWallet 骑手钱包加款
func (c *Client) CreditWallet(ctx context.Context, driverID string, amount models.Money, note string) (*models.Driver, error) {
	return c.walletOp(ctx, driverID, "credit", amount, note)
}

// DebitWallet 骑手钱包扣款
func (c *Client) DebitWallet(ctx context.Context, driverID string, amount models.Money, note string) (*models.Driver, error) {
	return c.walletOp(ctx, driverID, "debit", amount, note)
}

func (c *Client) walletOp(ctx context.Context, driverID, op string, amount models.Money, note string) (*models.Driver, error) {
	path := "/drivers/" + url.PathEscape(driverID) + "/wallet/" + op
	body, err := c.do(ctx, http.MethodPost, path, nil, walletInput{Amount: amount, Note: note})
	if err != nil {
		return nil, err
	}
	var driver models.Driver
	if err := decodeResource(body, "driver", &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}
