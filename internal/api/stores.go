package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rehab-eng/nova-max-ws/internal/models"
)

// CreateStoreInput 创建门店参数
type CreateStoreInput struct {
	Name      string `json:"name"`
	StoreCode string `json:"store_code,omitempty"`
}

// CreateStore 创建门店，返回的门店携带后端签发的门店码与管理码
func (c *Client) CreateStore(ctx context.Context, input CreateStoreInput) (*models.Store, error) {
	body, err := c.do(ctx, http.MethodPost, "/stores", nil, input)
	if err != nil {
		return nil, err
	}
	var store models.Store
	if err := decodeResource(body, "store", &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// ResolveStoreByAdmin 用管理码换取门店信息
func (c *Client) ResolveStoreByAdmin(ctx context.Context, adminCode string) (*models.Store, error) {
	body, err := c.do(ctx, http.MethodPost, "/stores/by-admin", nil, map[string]string{"admin_code": adminCode})
	if err != nil {
		return nil, err
	}
	var store models.Store
	if err := decodeResource(body, "store", &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// DeleteStore 删除门店
func (c *Client) DeleteStore(ctx context.Context, storeID string) error {
	body, err := c.do(ctx, http.MethodDelete, "/stores/"+url.PathEscape(storeID), nil, nil)
	if err != nil {
		return err
	}
	return decodeAck(body)
}
