package api

import (
	"context"
	"net/http"

	"github.com/rehab-eng/nova-max-ws/internal/models"
)

// LedgerSummary 拉取按周期分桶的账本汇总
func (c *Client) LedgerSummary(ctx context.Context, key models.SubscriptionKey, period string) ([]models.LedgerSummaryRow, error) {
	query := key.Query()
	if period != "" {
		query.Set("period", period)
	}
	body, err := c.do(ctx, http.MethodGet, "/ledger/summary", query, nil)
	if err != nil {
		return nil, err
	}
	var rows []models.LedgerSummaryRow
	if err := decodeList(body, "summary", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// LedgerDrivers 拉取按骑手汇总的账本
func (c *Client) LedgerDrivers(ctx context.Context, key models.SubscriptionKey, period string) ([]models.DriverLedgerRow, error) {
	query := key.Query()
	if period != "" {
		query.Set("period", period)
	}
	body, err := c.do(ctx, http.MethodGet, "/ledger/drivers", query, nil)
	if err != nil {
		return nil, err
	}
	var rows []models.DriverLedgerRow
	if err := decodeList(body, "drivers", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
