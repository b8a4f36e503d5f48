package service

import (
	"context"
	"strings"
	"sync"

	"github.com/rehab-eng/nova-max-ws/internal/api"
	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"
)

// LedgerService 账本查询服务：按周期缓存最近一次结果，
// 钱包事件到达时由同步服务触发失效与重拉。
type LedgerService struct {
	client   *api.Client
	identity *IdentityService

	mu         sync.Mutex
	lastPeriod string
	summaries  map[string][]models.LedgerSummaryRow
	perDriver  map[string][]models.DriverLedgerRow
}

// NewLedgerService 创建账本服务
func NewLedgerService(client *api.Client, identity *IdentityService) *LedgerService {
	return &LedgerService{
		client:    client,
		identity:  identity,
		summaries: make(map[string][]models.LedgerSummaryRow),
		perDriver: make(map[string][]models.DriverLedgerRow),
	}
}

func normalizeLedgerPeriod(period string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" {
		return constants.LedgerPeriodDaily, nil
	}
	switch p {
	case constants.LedgerPeriodDaily, constants.LedgerPeriodWeekly, constants.LedgerPeriodMonthly:
		return p, nil
	}
	return "", ErrLedgerPeriodInvalid
}

// Summary 按周期汇总账本，优先命中缓存
func (s *LedgerService) Summary(ctx context.Context, period string) ([]models.LedgerSummaryRow, error) {
	p, err := normalizeLedgerPeriod(period)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if rows, ok := s.summaries[p]; ok {
		s.lastPeriod = p
		s.mu.Unlock()
		return rows, nil
	}
	s.mu.Unlock()

	rows, err := s.client.LedgerSummary(ctx, s.identity.SubscriptionKey(), p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.summaries[p] = rows
	s.lastPeriod = p
	s.mu.Unlock()
	return rows, nil
}

// PerDriver 按周期返回骑手维度账本，优先命中缓存
func (s *LedgerService) PerDriver(ctx context.Context, period string) ([]models.DriverLedgerRow, error) {
	p, err := normalizeLedgerPeriod(period)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if rows, ok := s.perDriver[p]; ok {
		s.lastPeriod = p
		s.mu.Unlock()
		return rows, nil
	}
	s.mu.Unlock()

	rows, err := s.client.LedgerDrivers(ctx, s.identity.SubscriptionKey(), p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.perDriver[p] = rows
	s.lastPeriod = p
	s.mu.Unlock()
	return rows, nil
}

// Invalidate 清空全部缓存
func (s *LedgerService) Invalidate() {
	s.mu.Lock()
	s.summaries = make(map[string][]models.LedgerSummaryRow)
	s.perDriver = make(map[string][]models.DriverLedgerRow)
	s.mu.Unlock()
	logger.Debugw("ledger_cache_invalidated")
}

// Refresh 重拉最近请求过的周期；从未请求过则什么也不做
func (s *LedgerService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	p := s.lastPeriod
	s.mu.Unlock()
	if p == "" {
		return nil
	}

	key := s.identity.SubscriptionKey()
	summary, err := s.client.LedgerSummary(ctx, key, p)
	if err != nil {
		return err
	}
	drivers, err := s.client.LedgerDrivers(ctx, key, p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.summaries[p] = summary
	s.perDriver[p] = drivers
	s.mu.Unlock()
	logger.Debugw("ledger_refreshed", "period", p)
	return nil
}
