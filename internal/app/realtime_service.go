package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"
	"github.com/rehab-eng/nova-max-ws/internal/provider"
	"github.com/rehab-eng/nova-max-ws/internal/realtime"
)

// RealtimeService 实时同步服务：解析订阅键、预热本地状态并驱动连接管理器
type RealtimeService struct {
	name      string
	cfg       *config.Config
	container *provider.Container

	mu      sync.RWMutex
	manager *realtime.Manager
}

// NewRealtimeService 创建实时同步服务
func NewRealtimeService(cfg *config.Config, container *provider.Container) *RealtimeService {
	return &RealtimeService{
		name:      "realtime",
		cfg:       cfg,
		container: container,
	}
}

// Name 服务名称
func (s *RealtimeService) Name() string {
	if s == nil || s.name == "" {
		return "realtime"
	}
	return s.name
}

// Status 当前链路状态；管理器尚未建立时视为未连接
func (s *RealtimeService) Status() realtime.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return realtime.StatusDisconnected
	}
	return s.manager.Status()
}

// Start 启动服务，阻塞运行直到停止
func (s *RealtimeService) Start(ctx context.Context) error {
	if s == nil || s.container == nil {
		return errors.New("realtime service not initialized")
	}

	key, err := s.resolveKey(ctx)
	if err != nil {
		return err
	}

	// 预热失败不阻断启动，轮询会补齐快照
	if err := s.container.SyncService.InitialLoad(ctx); err != nil {
		logger.Warnw("initial_load_failed", "error", err)
	}

	manager := realtime.New(realtime.Options{
		WSBaseURL:        s.cfg.Backend.ResolveWSURL(),
		StreamBaseURL:    strings.TrimRight(strings.TrimSpace(s.cfg.Backend.BaseURL), "/"),
		Key:              key,
		Transport:        s.cfg.Realtime.Transport,
		PingInterval:     s.cfg.Realtime.PingInterval(),
		PollInterval:     s.cfg.Realtime.PollInterval(),
		BackoffInitial:   s.cfg.Realtime.BackoffInitial(),
		BackoffMax:       s.cfg.Realtime.BackoffMax(),
		HandshakeTimeout: s.cfg.Backend.HandshakeTimeout(),
		Handler:          s.container.SyncService,
		Fetcher:          s.container.Client,
	})

	s.mu.Lock()
	s.manager = manager
	s.mu.Unlock()

	return manager.Start(ctx)
}

// Stop 停止连接管理器并释放对账器的高亮定时器
func (s *RealtimeService) Stop(ctx context.Context) error {
	s.mu.RLock()
	manager := s.manager
	s.mu.RUnlock()
	if manager != nil {
		manager.Stop()
	}
	if s.container != nil && s.container.Reconciler != nil {
		s.container.Reconciler.Close()
	}
	return nil
}

// resolveKey 确定订阅键。只配置了管理码时先向后端解析门店并采用；
// 解析失败则继续用管理码订阅。
func (s *RealtimeService) resolveKey(ctx context.Context) (models.SubscriptionKey, error) {
	identity := s.container.IdentityService
	key := identity.SubscriptionKey()
	if key.IsZero() {
		return key, errors.New("no store or admin code configured")
	}

	if key.Kind == models.SubscriptionAdmin {
		store, err := s.container.Client.ResolveStoreByAdmin(ctx, key.Value)
		if err != nil {
			logger.Warnw("store_resolve_failed", "error", err)
			return key, nil
		}
		if err := identity.AdoptStore(store, key.Value); err != nil {
			return key, err
		}
		key = identity.SubscriptionKey()
		logger.Infow("store_resolved", "store_id", key.Value)
	}
	return key, nil
}
