package provider

import (
	"github.com/rehab-eng/nova-max-ws/internal/api"
	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"
	"github.com/rehab-eng/nova-max-ws/internal/reconcile"
	"github.com/rehab-eng/nova-max-ws/internal/repository"
	"github.com/rehab-eng/nova-max-ws/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config     *config.Config
	Client     *api.Client
	Reconciler *reconcile.Reconciler

	// Repositories
	SettingRepo     repository.SettingRepository
	RecentStoreRepo repository.RecentStoreRepository

	// Services
	IdentityService *service.IdentityService
	GateService     *service.GateService
	LedgerService   *service.LedgerService
	SyncService     *service.SyncService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	c := &Container{
		Config: cfg,
		Client: api.New(cfg.Backend),
		Reconciler: reconcile.New(reconcile.Options{
			FlashTTL: cfg.Reconcile.FlashTTL(),
		}),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.SettingRepo = repository.NewSettingRepository(db)
	c.RecentStoreRepo = repository.NewRecentStoreRepository(db)
}

func (c *Container) initServices() {
	c.IdentityService = service.NewIdentityService(c.SettingRepo, c.RecentStoreRepo)
	if err := c.IdentityService.Load(c.Config.Identity); err != nil {
		logger.Errorw("provider_load_identity_failed", "error", err)
		panic(err)
	}

	c.GateService = service.NewGateService(c.SettingRepo)
	c.LedgerService = service.NewLedgerService(c.Client, c.IdentityService)
	c.SyncService = service.NewSyncService(
		c.Client,
		c.Reconciler,
		c.IdentityService,
		c.LedgerService,
		c.Config.Finance.Watch,
	)
}
