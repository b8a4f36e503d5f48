package service

import (
	"strings"
	"sync"

	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"
	"github.com/rehab-eng/nova-max-ws/internal/repository"
)

// IdentityService 运营者身份服务：门店选择与管理码的本地持久化
type IdentityService struct {
	settingRepo repository.SettingRepository
	recentRepo  repository.RecentStoreRepository

	mu        sync.RWMutex
	storeID   string
	storeCode string
	adminCode string
	storeName string
}

// NewIdentityService 创建身份服务
func NewIdentityService(
	settingRepo repository.SettingRepository,
	recentRepo repository.RecentStoreRepository,
) *IdentityService {
	return &IdentityService{
		settingRepo: settingRepo,
		recentRepo:  recentRepo,
	}
}

// Load 从状态库加载身份；库为空时以配置种子初始化并写回
func (s *IdentityService) Load(seed config.IdentityConfig) error {
	storeID, err := s.settingRepo.GetString(constants.SettingKeyStoreID)
	if err != nil {
		return err
	}
	storeCode, err := s.settingRepo.GetString(constants.SettingKeyStoreCode)
	if err != nil {
		return err
	}
	adminCode, err := s.settingRepo.GetString(constants.SettingKeyAdminCode)
	if err != nil {
		return err
	}
	storeName, err := s.settingRepo.GetString(constants.SettingKeyStoreName)
	if err != nil {
		return err
	}

	if storeID == "" && adminCode == "" {
		storeID = strings.TrimSpace(seed.StoreID)
		storeCode = strings.TrimSpace(seed.StoreCode)
		adminCode = strings.TrimSpace(seed.AdminCode)
		if storeID != "" {
			if err := s.settingRepo.SetString(constants.SettingKeyStoreID, storeID); err != nil {
				return err
			}
		}
		if storeCode != "" {
			if err := s.settingRepo.SetString(constants.SettingKeyStoreCode, storeCode); err != nil {
				return err
			}
		}
		if adminCode != "" {
			if err := s.settingRepo.SetString(constants.SettingKeyAdminCode, adminCode); err != nil {
				return err
			}
		}
		if storeID != "" || adminCode != "" {
			logger.Infow("identity_seeded",
				"store_id", storeID,
				"admin_code_set", adminCode != "",
			)
		}
	}

	s.mu.Lock()
	s.storeID = storeID
	s.storeCode = storeCode
	s.adminCode = adminCode
	s.storeName = storeName
	s.mu.Unlock()
	return nil
}

// StoreID 当前门店 ID
func (s *IdentityService) StoreID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storeID
}

// StoreCode 当前门店编码
func (s *IdentityService) StoreCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storeCode
}

// AdminCode 当前管理码
func (s *IdentityService) AdminCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminCode
}

// StoreName 当前门店名称
func (s *IdentityService) StoreName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storeName
}

// SubscriptionKey 订阅键：已知门店 ID 用门店键，否则用管理码键
func (s *IdentityService) SubscriptionKey() models.SubscriptionKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.storeID != "" {
		return models.StoreKey(s.storeID)
	}
	if s.adminCode != "" {
		return models.AdminKey(s.adminCode)
	}
	return models.SubscriptionKey{}
}

// AdoptStore 采用门店：写穿所有身份键并记入最近门店
func (s *IdentityService) AdoptStore(store *models.Store, adminCode string) error {
	if store == nil || strings.TrimSpace(store.ID) == "" {
		return ErrStoreRequired
	}
	code := strings.TrimSpace(adminCode)
	if code == "" {
		code = strings.TrimSpace(store.AdminCode)
	}

	if err := s.settingRepo.SetString(constants.SettingKeyStoreID, store.ID); err != nil {
		return err
	}
	if err := s.settingRepo.SetString(constants.SettingKeyStoreCode, store.StoreCode); err != nil {
		return err
	}
	if err := s.settingRepo.SetString(constants.SettingKeyStoreName, store.Name); err != nil {
		return err
	}
	if code != "" {
		if err := s.settingRepo.SetString(constants.SettingKeyAdminCode, code); err != nil {
			return err
		}
	}

	if _, err := s.recentRepo.Touch(models.RecentStore{
		StoreID:   store.ID,
		Name:      store.Name,
		StoreCode: store.StoreCode,
		AdminCode: code,
	}); err != nil {
		return err
	}
	if err := s.recentRepo.TrimTo(constants.RecentStoreLimit); err != nil {
		return err
	}

	s.mu.Lock()
	s.storeID = store.ID
	s.storeCode = store.StoreCode
	s.storeName = store.Name
	if code != "" {
		s.adminCode = code
	}
	s.mu.Unlock()

	logger.Infow("store_adopted",
		"store_id", store.ID,
		"store_code", store.StoreCode,
	)
	return nil
}

// SetAdminCode 设置管理码
func (s *IdentityService) SetAdminCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrAdminCodeRequired
	}
	if err := s.settingRepo.SetString(constants.SettingKeyAdminCode, code); err != nil {
		return err
	}
	s.mu.Lock()
	s.adminCode = code
	s.mu.Unlock()
	return nil
}

// Clear 退出登录：清除身份键；最近门店与财务门禁保留
func (s *IdentityService) Clear() error {
	keys := []string{
		constants.SettingKeyStoreID,
		constants.SettingKeyStoreCode,
		constants.SettingKeyAdminCode,
		constants.SettingKeyStoreName,
	}
	for _, key := range keys {
		if err := s.settingRepo.Delete(key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.storeID = ""
	s.storeCode = ""
	s.adminCode = ""
	s.storeName = ""
	s.mu.Unlock()

	logger.Infow("identity_cleared")
	return nil
}

// RecentStores 最近使用的门店，最新在前
func (s *IdentityService) RecentStores() ([]models.RecentStore, error) {
	return s.recentRepo.List(constants.RecentStoreLimit)
}

// ForgetRecent 从最近门店中移除一条记录
func (s *IdentityService) ForgetRecent(storeID string) error {
	return s.recentRepo.Delete(storeID)
}
