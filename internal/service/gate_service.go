package service

import (
	"strings"

	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// GateService 财务视图的本地门禁。纯客户端体验锁，
// 后端不感知：凭据按管理码存于本地状态库，值为 bcrypt 哈希。
type GateService struct {
	settingRepo repository.SettingRepository
}

// NewGateService 创建门禁服务
func NewGateService(settingRepo repository.SettingRepository) *GateService {
	return &GateService{settingRepo: settingRepo}
}

func gateKey(adminCode string) string {
	return constants.SettingKeyGatePrefix + strings.TrimSpace(adminCode)
}

// Enroll 为管理码登记门禁口令
func (s *GateService) Enroll(adminCode, passphrase string) error {
	if strings.TrimSpace(adminCode) == "" {
		return ErrAdminCodeRequired
	}
	if strings.TrimSpace(passphrase) == "" {
		return ErrGatePassphraseEmpty
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.settingRepo.SetString(gateKey(adminCode), string(hash)); err != nil {
		return err
	}
	logger.Infow("gate_enrolled", "admin_code_set", true)
	return nil
}

// Enrolled 管理码是否已登记门禁
func (s *GateService) Enrolled(adminCode string) (bool, error) {
	if strings.TrimSpace(adminCode) == "" {
		return false, nil
	}
	stored, err := s.settingRepo.GetString(gateKey(adminCode))
	if err != nil {
		return false, err
	}
	return stored != "", nil
}

// Verify 核对门禁口令。未登记的管理码直接放行（门禁是自愿开启的）。
func (s *GateService) Verify(adminCode, passphrase string) error {
	if strings.TrimSpace(adminCode) == "" {
		return nil
	}
	stored, err := s.settingRepo.GetString(gateKey(adminCode))
	if err != nil {
		return err
	}
	if stored == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(passphrase)); err != nil {
		return ErrGateLocked
	}
	return nil
}

// Remove 移除管理码的门禁凭据
func (s *GateService) Remove(adminCode string) error {
	if strings.TrimSpace(adminCode) == "" {
		return nil
	}
	return s.settingRepo.Delete(gateKey(adminCode))
}
