package repository

import (
	"errors"

	"github.com/rehab-eng/nova-max-ws/internal/models"

	"gorm.io/gorm"
)

// SettingRepository 本地设置数据访问接口
type SettingRepository interface {
	GetByKey(key string) (*models.Setting, error)
	Upsert(key string, value models.JSON) (*models.Setting, error)
	Delete(key string) error
	GetString(key string) (string, error)
	SetString(key, value string) error
}

// GormSettingRepository GORM 实现
type GormSettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓库
func NewSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// GetByKey 获取设置，不存在时返回 nil
func (r *GormSettingRepository) GetByKey(key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// Upsert 更新或创建设置
func (r *GormSettingRepository) Upsert(key string, value models.JSON) (*models.Setting, error) {
	setting, err := r.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		setting = &models.Setting{
			Key:       key,
			ValueJSON: value,
		}
		if err := r.db.Create(setting).Error; err != nil {
			return nil, err
		}
		return setting, nil
	}

	setting.ValueJSON = value
	if err := r.db.Save(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}

// Delete 删除设置，键不存在不视为错误
func (r *GormSettingRepository) Delete(key string) error {
	return r.db.Where("key = ?", key).Delete(&models.Setting{}).Error
}

// GetString 读取标量字符串设置，不存在时返回空串
func (r *GormSettingRepository) GetString(key string) (string, error) {
	setting, err := r.GetByKey(key)
	if err != nil {
		return "", err
	}
	return setting.StringValue(), nil
}

// SetString 写入标量字符串设置
func (r *GormSettingRepository) SetString(key, value string) error {
	_, err := r.Upsert(key, models.StringSetting(value))
	return err
}
