package repository

import (
	"errors"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/models"

	"gorm.io/gorm"
)

// RecentStoreRepository 最近使用门店数据访问接口
type RecentStoreRepository interface {
	Touch(entry models.RecentStore) (*models.RecentStore, error)
	List(limit int) ([]models.RecentStore, error)
	Delete(storeID string) error
	TrimTo(limit int) error
}

// GormRecentStoreRepository GORM 实现
type GormRecentStoreRepository struct {
	db *gorm.DB
}

// NewRecentStoreRepository 创建最近门店仓库
func NewRecentStoreRepository(db *gorm.DB) *GormRecentStoreRepository {
	return &GormRecentStoreRepository{db: db}
}

// Touch 更新或创建最近门店记录，同时刷新最近使用时间
func (r *GormRecentStoreRepository) Touch(entry models.RecentStore) (*models.RecentStore, error) {
	var existing models.RecentStore
	err := r.db.Where("store_id = ?", entry.StoreID).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		entry.LastUsedAt = time.Now()
		if err := r.db.Create(&entry).Error; err != nil {
			return nil, err
		}
		return &entry, nil
	}

	existing.Name = entry.Name
	existing.StoreCode = entry.StoreCode
	existing.AdminCode = entry.AdminCode
	existing.LastUsedAt = time.Now()
	if err := r.db.Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// List 按最近使用时间倒序返回门店记录
func (r *GormRecentStoreRepository) List(limit int) ([]models.RecentStore, error) {
	var entries []models.RecentStore
	query := r.db.Order("last_used_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete 按门店 ID 删除记录
func (r *GormRecentStoreRepository) Delete(storeID string) error {
	return r.db.Where("store_id = ?", storeID).Delete(&models.RecentStore{}).Error
}

// TrimTo 仅保留最近使用的 limit 条记录，淘汰最旧的
func (r *GormRecentStoreRepository) TrimTo(limit int) error {
	if limit <= 0 {
		return nil
	}
	var keep []models.RecentStore
	if err := r.db.Order("last_used_at DESC").Limit(limit).Find(&keep).Error; err != nil {
		return err
	}
	if len(keep) < limit {
		return nil
	}
	ids := make([]uint, 0, len(keep))
	for _, entry := range keep {
		ids = append(ids, entry.ID)
	}
	return r.db.Where("id NOT IN ?", ids).Delete(&models.RecentStore{}).Error
}
