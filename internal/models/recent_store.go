package models

import "time"

// RecentStore 最近使用过的门店（本地保留，便于快速切换）
type RecentStore struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	StoreID    string    `gorm:"uniqueIndex;not null" json:"store_id"`
	Name       string    `json:"name"`
	StoreCode  string    `json:"store_code"`
	AdminCode  string    `json:"admin_code"`
	LastUsedAt time.Time `gorm:"index" json:"last_used_at"`
}

// TableName 指定表名
func (RecentStore) TableName() string {
	return "recent_stores"
}
