package models

import (
	"database/sql/driver"
	"encoding/json"
)

// JSON 设置值的通用 JSON 类型
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return nil
	}
}

// Setting 本地持久化设置（键值对，对应浏览器端的 localStorage）
type Setting struct {
	Key       string `gorm:"primarykey" json:"key"`  // 设置键
	ValueJSON JSON   `gorm:"type:json" json:"value"` // 设置值
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}

// StringValue 读取标量字符串设置（存储形态为 {"value": "..."}）
func (s *Setting) StringValue() string {
	if s == nil || s.ValueJSON == nil {
		return ""
	}
	if v, ok := s.ValueJSON["value"].(string); ok {
		return v
	}
	return ""
}

// StringSetting 构造标量字符串设置值
func StringSetting(v string) JSON {
	return JSON{"value": v}
}
