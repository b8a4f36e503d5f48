package models

import "net/url"

// SubscriptionKind 订阅键类型
type SubscriptionKind string

// 订阅键类型常量
const (
	SubscriptionStore SubscriptionKind = "store"
	SubscriptionAdmin SubscriptionKind = "admin"
)

// SubscriptionKey 实时订阅键：门店 ID 或管理码二选一。
// 所有快照请求与实时链路都携带同一个键。
type SubscriptionKey struct {
	Kind  SubscriptionKind
	Value string
}

// StoreKey 按门店 ID 订阅
func StoreKey(id string) SubscriptionKey {
	return SubscriptionKey{Kind: SubscriptionStore, Value: id}
}

// AdminKey 按管理码订阅
func AdminKey(code string) SubscriptionKey {
	return SubscriptionKey{Kind: SubscriptionAdmin, Value: code}
}

// IsZero 是否为空键
func (k SubscriptionKey) IsZero() bool {
	return k.Value == ""
}

// Matches 判断事件所属门店是否属于本订阅。
// 空门店 ID 恒匹配；管理码订阅在会话学到门店 ID 前无从比对，视为匹配。
func (k SubscriptionKey) Matches(storeID string) bool {
	if storeID == "" {
		return true
	}
	if k.Kind == SubscriptionStore && k.Value != "" {
		return storeID == k.Value
	}
	return true
}

// Query 生成请求查询参数（store_id= 或 admin_code=）
func (k SubscriptionKey) Query() url.Values {
	values := url.Values{}
	if k.Value == "" {
		return values
	}
	switch k.Kind {
	case SubscriptionAdmin:
		values.Set("admin_code", k.Value)
	default:
		values.Set("store_id", k.Value)
	}
	return values
}
