package models

// Driver 骑手
type Driver struct {
	ID            string `json:"id"`
	StoreID       string `json:"store_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Status        string `json:"status"`    // online / offline / busy
	IsActive      int    `json:"is_active"` // 线上协议使用 0/1
	DriverCode    string `json:"driver_code"`
	SecretCode    string `json:"secret_code"` // 旧版后端字段
	WalletBalance *Money `json:"wallet_balance"`
}

// Code 返回骑手登录码，旧版后端只下发 secret_code
func (d Driver) Code() string {
	if d.DriverCode != "" {
		return d.DriverCode
	}
	return d.SecretCode
}

// Active 是否启用
func (d Driver) Active() bool {
	return d.IsActive != 0
}
