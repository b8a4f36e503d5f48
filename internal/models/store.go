package models

// Store 门店
type Store struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StoreCode string    `json:"store_code"`
	AdminCode string    `json:"admin_code"`
	CreatedAt Timestamp `json:"created_at"`
}
