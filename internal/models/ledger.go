package models

// LedgerSummaryRow 账本汇总行（按 daily/weekly/monthly 归桶）
type LedgerSummaryRow struct {
	Bucket       string `json:"bucket"`
	Orders       int    `json:"orders"`
	DeliveryFees Money  `json:"delivery_fees"`
	Payouts      Money  `json:"payouts"`
}

// DriverLedgerRow 骑手维度账本行
type DriverLedgerRow struct {
	DriverID   string `json:"driver_id"`
	DriverName string `json:"driver_name"`
	Orders     int    `json:"orders"`
	Total      Money  `json:"total"`
}
