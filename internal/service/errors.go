package service

import "errors"

// 服务层业务错误
var (
	ErrStoreRequired       = errors.New("store not resolved")
	ErrAdminCodeRequired   = errors.New("admin code required")
	ErrGateLocked          = errors.New("finance gate locked")
	ErrGatePassphraseEmpty = errors.New("gate passphrase empty")
	ErrLedgerPeriodInvalid = errors.New("ledger period invalid")
)
