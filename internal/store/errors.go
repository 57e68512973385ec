package store

import "errors"

var (
	ErrStoreNotFound      = errors.New("store not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCallNotFound       = errors.New("call not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrMenuNotFound       = errors.New("menu not found")
	ErrSettingsNotFound   = errors.New("settings not found")
	ErrInvalidState       = errors.New("invalid order state")
	ErrDuplicate          = errors.New("duplicate resource")
	ErrMappingExists      = errors.New("admin still mapped to a store")
	ErrMappingNotFound    = errors.New("mapping not found")
	ErrQrLimitReached     = errors.New("qr code limit reached")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
