package models

import "time"

type Store struct {
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	QrLimit   int       `json:"qr_limit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Admin struct {
	AdminID   string    `json:"admin_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type AdminStoreMapping struct {
	AdminID   string    `json:"admin_id"`
	StoreID   string    `json:"store_id"`
	IsDefault bool      `json:"is_default"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Menu struct {
	MenuID    string    `json:"menu_id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Category  string    `json:"category,omitempty"`
	SoldOut   bool      `json:"sold_out"`
	CreatedAt time.Time `json:"created_at"`
}

type QrCode struct {
	QrID      string    `json:"qr_id"`
	StoreID   string    `json:"store_id"`
	TableNo   string    `json:"table_no"`
	CreatedAt time.Time `json:"created_at"`
}

// StoreSettings is a singleton row per store, written with upsert
// semantics.
type StoreSettings struct {
	StoreID       string    `json:"store_id"`
	AlarmEnabled  bool      `json:"alarm_enabled"`
	OpenHours     string    `json:"open_hours,omitempty"`
	NoticeText    string    `json:"notice_text,omitempty"`
	PrivacyPolicy string    `json:"privacy_policy,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type PaymentCode struct {
	StoreID   string    `json:"store_id"`
	Code      string    `json:"code"`
	UpdatedAt time.Time `json:"updated_at"`
}
