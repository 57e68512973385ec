package models

import "time"

const (
	TypeStore    = "store"
	TypeDelivery = "delivery"
	TypeReserve  = "reserve"
)

// Order statuses keep the Korean display strings used by the store
// consoles; they are stored and compared verbatim.
const (
	StatusUnpaid           = "입금 미확인"
	StatusReceived         = "주문접수"
	StatusPreparing        = "준비중"
	StatusDone             = "주문완료"
	StatusCancelled        = "주문취소"
	StatusPaymentCancelled = "결제취소"
)

type HistoryEntry struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type CartItem struct {
	MenuID   string `json:"menu_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type CustomerInfo struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderMeta carries the per-type order details. Items apply to store and
// delivery orders, Customer to delivery, ReserveDate/ReserveTime to
// reservations. History is append-only and only ever written through
// status transitions.
type OrderMeta struct {
	Items       []CartItem     `json:"items,omitempty"`
	Customer    *CustomerInfo  `json:"customer,omitempty"`
	ReserveDate string         `json:"reserve_date,omitempty"`
	ReserveTime string         `json:"reserve_time,omitempty"`
	Memo        string         `json:"memo,omitempty"`
	History     []HistoryEntry `json:"history,omitempty"`
}

type Order struct {
	OrderID   string    `json:"order_id"`
	OrderNo   string    `json:"order_no"`
	StoreID   string    `json:"store_id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	TableNo   *string   `json:"table_no,omitempty"`
	Amount    int64     `json:"amount"`
	Meta      OrderMeta `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
