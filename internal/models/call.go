package models

import "time"

const (
	CallPending      = "pending"
	CallAcknowledged = "acknowledged"
)

type CallLog struct {
	CallID    string    `json:"call_id"`
	StoreID   string    `json:"store_id"`
	TableNo   string    `json:"table_no"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
