package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/models"
)

type CreateOrderInput struct {
	StoreID   string
	Type      string
	TableNo   string
	Amount    int64
	Meta      models.OrderMeta
	CreatedAt time.Time
}

type CreateCallInput struct {
	StoreID   string
	TableNo   string
	Message   string
	CreatedAt time.Time
}

type CreateStoreInput struct {
	StoreID string
	Name    string
	Code    string
	QrLimit int
}

type UpdateStoreInput struct {
	Name    string
	Code    string
	QrLimit int
}

type CreateAdminInput struct {
	AdminID  string
	Password string
	Name     string
}

type CreateMappingInput struct {
	AdminID   string
	StoreID   string
	IsDefault bool
	Note      string
}

type MenuInput struct {
	Name     string
	Price    int64
	Category string
	SoldOut  bool
}

// OutboxEvent is a persisted notification waiting to be fanned out; the
// realtime poller drains these in created_at order.
type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	StoreID   string          `json:"store_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type OutboxOffset struct {
	LastEventTime time.Time
	LastEventID   string
}

// Store is the storage collaborator behind the HTTP surface. One
// implementation backed by postgres; handler tests use hand-written
// fakes.
type Store interface {
	// Auth and tenancy.
	AuthenticateAdmin(ctx context.Context, adminID, password string) (models.Admin, error)
	AuthenticateSuper(ctx context.Context, uid, password string) error
	ResolveAdminStore(ctx context.Context, adminID string) (string, error)

	// Super console.
	CreateStore(ctx context.Context, input CreateStoreInput) (models.Store, error)
	GetStore(ctx context.Context, storeID string) (models.Store, error)
	ListStores(ctx context.Context) ([]models.Store, error)
	UpdateStore(ctx context.Context, storeID string, input UpdateStoreInput) (models.Store, error)
	DeleteStore(ctx context.Context, storeID string) error
	CreateAdmin(ctx context.Context, input CreateAdminInput) (models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	DeleteAdmin(ctx context.Context, adminID string) error
	CreateMapping(ctx context.Context, input CreateMappingInput) (models.AdminStoreMapping, error)
	ListMappings(ctx context.Context, adminID string) ([]models.AdminStoreMapping, error)
	DeleteMapping(ctx context.Context, adminID, storeID string) error

	// Order lifecycle.
	CreateOrder(ctx context.Context, input CreateOrderInput) (models.Order, error)
	GetOrder(ctx context.Context, storeID, orderID string) (models.Order, error)
	ListOrders(ctx context.Context, storeID, orderType string, limit int) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, storeID, orderID, status string, at time.Time) (models.Order, error)
	MergeOrderMeta(ctx context.Context, storeID, orderID string, patch map[string]interface{}) (models.Order, error)

	// Staff calls.
	CreateCall(ctx context.Context, input CreateCallInput) (models.CallLog, error)
	ListCalls(ctx context.Context, storeID, status string) ([]models.CallLog, error)
	AcknowledgeCall(ctx context.Context, storeID, callID string) (models.CallLog, error)

	// Store console persistence.
	CreateMenu(ctx context.Context, storeID string, input MenuInput) (models.Menu, error)
	ListMenus(ctx context.Context, storeID string) ([]models.Menu, error)
	UpdateMenu(ctx context.Context, storeID, menuID string, input MenuInput) (models.Menu, error)
	DeleteMenu(ctx context.Context, storeID, menuID string) error
	ListQrCodes(ctx context.Context, storeID string) ([]models.QrCode, error)
	CreateQrCode(ctx context.Context, storeID, tableNo string) (models.QrCode, error)
	GetSettings(ctx context.Context, storeID string) (models.StoreSettings, error)
	UpsertSettings(ctx context.Context, settings models.StoreSettings) (models.StoreSettings, error)
	GetPaymentCode(ctx context.Context, storeID string) (models.PaymentCode, error)
	RotatePaymentCode(ctx context.Context, storeID string) (models.PaymentCode, error)

	// Notification outbox.
	ListOutboxEvents(ctx context.Context, after OutboxOffset, limit int) ([]OutboxEvent, error)
	GetOffset(ctx context.Context) (OutboxOffset, error)
	UpdateOffset(ctx context.Context, offset OutboxOffset) error
	CleanupOutbox(ctx context.Context, before time.Time) error
}
