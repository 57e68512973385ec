// Package postgres implements the storage collaborator on pgx. Order
// mutations are expressed as single conditional statements so concurrent
// admins can never corrupt the history log.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/models"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderNumberPad = 3

const (
	KindNewOrder = "NEW_ORDER"
	KindNewCall  = "NEW_CALL"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var orderTypeCodes = map[string]string{
	models.TypeStore:    "S",
	models.TypeDelivery: "D",
	models.TypeReserve:  "R",
}

func (s *Store) CreateOrder(ctx context.Context, input store.CreateOrderInput) (models.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = ensureStoreExists(ctx, tx, input.StoreID); err != nil {
		return models.Order{}, err
	}

	seq, err := nextOrderNumber(ctx, tx, input.StoreID, input.Type)
	if err != nil {
		return models.Order{}, err
	}
	orderNo := fmt.Sprintf("%s-%0*d", orderTypeCodes[input.Type], orderNumberPad, seq)

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := store.InitialStatus(input.Type)

	meta := input.Meta
	meta.History = []models.HistoryEntry{{Status: status, At: createdAt}}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		OrderID:   uuid.NewString(),
		OrderNo:   orderNo,
		StoreID:   input.StoreID,
		Type:      input.Type,
		Status:    status,
		Amount:    input.Amount,
		Meta:      meta,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if input.TableNo != "" {
		tableNo := input.TableNo
		order.TableNo = &tableNo
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (order_id, order_no, store_id, type, status, table_no, amount, meta, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
	`, order.OrderID, order.OrderNo, order.StoreID, order.Type, order.Status, nullIfEmpty(input.TableNo), order.Amount, metaJSON, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			err = store.ErrDuplicate
		}
		return models.Order{}, err
	}

	if err = insertOutboxEvent(ctx, tx, KindNewOrder, order.OrderID, order.StoreID, order, createdAt); err != nil {
		return models.Order{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, storeID, orderID string) (models.Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT order_id, order_no, store_id, type, status, table_no, amount, meta, created_at, updated_at
		FROM orders
		WHERE order_id = $1 AND store_id = $2
	`, orderID, storeID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, store.ErrOrderNotFound
		}
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) ListOrders(ctx context.Context, storeID, orderType string, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT order_id, order_no, store_id, type, status, table_no, amount, meta, created_at, updated_at
		FROM orders
		WHERE store_id = $1
	`
	args := []interface{}{storeID}
	if orderType != "" {
		query += " AND type = $2 ORDER BY created_at DESC LIMIT $3"
		args = append(args, orderType, limit)
	} else {
		query += " ORDER BY created_at DESC LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus applies one state-machine transition. The guard set
// of source statuses is baked into the UPDATE so the transition check,
// the status write, and the history append are one atomic statement.
func (s *Store) UpdateOrderStatus(ctx context.Context, storeID, orderID, status string, at time.Time) (models.Order, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var orderType string
	row := tx.QueryRow(ctx, `SELECT type FROM orders WHERE order_id = $1 AND store_id = $2`, orderID, storeID)
	if err = row.Scan(&orderType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, store.ErrOrderNotFound
		}
		return models.Order{}, err
	}

	if !store.KnownStatus(orderType, status) {
		return models.Order{}, store.ErrInvalidState
	}
	allowedFrom := store.AllowedFrom(orderType, status)
	if len(allowedFrom) == 0 {
		return models.Order{}, store.ErrInvalidState
	}

	row = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $3,
			meta = jsonb_set(meta, '{history}',
				COALESCE(meta->'history', '[]'::jsonb) || jsonb_build_object('status', $3::text, 'at', to_jsonb($4::timestamptz))),
			updated_at = $4
		WHERE order_id = $1 AND store_id = $2 AND status = ANY($5)
		RETURNING order_id, order_no, store_id, type, status, table_no, amount, meta, created_at, updated_at
	`, orderID, storeID, status, at, allowedFrom)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrInvalidState
		}
		return models.Order{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// MergeOrderMeta shallow-merges patch keys over the stored meta. A key
// present with an empty value overwrites the stored one, so clients can
// clear a memo. The history key is stripped from the patch; history only
// grows through status transitions.
func (s *Store) MergeOrderMeta(ctx context.Context, storeID, orderID string, patch map[string]interface{}) (models.Order, error) {
	delete(patch, "history")
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return models.Order{}, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE orders
		SET meta = meta || $3::jsonb,
			updated_at = $4
		WHERE order_id = $1 AND store_id = $2
		RETURNING order_id, order_no, store_id, type, status, table_no, amount, meta, created_at, updated_at
	`, orderID, storeID, patchJSON, time.Now().UTC())
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, store.ErrOrderNotFound
		}
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) CreateCall(ctx context.Context, input store.CreateCallInput) (models.CallLog, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.CallLog{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = ensureStoreExists(ctx, tx, input.StoreID); err != nil {
		return models.CallLog{}, err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	call := models.CallLog{
		CallID:    uuid.NewString(),
		StoreID:   input.StoreID,
		TableNo:   input.TableNo,
		Message:   input.Message,
		Status:    models.CallPending,
		CreatedAt: createdAt,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO call_logs (call_id, store_id, table_no, message, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, call.CallID, call.StoreID, call.TableNo, call.Message, call.Status, call.CreatedAt)
	if err != nil {
		return models.CallLog{}, err
	}

	if err = insertOutboxEvent(ctx, tx, KindNewCall, call.CallID, call.StoreID, call, createdAt); err != nil {
		return models.CallLog{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.CallLog{}, err
	}
	return call, nil
}

func (s *Store) ListCalls(ctx context.Context, storeID, status string) ([]models.CallLog, error) {
	query := `
		SELECT call_id, store_id, table_no, message, status, created_at
		FROM call_logs
		WHERE store_id = $1
	`
	args := []interface{}{storeID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []models.CallLog
	for rows.Next() {
		var call models.CallLog
		if err := rows.Scan(&call.CallID, &call.StoreID, &call.TableNo, &call.Message, &call.Status, &call.CreatedAt); err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return calls, nil
}

func (s *Store) AcknowledgeCall(ctx context.Context, storeID, callID string) (models.CallLog, error) {
	var call models.CallLog
	row := s.pool.QueryRow(ctx, `
		UPDATE call_logs
		SET status = $3
		WHERE call_id = $1 AND store_id = $2 AND status = $4
		RETURNING call_id, store_id, table_no, message, status, created_at
	`, callID, storeID, models.CallAcknowledged, models.CallPending)
	err := row.Scan(&call.CallID, &call.StoreID, &call.TableNo, &call.Message, &call.Status, &call.CreatedAt)
	if err == nil {
		return call, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.CallLog{}, err
	}

	// Already acknowledged is idempotent; truly missing is not found.
	row = s.pool.QueryRow(ctx, `
		SELECT call_id, store_id, table_no, message, status, created_at
		FROM call_logs
		WHERE call_id = $1 AND store_id = $2
	`, callID, storeID)
	if err := row.Scan(&call.CallID, &call.StoreID, &call.TableNo, &call.Message, &call.Status, &call.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CallLog{}, store.ErrCallNotFound
		}
		return models.CallLog{}, err
	}
	return call, nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, after store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, store_id, kind, payload, created_at
		FROM outbox_events
		WHERE (created_at, event_id) > ($1, $2)
		ORDER BY created_at ASC, event_id ASC
		LIMIT $3
	`, after.LastEventTime, after.LastEventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.StoreID, &event.Kind, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetOffset(ctx context.Context) (store.OutboxOffset, error) {
	var offset store.OutboxOffset
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time, last_event_id
		FROM realtime_offsets
		WHERE id = 1
	`)
	if err := row.Scan(&offset.LastEventTime, &offset.LastEventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.OutboxOffset{}, nil
		}
		return store.OutboxOffset{}, err
	}
	return offset, nil
}

func (s *Store) UpdateOffset(ctx context.Context, offset store.OutboxOffset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO realtime_offsets (id, last_event_time, last_event_id)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET last_event_time = $1, last_event_id = $2
	`, offset.LastEventTime, offset.LastEventID)
	return err
}

func (s *Store) CleanupOutbox(ctx context.Context, before time.Time) error {
	if before.IsZero() {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM outbox_events WHERE created_at < $1`, before)
	return err
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, kind, entityID, storeID string, payload interface{}, at time.Time) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	// Deterministic event id: redelivery of the same entity is detectable
	// by subscribers.
	eventID := kind + ":" + entityID
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, store_id, kind, payload, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, eventID, storeID, kind, payloadJSON, at)
	return err
}

func nextOrderNumber(ctx context.Context, tx pgx.Tx, storeID, orderType string) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, `
		INSERT INTO order_sequences (store_id, type, next_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (store_id, type)
		DO UPDATE SET next_number = order_sequences.next_number + 1
		RETURNING next_number
	`, storeID, orderType)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func ensureStoreExists(ctx context.Context, tx pgx.Tx, storeID string) error {
	var found string
	row := tx.QueryRow(ctx, `SELECT store_id FROM stores WHERE store_id = $1`, storeID)
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrStoreNotFound
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var order models.Order
	var tableNoNull sql.NullString
	var metaJSON []byte
	if err := row.Scan(&order.OrderID, &order.OrderNo, &order.StoreID, &order.Type, &order.Status, &tableNoNull, &order.Amount, &metaJSON, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return models.Order{}, err
	}
	order.TableNo = nullStringPtr(tableNoNull)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &order.Meta); err != nil {
			return models.Order{}, err
		}
	}
	return order, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	text := value.String
	return &text
}
