package postgres

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/models"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateMenu(ctx context.Context, storeID string, input store.MenuInput) (models.Menu, error) {
	menu := models.Menu{
		MenuID:    uuid.NewString(),
		StoreID:   storeID,
		Name:      input.Name,
		Price:     input.Price,
		Category:  input.Category,
		SoldOut:   input.SoldOut,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO menus (menu_id, store_id, name, price, category, sold_out, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, menu.MenuID, menu.StoreID, menu.Name, menu.Price, menu.Category, menu.SoldOut, menu.CreatedAt)
	if err != nil {
		return models.Menu{}, err
	}
	return menu, nil
}

func (s *Store) ListMenus(ctx context.Context, storeID string) ([]models.Menu, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT menu_id, store_id, name, price, category, sold_out, created_at
		FROM menus
		WHERE store_id = $1
		ORDER BY category ASC, name ASC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menus []models.Menu
	for rows.Next() {
		var menu models.Menu
		if err := rows.Scan(&menu.MenuID, &menu.StoreID, &menu.Name, &menu.Price, &menu.Category, &menu.SoldOut, &menu.CreatedAt); err != nil {
			return nil, err
		}
		menus = append(menus, menu)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return menus, nil
}

func (s *Store) UpdateMenu(ctx context.Context, storeID, menuID string, input store.MenuInput) (models.Menu, error) {
	var menu models.Menu
	row := s.pool.QueryRow(ctx, `
		UPDATE menus
		SET name = $3, price = $4, category = $5, sold_out = $6
		WHERE menu_id = $1 AND store_id = $2
		RETURNING menu_id, store_id, name, price, category, sold_out, created_at
	`, menuID, storeID, input.Name, input.Price, input.Category, input.SoldOut)
	if err := row.Scan(&menu.MenuID, &menu.StoreID, &menu.Name, &menu.Price, &menu.Category, &menu.SoldOut, &menu.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Menu{}, store.ErrMenuNotFound
		}
		return models.Menu{}, err
	}
	return menu, nil
}

func (s *Store) DeleteMenu(ctx context.Context, storeID, menuID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM menus
		WHERE menu_id = $1 AND store_id = $2
	`, menuID, storeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrMenuNotFound
	}
	return nil
}

func (s *Store) ListQrCodes(ctx context.Context, storeID string) ([]models.QrCode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT qr_id, store_id, table_no, created_at
		FROM qr_codes
		WHERE store_id = $1
		ORDER BY created_at ASC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []models.QrCode
	for rows.Next() {
		var code models.QrCode
		if err := rows.Scan(&code.QrID, &code.StoreID, &code.TableNo, &code.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// CreateQrCode counts inside the tx so concurrent creates cannot blow
// past the store's qr_limit.
func (s *Store) CreateQrCode(ctx context.Context, storeID, tableNo string) (models.QrCode, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QrCode{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var limit int
	row := tx.QueryRow(ctx, `SELECT qr_limit FROM stores WHERE store_id = $1 FOR UPDATE`, storeID)
	if err = row.Scan(&limit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrStoreNotFound
		}
		return models.QrCode{}, err
	}

	var count int
	row = tx.QueryRow(ctx, `SELECT COUNT(1) FROM qr_codes WHERE store_id = $1`, storeID)
	if err = row.Scan(&count); err != nil {
		return models.QrCode{}, err
	}
	if limit > 0 && count >= limit {
		err = store.ErrQrLimitReached
		return models.QrCode{}, err
	}

	code := models.QrCode{
		QrID:      uuid.NewString(),
		StoreID:   storeID,
		TableNo:   tableNo,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO qr_codes (qr_id, store_id, table_no, created_at)
		VALUES ($1,$2,$3,$4)
	`, code.QrID, code.StoreID, code.TableNo, code.CreatedAt)
	if err != nil {
		return models.QrCode{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.QrCode{}, err
	}
	return code, nil
}

func (s *Store) GetSettings(ctx context.Context, storeID string) (models.StoreSettings, error) {
	var settings models.StoreSettings
	row := s.pool.QueryRow(ctx, `
		SELECT store_id, alarm_enabled, open_hours, notice_text, privacy_policy, updated_at
		FROM store_settings
		WHERE store_id = $1
	`, storeID)
	if err := row.Scan(&settings.StoreID, &settings.AlarmEnabled, &settings.OpenHours, &settings.NoticeText, &settings.PrivacyPolicy, &settings.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StoreSettings{}, store.ErrSettingsNotFound
		}
		return models.StoreSettings{}, err
	}
	return settings, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings models.StoreSettings) (models.StoreSettings, error) {
	settings.UpdatedAt = time.Now().UTC()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO store_settings (store_id, alarm_enabled, open_hours, notice_text, privacy_policy, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (store_id) DO UPDATE
		SET alarm_enabled = $2, open_hours = $3, notice_text = $4, privacy_policy = $5, updated_at = $6
		RETURNING store_id, alarm_enabled, open_hours, notice_text, privacy_policy, updated_at
	`, settings.StoreID, settings.AlarmEnabled, settings.OpenHours, settings.NoticeText, settings.PrivacyPolicy, settings.UpdatedAt)
	var saved models.StoreSettings
	if err := row.Scan(&saved.StoreID, &saved.AlarmEnabled, &saved.OpenHours, &saved.NoticeText, &saved.PrivacyPolicy, &saved.UpdatedAt); err != nil {
		return models.StoreSettings{}, err
	}
	return saved, nil
}

func (s *Store) GetPaymentCode(ctx context.Context, storeID string) (models.PaymentCode, error) {
	var code models.PaymentCode
	row := s.pool.QueryRow(ctx, `
		SELECT store_id, code, updated_at
		FROM payment_codes
		WHERE store_id = $1
	`, storeID)
	if err := row.Scan(&code.StoreID, &code.Code, &code.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PaymentCode{}, store.ErrSettingsNotFound
		}
		return models.PaymentCode{}, err
	}
	return code, nil
}

func (s *Store) RotatePaymentCode(ctx context.Context, storeID string) (models.PaymentCode, error) {
	generated, err := randomDigits(8)
	if err != nil {
		return models.PaymentCode{}, err
	}
	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO payment_codes (store_id, code, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (store_id) DO UPDATE SET code = $2, updated_at = $3
		RETURNING store_id, code, updated_at
	`, storeID, generated, now)
	var code models.PaymentCode
	if err := row.Scan(&code.StoreID, &code.Code, &code.UpdatedAt); err != nil {
		return models.PaymentCode{}, err
	}
	return code, nil
}

func randomDigits(n int) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	value := binary.BigEndian.Uint64(buf[:])
	modulus := uint64(1)
	for i := 0; i < n; i++ {
		modulus *= 10
	}
	return fmt.Sprintf("%0*d", n, value%modulus), nil
}
