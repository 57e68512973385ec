package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/models"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/store"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) AuthenticateAdmin(ctx context.Context, adminID, password string) (models.Admin, error) {
	var admin models.Admin
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT admin_id, name, password_hash, created_at
		FROM admins
		WHERE admin_id = $1
	`, adminID)
	if err := row.Scan(&admin.AdminID, &admin.Name, &passwordHash, &admin.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Admin{}, store.ErrInvalidCredentials
		}
		return models.Admin{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return models.Admin{}, store.ErrInvalidCredentials
	}
	return admin, nil
}

func (s *Store) AuthenticateSuper(ctx context.Context, uid, password string) error {
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT password_hash
		FROM super_accounts
		WHERE uid = $1
	`, uid)
	if err := row.Scan(&passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrInvalidCredentials
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return store.ErrInvalidCredentials
	}
	return nil
}

// ResolveAdminStore returns the store an admin token should be bound to:
// the default mapping when one is flagged, otherwise the oldest.
func (s *Store) ResolveAdminStore(ctx context.Context, adminID string) (string, error) {
	var storeID string
	row := s.pool.QueryRow(ctx, `
		SELECT store_id
		FROM admin_store_mappings
		WHERE admin_id = $1
		ORDER BY is_default DESC, created_at ASC
		LIMIT 1
	`, adminID)
	if err := row.Scan(&storeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrMappingNotFound
		}
		return "", err
	}
	return storeID, nil
}

func (s *Store) CreateStore(ctx context.Context, input store.CreateStoreInput) (models.Store, error) {
	now := time.Now().UTC()
	tenant := models.Store{
		StoreID:   input.StoreID,
		Name:      input.Name,
		Code:      input.Code,
		QrLimit:   input.QrLimit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stores (store_id, name, code, qr_limit, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
	`, tenant.StoreID, tenant.Name, tenant.Code, tenant.QrLimit, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Store{}, store.ErrDuplicate
		}
		return models.Store{}, err
	}
	return tenant, nil
}

func (s *Store) GetStore(ctx context.Context, storeID string) (models.Store, error) {
	var tenant models.Store
	row := s.pool.QueryRow(ctx, `
		SELECT store_id, name, code, qr_limit, created_at, updated_at
		FROM stores
		WHERE store_id = $1
	`, storeID)
	if err := row.Scan(&tenant.StoreID, &tenant.Name, &tenant.Code, &tenant.QrLimit, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Store{}, store.ErrStoreNotFound
		}
		return models.Store{}, err
	}
	return tenant, nil
}

func (s *Store) ListStores(ctx context.Context) ([]models.Store, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT store_id, name, code, qr_limit, created_at, updated_at
		FROM stores
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []models.Store
	for rows.Next() {
		var tenant models.Store
		if err := rows.Scan(&tenant.StoreID, &tenant.Name, &tenant.Code, &tenant.QrLimit, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, err
		}
		stores = append(stores, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

func (s *Store) UpdateStore(ctx context.Context, storeID string, input store.UpdateStoreInput) (models.Store, error) {
	var tenant models.Store
	row := s.pool.QueryRow(ctx, `
		UPDATE stores
		SET name = $2, code = $3, qr_limit = $4, updated_at = $5
		WHERE store_id = $1
		RETURNING store_id, name, code, qr_limit, created_at, updated_at
	`, storeID, input.Name, input.Code, input.QrLimit, time.Now().UTC())
	if err := row.Scan(&tenant.StoreID, &tenant.Name, &tenant.Code, &tenant.QrLimit, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Store{}, store.ErrStoreNotFound
		}
		return models.Store{}, err
	}
	return tenant, nil
}

func (s *Store) DeleteStore(ctx context.Context, storeID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stores WHERE store_id = $1`, storeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrStoreNotFound
	}
	return nil
}

func (s *Store) CreateAdmin(ctx context.Context, input store.CreateAdminInput) (models.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Admin{}, err
	}
	admin := models.Admin{
		AdminID:   input.AdminID,
		Name:      input.Name,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO admins (admin_id, name, password_hash, created_at)
		VALUES ($1,$2,$3,$4)
	`, admin.AdminID, admin.Name, string(hash), admin.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Admin{}, store.ErrDuplicate
		}
		return models.Admin{}, err
	}
	return admin, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT admin_id, name, created_at
		FROM admins
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		var admin models.Admin
		if err := rows.Scan(&admin.AdminID, &admin.Name, &admin.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return admins, nil
}

// DeleteAdmin refuses while any store mapping remains; mappings must be
// removed first so access revocation stays an explicit step.
func (s *Store) DeleteAdmin(ctx context.Context, adminID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var mapped bool
	row := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM admin_store_mappings WHERE admin_id = $1)
	`, adminID)
	if err = row.Scan(&mapped); err != nil {
		return err
	}
	if mapped {
		err = store.ErrMappingExists
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM admins WHERE admin_id = $1`, adminID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = store.ErrAdminNotFound
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateMapping(ctx context.Context, input store.CreateMappingInput) (models.AdminStoreMapping, error) {
	mapping := models.AdminStoreMapping{
		AdminID:   input.AdminID,
		StoreID:   input.StoreID,
		IsDefault: input.IsDefault,
		Note:      input.Note,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_store_mappings (admin_id, store_id, is_default, note, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, mapping.AdminID, mapping.StoreID, mapping.IsDefault, mapping.Note, mapping.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.AdminStoreMapping{}, store.ErrDuplicate
		}
		return models.AdminStoreMapping{}, err
	}
	return mapping, nil
}

func (s *Store) ListMappings(ctx context.Context, adminID string) ([]models.AdminStoreMapping, error) {
	query := `
		SELECT admin_id, store_id, is_default, note, created_at
		FROM admin_store_mappings
	`
	args := []interface{}{}
	if adminID != "" {
		query += " WHERE admin_id = $1"
		args = append(args, adminID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []models.AdminStoreMapping
	for rows.Next() {
		var mapping models.AdminStoreMapping
		if err := rows.Scan(&mapping.AdminID, &mapping.StoreID, &mapping.IsDefault, &mapping.Note, &mapping.CreatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mappings, nil
}

func (s *Store) DeleteMapping(ctx context.Context, adminID, storeID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM admin_store_mappings
		WHERE admin_id = $1 AND store_id = $2
	`, adminID, storeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrMappingNotFound
	}
	return nil
}
