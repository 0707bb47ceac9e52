// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jcodagnone/storelocator/spatial"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at databaseURL and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &postgresRepository{pool: pool}, nil
}

func (r *postgresRepository) Close() error {
	r.pool.Close()

	return nil
}

func (r *postgresRepository) CreateSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS businesses (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			user_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS stores (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
			store_name TEXT NOT NULL,
			brand TEXT NOT NULL,
			address TEXT NOT NULL,
			city TEXT NOT NULL,
			province TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			services TEXT[] NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			h3_coarse BIGINT,
			h3_fine BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS stores_business_idx ON stores (business_id);
		CREATE INDEX IF NOT EXISTS stores_h3_fine_idx ON stores (h3_fine);
		CREATE INDEX IF NOT EXISTS stores_h3_coarse_idx ON stores (h3_coarse);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

func (r *postgresRepository) InsertStores(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	if err := ValidateRecords(records); err != nil {
		return err
	}

	rows := make([][]any, 0, len(records))

	for _, rec := range prepareRecords(records, time.Now().UTC()) {
		coarse, fine, err := cellsOf(rec)
		if err != nil {
			return err
		}

		id, err := uuid.Parse(rec.ID)
		if err != nil {
			return fmt.Errorf("invalid store id %q: %w", rec.ID, err)
		}

		businessID, err := uuid.Parse(rec.BusinessID)
		if err != nil {
			return fmt.Errorf("invalid business id %q: %w", rec.BusinessID, err)
		}

		rows = append(rows, []any{
			id, businessID, rec.StoreName, rec.Brand, rec.Address, rec.City, rec.Province,
			rec.Latitude, rec.Longitude, rec.Services, rec.Active, coarse, fine, rec.CreatedAt,
		})
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"stores"},
		[]string{
			"id", "business_id", "store_name", "brand", "address", "city", "province",
			"latitude", "longitude", "services", "active", "h3_coarse", "h3_fine", "created_at",
		},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copying stores: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing stores: %w", err)
	}

	return nil
}

func (r *postgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer rows.Close()

	var records []*Record

	for rows.Next() {
		var (
			rec      Record
			province *string
		)

		if err := rows.Scan(
			&rec.ID, &rec.BusinessID, &rec.StoreName, &rec.Brand, &rec.Address, &rec.City, &province,
			&rec.Latitude, &rec.Longitude, &rec.Services, &rec.Active, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning store: %w", err)
		}

		if province != nil {
			rec.Province = *province
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// id columns are UUID; cast them so they scan into strings.
const pgStoreColumns = `id::text, business_id::text, store_name, brand, address, city, province,
	latitude, longitude, services, active, created_at`

func (r *postgresRepository) ListStores(ctx context.Context, businessID string) ([]*Record, error) {
	if _, err := uuid.Parse(businessID); err != nil {
		return nil, nil
	}

	return r.queryRecords(ctx,
		`SELECT `+pgStoreColumns+` FROM stores WHERE business_id = $1 ORDER BY brand, store_name, id`,
		businessID)
}

func (r *postgresRepository) SearchBrand(ctx context.Context, query string) ([]*Record, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"

	return r.queryRecords(ctx, `
		SELECT `+pgStoreColumns+`
		FROM stores
		WHERE active AND (brand ILIKE $1 OR store_name ILIKE $1)
		ORDER BY brand, city, store_name, id`,
		pattern)
}

func (r *postgresRepository) SearchNearby(
	ctx context.Context,
	center spatial.Point,
	radiusKm float64,
	brand string,
) ([]Match, error) {
	cover, ok, err := spatial.CoverRadius(center, radiusKm)
	if err != nil {
		return nil, err
	}

	where := []string{"active", "latitude IS NOT NULL", "longitude IS NOT NULL"}

	var args []any

	if brand = strings.TrimSpace(brand); brand != "" {
		args = append(args, "%"+brand+"%")
		where = append(where, fmt.Sprintf("brand ILIKE $%d", len(args)))
	}

	if ok {
		column := "h3_fine"
		if cover.Resolution == spatial.CoarseResolution {
			column = "h3_coarse"
		}

		args = append(args, cover.Cells)
		where = append(where, fmt.Sprintf("%s = ANY($%d)", column, len(args)))
	}

	candidates, err := r.queryRecords(ctx,
		`SELECT `+pgStoreColumns+` FROM stores WHERE `+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, err
	}

	return located(candidates, center, radiusKm), nil
}

func (r *postgresRepository) DeleteStore(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting store: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) CreateBusiness(ctx context.Context, b *Business) error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("invalid business: %w", err)
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	b.Email = normalizeEmail(b.Email)
	b.CreatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO businesses (id, name, email, user_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.Name, nullable(b.Email), nullable(b.UserID), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting business: %w", err)
	}

	return nil
}

func (r *postgresRepository) findBusiness(ctx context.Context, where string, arg any) (*Business, error) {
	var (
		b             Business
		email, userID *string
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id::text, name, email, user_id::text, created_at FROM businesses WHERE `+where+` ORDER BY created_at, id LIMIT 1`,
		arg,
	).Scan(&b.ID, &b.Name, &email, &userID, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("querying business: %w", err)
	}

	if email != nil {
		b.Email = *email
	}

	if userID != nil {
		b.UserID = *userID
	}

	return &b, nil
}

func (r *postgresRepository) GetBusiness(ctx context.Context, id string) (*Business, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	return r.findBusiness(ctx, "id = $1", id)
}

func (r *postgresRepository) FindBusinessByUserID(ctx context.Context, userID string) (*Business, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotFound
	}

	return r.findBusiness(ctx, "user_id = $1", userID)
}

func (r *postgresRepository) FindBusinessByEmail(ctx context.Context, email string) (*Business, error) {
	return r.findBusiness(ctx, "lower(email) = $1", normalizeEmail(email))
}

func (r *postgresRepository) LinkBusinessUser(ctx context.Context, businessID, userID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE businesses SET user_id = $1 WHERE id = $2`, userID, businessID)
	if err != nil {
		return fmt.Errorf("linking business: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) CreateUser(ctx context.Context, u *User) error {
	u.Email = normalizeEmail(u.Email)

	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	u.CreatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func (r *postgresRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User

	err := r.pool.QueryRow(ctx,
		`SELECT id::text, email, password_hash, created_at FROM users WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}
