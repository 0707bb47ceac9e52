// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/google/uuid"
	"github.com/jcodagnone/storelocator/spatial"
)

const storeColumns = `id, business_id, store_name, brand, address, city, province,
	latitude, longitude, services, active, created_at`

type duckDBRepository struct {
	db *sql.DB
}

// OpenDuckDB opens (or creates) a DuckDB database at path. An empty path
// opens an in-memory database.
func OpenDuckDB(path string) (Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return NewDuckDBRepository(db), nil
}

// NewDuckDBRepository wraps an open duckdb connection.
func NewDuckDBRepository(db *sql.DB) Repository {
	return &duckDBRepository{db: db}
}

func (r *duckDBRepository) Close() error {
	return r.db.Close()
}

func (r *duckDBRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			email VARCHAR NOT NULL UNIQUE,
			password_hash VARCHAR NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS businesses (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			email VARCHAR,
			user_id VARCHAR,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS stores (
			id VARCHAR PRIMARY KEY,
			business_id VARCHAR NOT NULL REFERENCES businesses(id),
			store_name VARCHAR NOT NULL,
			brand VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			city VARCHAR NOT NULL,
			province VARCHAR,
			latitude DOUBLE,
			longitude DOUBLE,
			services VARCHAR[],
			active BOOLEAN DEFAULT TRUE,
			h3_coarse BIGINT,
			h3_fine BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

func (r *duckDBRepository) InsertStores(ctx context.Context, records []*Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	if err := ValidateRecords(records); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) {
				err = errors.Join(err, rErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stores (
			id, business_id, store_name, brand, address, city, province,
			latitude, longitude, services, active, h3_coarse, h3_fine, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()

	for _, rec := range prepareRecords(records, now) {
		coarse, fine, err := cellsOf(rec)
		if err != nil {
			return err
		}

		if _, err = stmt.ExecContext(ctx,
			rec.ID,
			rec.BusinessID,
			rec.StoreName,
			rec.Brand,
			rec.Address,
			rec.City,
			rec.Province,
			rec.Latitude,
			rec.Longitude,
			rec.Services,
			rec.Active,
			coarse,
			fine,
			rec.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting store %q: %w", rec.StoreName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing stores: %w", err)
	}

	return nil
}

// prepareRecords assigns missing ids and timestamps in place.
func prepareRecords(records []*Record, now time.Time) []*Record {
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}

		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		if rec.Services == nil {
			rec.Services = []string{}
		}
	}

	return records
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDuckDBRecord(row rowScanner) (*Record, error) {
	var (
		rec      Record
		province sql.NullString
		lat, lng sql.NullFloat64
		services any
	)

	if err := row.Scan(
		&rec.ID, &rec.BusinessID, &rec.StoreName, &rec.Brand, &rec.Address, &rec.City, &province,
		&lat, &lng, &services, &rec.Active, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	rec.Province = province.String

	if lat.Valid && lng.Valid {
		rec.Latitude, rec.Longitude = &lat.Float64, &lng.Float64
	}

	list, ok := anyToStringSlice(services)
	if !ok {
		return nil, fmt.Errorf("failed to convert services to []string for store: %s", rec.ID)
	}

	rec.Services = list

	return &rec, nil
}

func (r *duckDBRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer rows.Close()

	var records []*Record

	for rows.Next() {
		rec, err := scanDuckDBRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning store: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *duckDBRepository) ListStores(ctx context.Context, businessID string) ([]*Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE business_id = ? ORDER BY brand, store_name, id`,
		businessID)
}

func (r *duckDBRepository) SearchBrand(ctx context.Context, query string) ([]*Record, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	return r.queryRecords(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE active AND (lower(brand) LIKE ? OR lower(store_name) LIKE ?)
		ORDER BY brand, city, store_name, id`,
		pattern, pattern)
}

func (r *duckDBRepository) SearchNearby(
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
		where = append(where, "lower(brand) LIKE ?")
		args = append(args, "%"+strings.ToLower(brand)+"%")
	}

	if ok {
		column := "h3_fine"
		if cover.Resolution == spatial.CoarseResolution {
			column = "h3_coarse"
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cover.Cells)), ", ")
		where = append(where, fmt.Sprintf("%s IN (%s)", column, placeholders))

		for _, c := range cover.Cells {
			args = append(args, c)
		}
	}

	candidates, err := r.queryRecords(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE `+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, err
	}

	return located(candidates, center, radiusKm), nil
}

func (r *duckDBRepository) DeleteStore(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting store: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting store: %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *duckDBRepository) CreateBusiness(ctx context.Context, b *Business) error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("invalid business: %w", err)
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	b.Email = normalizeEmail(b.Email)
	b.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO businesses (id, name, email, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Name, nullable(b.Email), nullable(b.UserID), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting business: %w", err)
	}

	return nil
}

func (r *duckDBRepository) findBusiness(ctx context.Context, where string, arg any) (*Business, error) {
	var (
		b             Business
		email, userID sql.NullString
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, user_id, created_at FROM businesses WHERE `+where+` ORDER BY created_at, id LIMIT 1`,
		arg,
	).Scan(&b.ID, &b.Name, &email, &userID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("querying business: %w", err)
	}

	b.Email, b.UserID = email.String, userID.String

	return &b, nil
}

func (r *duckDBRepository) GetBusiness(ctx context.Context, id string) (*Business, error) {
	return r.findBusiness(ctx, "id = ?", id)
}

func (r *duckDBRepository) FindBusinessByUserID(ctx context.Context, userID string) (*Business, error) {
	return r.findBusiness(ctx, "user_id = ?", userID)
}

func (r *duckDBRepository) FindBusinessByEmail(ctx context.Context, email string) (*Business, error) {
	return r.findBusiness(ctx, "lower(email) = ?", normalizeEmail(email))
}

func (r *duckDBRepository) LinkBusinessUser(ctx context.Context, businessID, userID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE businesses SET user_id = ? WHERE id = ?`, userID, businessID)
	if err != nil {
		return fmt.Errorf("linking business: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *duckDBRepository) CreateUser(ctx context.Context, u *User) error {
	u.Email = normalizeEmail(u.Email)

	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	u.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func (r *duckDBRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		normalizeEmail(email),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
