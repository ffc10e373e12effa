package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
)

// TxRunner is satisfied by the postgres and sqlite clients.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Dialect covers the SQL differences between the supported databases.
type Dialect struct {
	Name        string
	placeholder func(n int) string
}

var (
	Postgres = Dialect{Name: "postgres", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
	SQLite   = Dialect{Name: "sqlite", placeholder: func(int) string { return "?" }}
)

// Placeholder renders the n-th bind parameter, counting from 1.
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

func (d Dialect) args(first, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.placeholder(first + i)
	}
	return strings.Join(parts, ", ")
}

const metaKey = "restaurants"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		seq         INTEGER NOT NULL,
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		type        TEXT NOT NULL,
		image       TEXT NOT NULL,
		location    TEXT NOT NULL,
		rating      DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL,
		price_range TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_meta (
		name  TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// SQLBackend stores the collection in the restaurants table. A marker row
// in catalog_meta distinguishes an empty catalog from one never saved.
type SQLBackend struct {
	db      TxRunner
	dialect Dialect
}

// NewSQLBackend creates the tables if needed.
func NewSQLBackend(ctx context.Context, db TxRunner, dialect Dialect) (*SQLBackend, error) {
	err := db.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("migrating %s schema: %w", dialect.Name, err)
	}
	return &SQLBackend{db: db, dialect: dialect}, nil
}

func (b *SQLBackend) Name() string { return b.dialect.Name }

func (b *SQLBackend) Load(ctx context.Context) ([]restaurant.Restaurant, error) {
	var records []restaurant.Restaurant
	err := b.db.InTx(ctx, func(tx *sql.Tx) error {
		var marker string
		err := tx.QueryRowContext(ctx,
			"SELECT value FROM catalog_meta WHERE name = "+b.dialect.placeholder(1), metaKey,
		).Scan(&marker)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoData
		}
		if err != nil {
			return fmt.Errorf("reading catalog marker: %w", err)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id, name, type, image, location, rating, description, price_range
			 FROM restaurants ORDER BY seq`)
		if err != nil {
			return fmt.Errorf("querying restaurants: %w", err)
		}
		defer rows.Close()

		records = make([]restaurant.Restaurant, 0)
		for rows.Next() {
			var r restaurant.Restaurant
			if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.Image, &r.Location,
				&r.Rating, &r.Description, &r.PriceRange); err != nil {
				return fmt.Errorf("%w: scanning restaurant row: %v", ErrCorrupt, err)
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Save deletes every row and inserts the collection in order, inside one
// transaction.
func (b *SQLBackend) Save(ctx context.Context, records []restaurant.Restaurant) error {
	insert := fmt.Sprintf(
		`INSERT INTO restaurants (seq, id, name, type, image, location, rating, description, price_range)
		 VALUES (%s)`, b.dialect.args(1, 9))
	upsertMarker := fmt.Sprintf(
		`INSERT INTO catalog_meta (name, value) VALUES (%s)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value`, b.dialect.args(1, 2))

	return b.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM restaurants"); err != nil {
			return fmt.Errorf("clearing restaurants: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for seq, r := range records {
			if _, err := stmt.ExecContext(ctx, seq, r.ID, r.Name, r.Type, r.Image,
				r.Location, r.Rating, r.Description, r.PriceRange); err != nil {
				return fmt.Errorf("inserting restaurant %d: %w", r.ID, err)
			}
		}
		if _, err := tx.ExecContext(ctx, upsertMarker, metaKey, strconv.Itoa(len(records))); err != nil {
			return fmt.Errorf("writing catalog marker: %w", err)
		}
		return nil
	})
}

// Close is a no-op; the database client is owned by the caller.
func (b *SQLBackend) Close() error { return nil }
