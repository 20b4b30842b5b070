package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/stock-alerts/internal/alert"
)

// PostgresAlertStore persists alerts in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE alerts (
//	    id               TEXT PRIMARY KEY,
//	    recipient_id     TEXT NOT NULL,
//	    classification   TEXT NOT NULL,
//	    inventory_id     TEXT NOT NULL,
//	    product_id       TEXT NOT NULL,
//	    warehouse_id     TEXT NOT NULL,
//	    product_name     TEXT NOT NULL,
//	    warehouse_name   TEXT NOT NULL,
//	    current_quantity INTEGER NOT NULL,
//	    min_stock        INTEGER,
//	    max_stock        INTEGER,
//	    message          TEXT NOT NULL,
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    read_at          TIMESTAMPTZ
//	);
//	CREATE INDEX alerts_recipient_created ON alerts (recipient_id, created_at DESC, id DESC);
type PostgresAlertStore struct {
	db *sql.DB
}

func NewPostgresAlertStore(db *sql.DB) *PostgresAlertStore {
	return &PostgresAlertStore{db: db}
}

func (s *PostgresAlertStore) Append(ctx context.Context, record alert.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, recipient_id, classification, inventory_id, product_id, warehouse_id,
		                     product_name, warehouse_name, current_quantity, min_stock, max_stock,
		                     message, created_at, read_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		record.ID,
		record.RecipientID,
		string(record.Classification),
		record.InventoryID,
		record.ProductID,
		record.WarehouseID,
		record.ProductName,
		record.WarehouseName,
		record.CurrentQuantity,
		nullableInt(record.MinStock),
		nullableInt(record.MaxStock),
		record.Message,
		record.CreatedAt,
		nullableTime(record.ReadAt),
	)
	if err != nil {
		return fmt.Errorf("append alert %s: %w", record.ID, err)
	}
	return nil
}

func (s *PostgresAlertStore) List(ctx context.Context, recipientID string, limit int) ([]alert.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient_id, classification, inventory_id, product_id, warehouse_id,
		        product_name, warehouse_name, current_quantity, min_stock, max_stock,
		        message, created_at, read_at
		 FROM alerts
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		recipientID, NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	records := make([]alert.Record, 0)
	for rows.Next() {
		var (
			r              alert.Record
			classification string
			minStock       sql.NullInt64
			maxStock       sql.NullInt64
			readAt         sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.RecipientID, &classification, &r.InventoryID, &r.ProductID,
			&r.WarehouseID, &r.ProductName, &r.WarehouseName, &r.CurrentQuantity,
			&minStock, &maxStock, &r.Message, &r.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		r.Classification = alert.Classification(classification)
		if minStock.Valid {
			v := int(minStock.Int64)
			r.MinStock = &v
		}
		if maxStock.Valid {
			v := int(maxStock.Int64)
			r.MaxStock = &v
		}
		if readAt.Valid {
			t := readAt.Time
			r.ReadAt = &t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresAlertStore) MarkRead(ctx context.Context, recipientID, alertID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET read_at = now()
		 WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		alertID, recipientID,
	)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// Nothing updated: either the record is already read (a safe no-op) or
	// it does not exist for this recipient (not found, never "forbidden").
	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts WHERE id = $1 AND recipient_id = $2)`,
		alertID, recipientID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *PostgresAlertStore) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET read_at = now()
		 WHERE recipient_id = $1 AND read_at IS NULL`,
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (s *PostgresAlertStore) Clear(ctx context.Context, recipientID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE recipient_id = $1`,
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear alerts: %w", err)
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

// ConnectPostgres opens and verifies a PostgreSQL connection with pool
// settings suitable for the API and notifier services.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
