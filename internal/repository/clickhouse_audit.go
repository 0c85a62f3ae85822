package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"RWAPrice/internal/domain/models"
	drepo "RWAPrice/internal/domain/repository"
)

// ClickHouseAudit appends pricing decisions to the audit table.
type ClickHouseAudit struct {
	db    *sql.DB
	table string
}

// NewClickHouseAudit creates the ClickHouse audit sink.
func NewClickHouseAudit(db *sql.DB, table string) drepo.AuditSink {
	return &ClickHouseAudit{db: db, table: table}
}

func (a *ClickHouseAudit) Record(ctx context.Context, e *models.AuditEntry) error {
	factors, err := json.Marshal(e.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (ts, asset_id, price, confidence, factors, payload, fallback) VALUES (?, ?, ?, ?, ?, ?, ?)",
		a.table,
	)
	fallback := uint8(0)
	if e.Fallback {
		fallback = 1
	}
	_, err = a.db.ExecContext(ctx, q,
		e.Timestamp,
		e.AssetID,
		e.Price,
		e.Confidence,
		string(factors),
		e.Payload,
		fallback,
	)
	if err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}
	return nil
}

func (a *ClickHouseAudit) Close() error { return nil }

// NoopAudit is used when the audit backend is disabled; decisions still land
// in the structured log.
type NoopAudit struct{}

func (NoopAudit) Record(context.Context, *models.AuditEntry) error { return nil }
func (NoopAudit) Close() error                                     { return nil }
