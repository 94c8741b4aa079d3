package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/finqlabs/finretriever/internal/core/domain"
)

// EntityRepository persists the table entities a document yields, so the
// in-memory index can be rebuilt after restarts and across processes.
type EntityRepository struct {
	db *sql.DB
}

func NewEntityRepository(db *sql.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// ReplaceForDocument swaps a document's entities wholesale inside one
// transaction. Re-ingesting a document never leaves stale rows behind.
func (r *EntityRepository) ReplaceForDocument(ctx context.Context, documentID string, entities []domain.TableEntity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entity tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM table_entities WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete stale entities: %w", err)
	}

	for _, e := range entities {
		_, err := tx.ExecContext(ctx, `
INSERT INTO table_entities (
	document_id, entity_name, canonical_name, period_raw, period_year, period_quarter, value, unit, source_document, page, element_index
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
			documentID, e.EntityName, e.CanonicalName, e.Period.Raw, e.Period.Year, e.Period.Quarter,
			e.Value, e.Unit, e.SourceDocument, e.Page, e.ElementIndex,
		)
		if err != nil {
			return fmt.Errorf("insert entity %q: %w", e.EntityName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entity tx: %w", err)
	}
	return nil
}

func (r *EntityRepository) ListAll(ctx context.Context) ([]domain.TableEntity, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT entity_name, canonical_name, period_raw, period_year, period_quarter, value, unit, source_document, page, element_index
FROM table_entities
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.TableEntity
	for rows.Next() {
		var e domain.TableEntity
		err := rows.Scan(
			&e.EntityName, &e.CanonicalName, &e.Period.Raw, &e.Period.Year, &e.Period.Quarter,
			&e.Value, &e.Unit, &e.SourceDocument, &e.Page, &e.ElementIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}
