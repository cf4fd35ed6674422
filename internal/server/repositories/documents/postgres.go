// Package documents provides the PostgreSQL-backed repository for encrypted
// document attachments.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/kinkeeper/internal/dbx"
	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	query := `
		INSERT INTO documents (person_id, user_id, file_name, storage_key, encrypted_data_key, upload_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		doc.PersonID, doc.UserID, doc.FileName, doc.StorageKey, doc.EncryptedDataKey, doc.UploadStatus).
		Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id, userID string) (*models.Document, error) {
	query := `
		SELECT id, person_id, user_id, file_name, storage_key, encrypted_data_key, upload_status, created_at
		FROM documents
		WHERE id = $1 AND user_id = $2
	`
	doc := &models.Document{EncryptedDataKey: &cryptox.Envelope{}}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&doc.ID, &doc.PersonID, &doc.UserID, &doc.FileName, &doc.StorageKey,
			doc.EncryptedDataKey, &doc.UploadStatus, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) ListByPerson(ctx context.Context, personID, userID string) ([]*models.Document, error) {
	query := `
		SELECT id, person_id, user_id, file_name, storage_key, encrypted_data_key, upload_status, created_at
		FROM documents
		WHERE person_id = $1 AND user_id = $2
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, personID, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc := &models.Document{EncryptedDataKey: &cryptox.Envelope{}}
		if err := rows.Scan(&doc.ID, &doc.PersonID, &doc.UserID, &doc.FileName, &doc.StorageKey,
			doc.EncryptedDataKey, &doc.UploadStatus, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) MarkUploaded(ctx context.Context, id, userID string) error {
	query := `
		UPDATE documents
		SET upload_status = $3
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, userID, models.UploadStatusUploaded)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
