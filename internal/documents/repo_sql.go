package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docanalyzer/internal/llm"
)

// SQLRepo implements Repo over database/sql. Queries use $n placeholders,
// which both the pgx and the modernc sqlite drivers accept.
type SQLRepo struct {
	DB *sql.DB
}

const documentColumns = `id, owner_id, file_name, original_name, mime_type, source_kind, size_bytes, storage_provider, storage_key, extracted_text, extracted_at, analysis, status, error_code, error_message, created_at, updated_at, processed_at`

// Create inserts a new document.
func (r *SQLRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    file_name,
    original_name,
    mime_type,
    source_kind,
    size_bytes,
    storage_provider,
    storage_key,
    extracted_text,
    extracted_at,
    analysis,
    status,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	originalName := doc.OriginalName
	if originalName == "" {
		originalName = doc.FileName
	}
	analysis, err := encodeAnalysis(doc.Analysis)
	if err != nil {
		return err
	}
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = doc.CreatedAt
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		nullString(doc.OwnerID),
		doc.FileName,
		originalName,
		doc.MimeType,
		string(doc.SourceKind),
		doc.SizeBytes,
		nullString(doc.StorageProvider),
		nullString(doc.StorageKey),
		extractedTextParam(doc),
		nullTime(doc.ExtractedAt),
		analysis,
		string(doc.Status),
		doc.CreatedAt,
		updatedAt,
	)
	return err
}

// GetByID fetches a document by ID.
func (r *SQLRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`

	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// Update persists the lifecycle fields of a document.
func (r *SQLRepo) Update(ctx context.Context, doc Document) error {
	const query = `
UPDATE documents
SET extracted_text = $1,
    extracted_at = $2,
    analysis = $3,
    status = $4,
    error_code = $5,
    error_message = $6,
    updated_at = $7,
    processed_at = $8
WHERE id = $9`

	analysis, err := encodeAnalysis(doc.Analysis)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(
		ctx,
		query,
		extractedTextParam(doc),
		nullTime(doc.ExtractedAt),
		analysis,
		string(doc.Status),
		nullString(doc.ErrorCode),
		nullString(doc.ErrorMessage),
		doc.UpdatedAt,
		nullTime(doc.ProcessedAt),
		doc.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var ownerID sql.NullString
	var storageProvider sql.NullString
	var storageKey sql.NullString
	var extractedText sql.NullString
	var extractedAt sql.NullTime
	var analysis sql.NullString
	var sourceKind string
	var status string
	var errorCode sql.NullString
	var errorMessage sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&ownerID,
		&doc.FileName,
		&doc.OriginalName,
		&doc.MimeType,
		&sourceKind,
		&doc.SizeBytes,
		&storageProvider,
		&storageKey,
		&extractedText,
		&extractedAt,
		&analysis,
		&status,
		&errorCode,
		&errorMessage,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&processedAt,
	)
	if err != nil {
		return Document{}, err
	}
	doc.SourceKind = SourceKind(sourceKind)
	doc.Status = Status(status)
	if ownerID.Valid {
		doc.OwnerID = ownerID.String
	}
	if storageProvider.Valid {
		doc.StorageProvider = storageProvider.String
	}
	if storageKey.Valid {
		doc.StorageKey = storageKey.String
	}
	if extractedText.Valid {
		doc.ExtractedText = extractedText.String
	}
	if extractedAt.Valid {
		doc.ExtractedAt = &extractedAt.Time
	}
	if analysis.Valid && analysis.String != "" {
		var a llm.AnalysisResult
		if err := json.Unmarshal([]byte(analysis.String), &a); err != nil {
			return Document{}, fmt.Errorf("decode analysis for %s: %w", doc.ID, err)
		}
		doc.Analysis = &a
	}
	if errorCode.Valid {
		doc.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		doc.ErrorMessage = errorMessage.String
	}
	if processedAt.Valid {
		doc.ProcessedAt = &processedAt.Time
	}
	return doc, nil
}

func encodeAnalysis(a *llm.AnalysisResult) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode analysis: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// extractedTextParam stores NULL until extraction has been attempted.
func extractedTextParam(doc Document) sql.NullString {
	if doc.ExtractedAt == nil && doc.ExtractedText == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: doc.ExtractedText, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*SQLRepo)(nil)
