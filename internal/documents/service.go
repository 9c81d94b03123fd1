package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docanalyzer/internal/extract"
	"docanalyzer/internal/shared/storage/object"
	"docanalyzer/internal/shared/telemetry"
	"docanalyzer/internal/shared/util"
)

const (
	pastedFileName     = "texte-colle.txt"
	defaultPastedTitle = "Texte collé"
)

// Service contains business logic for creating and reading documents.
type Service struct {
	Store           object.ObjectStore
	Repo            Repo
	StorageProvider string
	Now             func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Upload saves the file to object storage and records an uploaded document.
// The declared MIME type wins when supported, then the file extension.
func (s *Service) Upload(ctx context.Context, ownerID, fileName, declaredMime string, r io.Reader) (Document, error) {
	if strings.TrimSpace(fileName) == "" {
		return Document{}, ErrInvalidInput
	}
	mimeType, err := resolveMimeType(declaredMime, fileName)
	if err != nil {
		return Document{}, err
	}
	kind, _ := SourceKindFor(mimeType)

	storageKey, size, _, err := s.Store.Save(ctx, ownerID, fileName, r)
	if errors.Is(err, util.ErrInvalidFileName) {
		return Document{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}

	now := s.now()
	doc := Document{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		FileName:        path.Base(storageKey),
		OriginalName:    fileName,
		MimeType:        mimeType,
		SourceKind:      kind,
		SizeBytes:       size,
		StorageProvider: s.provider(),
		StorageKey:      storageKey,
		Status:          StatusUploaded,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		// Detach from the request so a cancelled upload still cleans up.
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), storageKey); delErr != nil {
			telemetry.Warn("document.orphaned_object", map[string]any{
				"storage_key": storageKey,
				"error":       delErr.Error(),
			})
		}
		return Document{}, err
	}

	telemetry.Info("document.created", map[string]any{
		"document_id": doc.ID,
		"source_kind": string(doc.SourceKind),
		"mime_type":   doc.MimeType,
		"size_bytes":  doc.SizeBytes,
	})
	return doc, nil
}

// Paste records a plain-text document whose text is known up front. It starts
// in processing because analysis follows immediately.
func (s *Service) Paste(ctx context.Context, ownerID, title, text string) (Document, error) {
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultPastedTitle
	}

	now := s.now()
	doc := Document{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		FileName:      pastedFileName,
		OriginalName:  title,
		MimeType:      extract.MimePlainText,
		SourceKind:    SourcePlainText,
		SizeBytes:     int64(len(text)),
		ExtractedText: text,
		ExtractedAt:   &now,
		Status:        StatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	telemetry.Info("document.created", map[string]any{
		"document_id": doc.ID,
		"source_kind": string(doc.SourceKind),
		"chars":       len([]rune(text)),
	})
	return doc, nil
}

// Get returns a document if requesterID may see it.
func (s *Service) Get(ctx context.Context, requesterID, id string) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrNotFound
	}
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if !doc.VisibleTo(requesterID) {
		return Document{}, ErrForbidden
	}
	return doc, nil
}

func (s *Service) provider() string {
	if s.StorageProvider == "" {
		return "local"
	}
	return s.StorageProvider
}

func resolveMimeType(declared, fileName string) (string, error) {
	if m := extract.NormalizeMimeType(declared); m != "" && extract.IsSupported(m) {
		return m, nil
	}
	if m := extract.MimeTypeForFile(fileName); m != "" && extract.IsSupported(m) {
		return m, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(fileName))
}
