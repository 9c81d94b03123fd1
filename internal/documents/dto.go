package documents

import (
	"time"

	"docanalyzer/internal/llm"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID    string              `json:"documentId"`
	FileName      string              `json:"fileName"`
	OriginalName  string              `json:"originalName"`
	MimeType      string              `json:"mimeType"`
	SourceKind    SourceKind          `json:"sourceKind"`
	SizeBytes     int64               `json:"sizeBytes"`
	Status        Status              `json:"status"`
	ExtractedText *string             `json:"extractedText,omitempty"`
	Analysis      *llm.AnalysisResult `json:"analysis,omitempty"`
	Error         *DocumentError      `json:"error,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	ProcessedAt   *time.Time          `json:"processedAt,omitempty"`
}

// DocumentError describes why processing failed.
type DocumentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toResponse(doc Document) DocumentResponse {
	resp := DocumentResponse{
		DocumentID:   doc.ID,
		FileName:     doc.FileName,
		OriginalName: doc.OriginalName,
		MimeType:     doc.MimeType,
		SourceKind:   doc.SourceKind,
		SizeBytes:    doc.SizeBytes,
		Status:       doc.Status,
		Analysis:     doc.Analysis,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		ProcessedAt:  doc.ProcessedAt,
	}
	if doc.ExtractedAt != nil {
		text := doc.ExtractedText
		resp.ExtractedText = &text
	}
	if doc.Status == StatusFailed && doc.ErrorCode != "" {
		resp.Error = &DocumentError{Code: doc.ErrorCode, Message: doc.ErrorMessage}
	}
	return resp
}

type analyzeTextRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

type actionRequest struct {
	Instruction string `json:"instruction"`
}

type actionResponse struct {
	Result string `json:"result"`
}

type processResponse struct {
	DocumentResponse
	Queued bool `json:"queued"`
}
