package extract

import "docanalyzer/internal/shared/telemetry"

// Stage names a checkpoint reported through the progress hook.
type Stage string

const (
	StageStarted        Stage = "started"
	StageTextLayer      Stage = "text_layer"
	StageFallback       Stage = "ocr_fallback"
	StageRasterized     Stage = "rasterized"
	StagePage           Stage = "page_recognized"
	StageFallbackFailed Stage = "ocr_fallback_failed"
	StageCompleted      Stage = "completed"
)

// Event is one progress checkpoint. Page and Pages are set for page events.
type Event struct {
	Stage    Stage
	Path     string
	MimeType string
	Strategy string
	Page     int
	Pages    int
	Chars    int
	Detail   string
}

// ProgressFunc receives extraction checkpoints. It must not block.
type ProgressFunc func(Event)

// LogProgress is the default hook; it writes each checkpoint to telemetry.
func LogProgress(ev Event) {
	fields := map[string]any{
		"stage":     string(ev.Stage),
		"path":      ev.Path,
		"mime_type": ev.MimeType,
	}
	if ev.Strategy != "" {
		fields["strategy"] = ev.Strategy
	}
	if ev.Pages > 0 {
		fields["page"] = ev.Page
		fields["pages"] = ev.Pages
	}
	if ev.Chars > 0 {
		fields["chars"] = ev.Chars
	}
	if ev.Detail != "" {
		fields["detail"] = ev.Detail
	}
	if ev.Stage == StageFallbackFailed {
		telemetry.Warn("extract.progress", fields)
		return
	}
	telemetry.Info("extract.progress", fields)
}
