package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"docanalyzer/internal/llm"
	"docanalyzer/internal/shared/telemetry"
)

const SheetName = "Analyse"

// AnalysisXLSX renders an analysis as a single-sheet workbook: a summary block
// followed by one row per key point, required action and warning.
func AnalysisXLSX(title string, analyzedAt time.Time, a llm.AnalysisResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	row := 1
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(SheetName, cell, v)
	}

	summary := [][2]string{
		{"Document", title},
		{"Date", analyzedAt.UTC().Format("2006-01-02 15:04")},
		{"Résumé", a.Summary},
		{"Explication simple", a.SimpleExplanation},
		{"Ton", a.Tone},
		{"Intention", a.Intent},
	}
	for _, kv := range summary {
		write(1, kv[0])
		write(2, kv[1])
		row++
	}

	row++
	write(1, "Section")
	write(2, "Élément")
	headerRow := row
	row++

	sections := []struct {
		name  string
		items []string
	}{
		{name: "Point clé", items: a.KeyPoints},
		{name: "Action requise", items: a.RequiredActions},
		{name: "Avertissement", items: a.Warnings},
	}
	for _, s := range sections {
		for _, item := range s.items {
			write(1, s.name)
			write(2, item)
			row++
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(SheetName, "A1", fmt.Sprintf("A%d", len(summary)), bold)
		_ = f.SetCellStyle(SheetName, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("B%d", headerRow), bold)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err == nil {
		_ = f.SetCellStyle(SheetName, "B1", fmt.Sprintf("B%d", row), wrap)
	}
	_ = f.SetColWidth(SheetName, "A", "A", 22)
	_ = f.SetColWidth(SheetName, "B", "B", 90)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	telemetry.Info("export.xlsx.ok", map[string]any{
		"rows":       row - 1,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return buf.Bytes(), nil
}
