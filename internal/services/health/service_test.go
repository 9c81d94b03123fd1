package health

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCheckAllHealthy(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectPing()

	svc := NewService(db, map[string]string{"converter": "pdftocairo", "ocr": "tesseract"})
	svc.lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }

	report := svc.Check(context.Background())
	if !report.OK {
		t.Fatalf("expected healthy report, got %#v", report)
	}
	for _, key := range []string{"database", "converter", "ocr"} {
		if report.Checks[key] != "ok" {
			t.Fatalf("expected %s ok, got %q", key, report.Checks[key])
		}
	}
}

func TestCheckReportsFailures(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	svc := NewService(db, map[string]string{"ocr": "tesseract"})
	svc.lookPath = func(file string) (string, error) { return "", exec.ErrNotFound }

	report := svc.Check(context.Background())
	if report.OK {
		t.Fatalf("expected unhealthy report")
	}
	if report.Checks["database"] != "connection refused" {
		t.Fatalf("unexpected database check: %q", report.Checks["database"])
	}
	if report.Checks["ocr"] == "ok" {
		t.Fatalf("expected ocr failure")
	}
}

func TestCheckWithoutDatabase(t *testing.T) {
	svc := NewService(nil, nil)
	report := svc.Check(context.Background())
	if !report.OK || len(report.Checks) != 0 {
		t.Fatalf("expected empty healthy report, got %#v", report)
	}
}
