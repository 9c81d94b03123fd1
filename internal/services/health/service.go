package health

import (
	"context"
	"database/sql"
	"os/exec"
	"time"
)

const pingTimeout = 2 * time.Second

// Report is the payload returned by the health endpoints.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Service checks the dependencies a document needs to be processed: the
// database when configured and the external converter and OCR binaries.
type Service struct {
	DB       *sql.DB
	Binaries map[string]string

	lookPath func(string) (string, error)
}

// NewService constructs a health service. binaries maps a check name to the
// executable it must resolve.
func NewService(db *sql.DB, binaries map[string]string) *Service {
	return &Service{DB: db, Binaries: binaries, lookPath: exec.LookPath}
}

// Check runs every probe and reports "ok" or the failure per check.
func (s *Service) Check(ctx context.Context) Report {
	report := Report{OK: true, Checks: map[string]string{}}

	if s.DB != nil {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.DB.PingContext(pctx)
		cancel()
		report.set("database", err)
	}

	lookPath := s.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for name, bin := range s.Binaries {
		_, err := lookPath(bin)
		report.set(name, err)
	}
	return report
}

func (r *Report) set(name string, err error) {
	if err != nil {
		r.OK = false
		r.Checks[name] = err.Error()
		return
	}
	r.Checks[name] = "ok"
}
