package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
	"github.com/asiste-app/asiste-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

type rosterProvider interface {
	ClassRoster(ctx context.Context, sessionID string) ([]models.RosterEntry, error)
}

// ExportService renders session rosters as downloadable CSV or PDF files.
type ExportService struct {
	roster rosterProvider
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(roster rosterProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		roster: roster,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var rosterHeaders = []string{"Matricula", "Student", "Scanned At", "Distance (m)", "Valid", "Justified"}

// SessionRoster renders the roster for one session in the requested format.
func (s *ExportService) SessionRoster(ctx context.Context, sessionID string, format ExportFormat) (*ExportFile, error) {
	entries, err := s.roster.ClassRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: rosterHeaders}
	for _, e := range entries {
		matricula := ""
		if e.Matricula != nil {
			matricula = *e.Matricula
		}
		distance := ""
		if e.DistanceM != nil {
			distance = strconv.FormatFloat(*e.DistanceM, 'f', 1, 64)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Matricula":    matricula,
			"Student":      e.StudentName,
			"Scanned At":   e.ScannedAt.Format(time.RFC3339),
			"Distance (m)": distance,
			"Valid":        strconv.FormatBool(e.Valid),
			"Justified":    strconv.FormatBool(e.Justified),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case FormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv roster")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("roster-%s-%s.csv", sessionID, stamp),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	case FormatPDF:
		subtitle := fmt.Sprintf("Session %s - %d scans", sessionID, len(entries))
		body, err := s.pdf.Render(dataset, "Attendance Roster", subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf roster")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("roster-%s-%s.pdf", sessionID, stamp),
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+strings.TrimSpace(string(format)))
	}
}
