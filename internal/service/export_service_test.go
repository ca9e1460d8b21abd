package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

type stubRoster struct {
	entries []models.RosterEntry
}

func (s *stubRoster) ClassRoster(ctx context.Context, sessionID string) ([]models.RosterEntry, error) {
	return s.entries, nil
}

func TestExportSessionRosterCSV(t *testing.T) {
	matricula := "2024-ABC123"
	dist := 3.2
	roster := &stubRoster{entries: []models.RosterEntry{
		{StudentID: "u1", Matricula: &matricula, StudentName: "Ana Torres", ScannedAt: time.Now().UTC(), DistanceM: &dist, Valid: true},
	}}
	svc := NewExportService(roster, zap.NewNop())

	file, err := svc.SessionRoster(context.Background(), "s1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	body := string(file.Body)
	assert.Contains(t, body, "Matricula,Student,Scanned At")
	assert.Contains(t, body, "Ana Torres")
	assert.Contains(t, body, "3.2")
}

func TestExportSessionRosterPDF(t *testing.T) {
	roster := &stubRoster{entries: []models.RosterEntry{
		{StudentID: "u1", StudentName: "Ana Torres", ScannedAt: time.Now().UTC(), Valid: true},
	}}
	svc := NewExportService(roster, zap.NewNop())

	file, err := svc.SessionRoster(context.Background(), "s1", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.NotEmpty(t, file.Body)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&stubRoster{}, zap.NewNop())

	_, err := svc.SessionRoster(context.Background(), "s1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
