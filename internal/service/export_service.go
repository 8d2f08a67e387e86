package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"pointsmill/internal/models"
	"pointsmill/internal/repository"
)

// utf8BOM makes the CSV open cleanly in spreadsheet apps
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportService writes a family's ledger as CSV
type ExportService struct {
	ledgerRepo *repository.LedgerRepository
}

// NewExportService creates a new export service
func NewExportService(ledgerRepo *repository.LedgerRepository) *ExportService {
	return &ExportService{ledgerRepo: ledgerRepo}
}

// WriteCSV writes all log entries within [start, end) to w, one row per
// transaction, prefixed with a UTF-8 BOM.
func (s *ExportService) WriteCSV(w io.Writer, familyID int64, start, end time.Time) error {
	logs, err := s.ledgerRepo.GetLogsInRange(familyID, start, end)
	if err != nil {
		return err
	}
	return writeLogsCSV(w, logs)
}

func writeLogsCSV(w io.Writer, logs []models.PointLogWithKid) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"timestamp", "kid", "reason", "points_delta", "minutes_delta", "actor"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range logs {
		row := []string{
			entry.CreatedAt.Format(time.RFC3339),
			entry.KidName,
			entry.Reason,
			strconv.Itoa(entry.PointsDelta),
			strconv.Itoa(entry.MinutesDelta),
			entry.ActorName,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// ExportFilename names the download for a family and date range
func ExportFilename(start, end time.Time) string {
	return fmt.Sprintf("points_%s_%s.csv", start.Format("20060102"), end.Format("20060102"))
}
