package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/puntogafas/order-intake/internal/repository"
)

// Service produces XLSX bytes for the verification queue: one row per
// completed extraction job, with the draft's headline fields so logistics
// can triage without opening each job.
type Service struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewService(jobs repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportOrderDraftsXLSX returns an XLSX workbook for the given completion
// window. If only from is provided -> from..now. If neither -> all
// completed jobs.
func (s *Service) ExportOrderDraftsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	if from != nil && to == nil {
		now := time.Now().UTC()
		to = &now
	}

	completed, err := s.jobs.ListCompleted(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("query completed jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Pedidos IA"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Completado",
		"Job ID",
		"Pedido ID",
		"Cliente",
		"Tipo",
		"Completitud",
		"Total COP",
		"Items",
		"Revisión Manual",
		"Advertencias",
		"Primera Advertencia",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, c := range completed {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if c.Job.CompletedAt != nil {
			write(1, c.Job.CompletedAt.UTC().Format("2006-01-02 15:04"))
		} else {
			write(1, "")
		}
		write(2, c.Job.ID.String())
		if c.Job.OrderID != nil {
			write(3, c.Job.OrderID.String())
		} else {
			write(3, "")
		}
		write(4, c.Job.CustomerID)
		write(5, string(c.Draft.Header.OrderType))
		write(6, string(c.Draft.Completeness))
		write(7, c.Draft.Header.TotalAmount)
		write(8, len(c.Draft.Items))
		if c.Draft.NeedsManualReview {
			write(9, "Sí")
		} else {
			write(9, "No")
		}
		write(10, len(c.Draft.Warnings))
		if len(c.Draft.Warnings) > 0 {
			write(11, truncate(c.Draft.Warnings[0], 140))
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 17)
	_ = f.SetColWidth(sheet, "B", "C", 38)
	_ = f.SetColWidth(sheet, "D", "D", 38)
	_ = f.SetColWidth(sheet, "E", "F", 13)
	_ = f.SetColWidth(sheet, "G", "G", 14)
	_ = f.SetColWidth(sheet, "K", "K", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(completed),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
