package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"districtpulse/pkg/contracts/domain"
)

// ExcelSource reads district metric snapshots from *.xlsx workbooks. Some
// upstream portals only publish monthly reports as Excel; the loader finds
// the sheet carrying district rows and flattens it into raw records.
type ExcelSource struct {
	dir    string
	logger *slog.Logger
}

// NewExcelSource creates an Excel row source for the given directory.
func NewExcelSource(dir string, logger *slog.Logger) *ExcelSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelSource{
		dir:    dir,
		logger: logger.With(slog.String("component", "excel_source")),
	}
}

// Fetch implements RowSource.
func (s *ExcelSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("snapshot directory unavailable: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(s.dir, "*.xlsx"))
	if err != nil {
		return nil, fmt.Errorf("list workbooks: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no xlsx files found in %s", s.dir)
	}
	sort.Strings(files)

	var all []domain.RawRecord
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := readWorkbook(file)
		if err != nil {
			// A single bad workbook should not sink the whole snapshot.
			s.logger.WarnContext(ctx, "skipping unreadable workbook",
				slog.String("file", filepath.Base(file)),
				slog.String("error", err.Error()))
			continue
		}
		all = append(all, rows...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no district rows found in %s", s.dir)
	}

	s.logger.InfoContext(ctx, "workbooks loaded",
		slog.Int("files", len(files)),
		slog.Int("rows", len(all)))
	return all, nil
}

// readWorkbook extracts district rows from the first sheet whose header row
// mentions a district column.
func readWorkbook(path string) ([]domain.RawRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}
		header := strings.ToLower(strings.Join(rows[0], " "))
		if !strings.Contains(header, "district") {
			continue
		}

		cols := findColumns(rows[0])
		out := make([]domain.RawRecord, 0, len(rows)-1)
		for _, record := range rows[1:] {
			out = append(out, domain.RawRecord{
				DistrictID:          cell(record, cols.districtID),
				DistrictName:        cell(record, cols.districtName),
				StateName:           cell(record, cols.stateName),
				Period:              cell(record, cols.period),
				EmployedCount:       cell(record, cols.employed),
				PaymentSpeedPct:     cell(record, cols.paymentSpeed),
				HouseholdsBenefited: cell(record, cols.households),
				WagesPaid:           cell(record, cols.wages),
			})
		}
		return out, nil
	}
	return nil, fmt.Errorf("no sheet with district columns in %s", filepath.Base(path))
}
