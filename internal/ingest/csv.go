package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"districtpulse/pkg/contracts/domain"
)

// CSVSource reads district metric snapshots from every *.csv file in a
// directory. Files load concurrently; rows from all files form one snapshot.
type CSVSource struct {
	dir    string
	logger *slog.Logger
}

// NewCSVSource creates a CSV row source for the given directory.
func NewCSVSource(dir string, logger *slog.Logger) *CSVSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSource{
		dir:    dir,
		logger: logger.With(slog.String("component", "csv_source")),
	}
}

// Fetch implements RowSource.
func (s *CSVSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("snapshot directory unavailable: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list snapshot files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV files found in %s", s.dir)
	}
	sort.Strings(files)

	s.logger.InfoContext(ctx, "loading snapshot files", slog.Int("count", len(files)))

	var mu sync.Mutex
	perFile := make(map[string][]domain.RawRecord, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := readCSVFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", filepath.Base(file), err)
			}
			mu.Lock()
			perFile[file] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic row order regardless of load order.
	var all []domain.RawRecord
	for _, file := range files {
		all = append(all, perFile[file]...)
	}

	s.logger.InfoContext(ctx, "snapshot loaded",
		slog.Int("files", len(files)),
		slog.Int("rows", len(all)))
	return all, nil
}

// readCSVFile parses one CSV file into raw rows. The header row maps column
// names to fields; unknown columns are ignored, missing columns leave the
// field empty for the validator to degrade.
func readCSVFile(path string) ([]domain.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	// Strip a UTF-8 BOM; government exports carry one often enough.
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	cols := findColumns(records[0])
	rows := make([]domain.RawRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, domain.RawRecord{
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
	return rows, nil
}

// columnIndices holds the positions of the mapped columns, -1 when absent.
type columnIndices struct {
	districtID   int
	districtName int
	stateName    int
	period       int
	employed     int
	paymentSpeed int
	households   int
	wages        int
}

// findColumns matches header names case-insensitively, accepting the common
// variants seen across source exports.
func findColumns(header []string) columnIndices {
	cols := columnIndices{
		districtID: -1, districtName: -1, stateName: -1, period: -1,
		employed: -1, paymentSpeed: -1, households: -1, wages: -1,
	}
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
		switch strings.ToLower(strings.ReplaceAll(name, " ", "_")) {
		case "districtid", "district_id", "district_code":
			cols.districtID = i
		case "districtname", "district_name", "district":
			cols.districtName = i
		case "statename", "state_name", "state":
			cols.stateName = i
		case "period", "month", "report_month":
			cols.period = i
		case "employedcount", "employed_count", "employed", "persons_employed":
			cols.employed = i
		case "paymentspeedpct", "payment_speed_pct", "payment_speed", "payments_within_15_days_pct":
			cols.paymentSpeed = i
		case "householdsbenefited", "households_benefited", "households":
			cols.households = i
		case "wagespaid", "wages_paid", "wages":
			cols.wages = i
		}
	}
	return cols
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
