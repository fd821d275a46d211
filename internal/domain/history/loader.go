package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/pkg/logger"
	"github.com/okian/emberwatch/pkg/metrics"
)

// DefaultFiles lists the historical files shipped with the service.
var DefaultFiles = []string{
	"wildfire_data_1_part1.json",
	"wildfire_data_1_part2.json",
	"wildfire_data_part1.json",
	"wildfire_data_part2.json",
	"wildfire_data_2.json",
}

// LoadReport summarizes a dataset load.
type LoadReport struct {
	FilesLoaded     int
	FilesSkipped    int
	RecordsAccepted int
	RecordsRejected int
}

// Load reads every file as a JSON array of raw records and normalizes them.
// A file that cannot be read or parsed is logged and skipped; Load itself
// never fails, it only returns less data.
func Load(ctx context.Context, files []string, log logger.Logger) (*Dataset, LoadReport) {
	var (
		report LoadReport
		all    []Raw
	)
	for _, path := range files {
		if ctx.Err() != nil {
			log.Warn(ctx, "historical load cancelled", logger.Error(ctx.Err()))
			break
		}
		raws, err := readFile(path)
		if err != nil {
			report.FilesSkipped++
			metrics.RecordDatasetFileSkipped()
			log.Warn(ctx, "skipping historical fire file",
				logger.String("file", path),
				logger.Error(err),
			)
			continue
		}
		report.FilesLoaded++
		all = append(all, raws...)
	}

	ds := &Dataset{records: make([]model.FireRecord, 0, len(all))}
	for _, raw := range all {
		rec, ok := Normalize(raw)
		if !ok {
			report.RecordsRejected++
			continue
		}
		ds.records = append(ds.records, rec)
	}
	report.RecordsAccepted = len(ds.records)

	metrics.UpdateHistoricalRecords(report.RecordsAccepted)
	log.Info(ctx, "loaded historical fire records",
		logger.Int("records", report.RecordsAccepted),
		logger.Int("rejected", report.RecordsRejected),
		logger.Int("files", report.FilesLoaded),
		logger.Int("skipped", report.FilesSkipped),
	)
	return ds, report
}

func readFile(path string) ([]Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var raws []Raw
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}
	return raws, nil
}

// Resolve joins each file name onto dir unless it is already absolute.
func Resolve(dir string, files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		if filepath.IsAbs(f) || dir == "" {
			out[i] = f
			continue
		}
		out[i] = filepath.Join(dir, f)
	}
	return out
}

// Loader performs the historical load at most once per process.
type Loader struct {
	files  []string
	logger logger.Logger

	once    sync.Once
	dataset *Dataset
	report  LoadReport
}

// NewLoader returns a loader for the given files.
func NewLoader(files []string, log logger.Logger) *Loader {
	return &Loader{files: files, logger: log}
}

// Load runs the load on first call and returns the cached dataset afterwards.
func (l *Loader) Load(ctx context.Context) (*Dataset, LoadReport) {
	l.once.Do(func() {
		l.dataset, l.report = Load(ctx, l.files, l.logger)
	})
	return l.dataset, l.report
}
