package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/miradorstack/mirador-coverage/internal/models"
)

// MetadataSuffix is stripped from catalog file names to obtain the default integration key.
const MetadataSuffix = "_metadata.csv"

const (
	colName        = "metric_name"
	colType        = "metric_type"
	colInterval    = "interval"
	colUnit        = "unit_name"
	colPerUnit     = "per_unit_name"
	colDescription = "description"
	colOrientation = "orientation"
	colIntegration = "integration"
	colShortName   = "short_name"
	colCurated     = "curated_metric"
)

// LoadOutcome describes how a catalog load went. Fallback distinguishes a
// recovered load (built-in patterns substituted) from a catalog built from files.
type LoadOutcome struct {
	Dir      string
	Fallback bool
	Reason   string
	Files    int
	Skipped  int
	Metrics  int
}

// Load scans dir for CSV catalog files and builds an Index. Malformed files are
// logged and skipped. When dir is missing or yields no records the fallback
// pattern set is returned instead; Load never fails.
func Load(dir string, logger *slog.Logger) (*Index, LoadOutcome) {
	if logger == nil {
		logger = slog.Default()
	}
	outcome := LoadOutcome{Dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		outcome.Fallback = true
		if errors.Is(err, os.ErrNotExist) {
			outcome.Reason = "catalog directory not found"
		} else {
			outcome.Reason = fmt.Sprintf("read catalog directory: %v", err)
		}
		logger.Warn("using fallback integration patterns", slog.String("dir", dir), slog.String("reason", outcome.Reason))
		return FallbackIndex(), outcome
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	b := newBuilder()
	for _, name := range names {
		key, defs, err := loadFile(filepath.Join(dir, name))
		if err != nil {
			outcome.Skipped++
			logger.Error("failed to load catalog file", slog.String("file", name), slog.Any("error", err))
			continue
		}
		outcome.Files++
		if len(defs) == 0 {
			continue
		}
		b.add(key, name, defs)
		outcome.Metrics += len(defs)
		logger.Debug("loaded catalog file", slog.String("file", name), slog.String("integration", key), slog.Int("metrics", len(defs)))
	}

	if outcome.Metrics == 0 {
		outcome.Fallback = true
		outcome.Reason = "no usable metric definitions"
		logger.Warn("using fallback integration patterns", slog.String("dir", dir), slog.String("reason", outcome.Reason), slog.Int("skipped", outcome.Skipped))
		return FallbackIndex(), outcome
	}

	idx := b.build()
	logger.Info("catalog loaded",
		slog.String("dir", dir),
		slog.Int("metrics", outcome.Metrics),
		slog.Int("integrations", len(idx.keys)),
		slog.Int("skipped_files", outcome.Skipped),
	)
	return idx, outcome
}

func loadFile(path string) (string, []models.MetricDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	key, defs, err := parseCatalog(f, integrationKeyFromFile(filepath.Base(path)))
	if err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return key, defs, nil
}

// parseCatalog reads one catalog table. The returned key is defaultKey unless
// an integration column carries a non-empty value, in which case the first one wins.
func parseCatalog(r io.Reader, defaultKey string) (string, []models.MetricDefinition, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil, errors.New("empty file")
		}
		return "", nil, err
	}
	columns := make(map[string]int, len(header))
	for pos, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if _, dup := columns[col]; !dup {
			columns[col] = pos
		}
	}
	if _, ok := columns[colName]; !ok {
		return "", nil, fmt.Errorf("missing %q column", colName)
	}

	field := func(record []string, col string) string {
		pos, ok := columns[col]
		if !ok || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	key := ""
	var defs []models.MetricDefinition
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		if key == "" {
			key = field(record, colIntegration)
		}
		name := field(record, colName)
		if name == "" {
			continue
		}
		defs = append(defs, models.MetricDefinition{
			Name:        name,
			Type:        models.ParseMetricType(field(record, colType)),
			Interval:    field(record, colInterval),
			Unit:        field(record, colUnit),
			PerUnit:     field(record, colPerUnit),
			Description: field(record, colDescription),
			Orientation: field(record, colOrientation),
			ShortName:   field(record, colShortName),
			Curated:     field(record, colCurated),
		})
	}
	if key == "" {
		key = defaultKey
	}
	for i := range defs {
		defs[i].Integration = key
	}
	return key, defs, nil
}

func integrationKeyFromFile(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, MetadataSuffix):
		return name[:len(name)-len(MetadataSuffix)]
	case strings.HasSuffix(lower, ".csv"):
		return name[:len(name)-len(".csv")]
	default:
		return name
	}
}
