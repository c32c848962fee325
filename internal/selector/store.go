package selector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"dubshorts/internal/fileutil"
	"dubshorts/internal/logging"
	"dubshorts/internal/services"
)

// TimestampLayout is the processed-record timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// ProcessedRecord marks a URL as carried through the pipeline.
type ProcessedRecord struct {
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

// LoadBacklog reads the backlog file. Any read or parse failure is an
// ErrSelection; entries that are not JSON objects are skipped.
func LoadBacklog(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrSelection, "selecting", "read backlog", path, err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, services.Wrap(services.ErrSelection, "selecting", "parse backlog", path, err)
	}
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var record Record
		if err := json.Unmarshal(item, &record); err != nil || record == nil {
			records = append(records, Record{})
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// ProcessedStore reads and appends the processed-set file.
type ProcessedStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewProcessedStore returns a store backed by path.
func NewProcessedStore(path string, logger *slog.Logger) *ProcessedStore {
	return &ProcessedStore{
		path:   path,
		logger: logging.NewComponentLogger(logger, "selector"),
		now:    time.Now,
	}
}

// Path returns the backing file location.
func (s *ProcessedStore) Path() string {
	return s.path
}

// Records returns the stored records. A missing or unreadable file yields an
// empty list; unreadable files are logged as warnings.
func (s *ProcessedStore) Records() []ProcessedRecord {
	records, err := readProcessed(s.path)
	if err != nil {
		logging.WarnWithContext(s.logger, "processed set unreadable; treating as empty", "processed_set_unreadable",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect or restore the processed file"),
			logging.String(logging.FieldImpact, "previously processed URLs may be selected again"),
		)
		return nil
	}
	return records
}

// Load returns the processed URLs as a set.
func (s *ProcessedStore) Load() Set {
	set := make(Set)
	for _, record := range s.Records() {
		if url := strings.TrimSpace(record.URL); url != "" {
			set[url] = struct{}{}
		}
	}
	return set
}

// Append records url with the current local time. The file is rewritten
// atomically. A corrupt existing file is moved aside before writing.
func (s *ProcessedStore) Append(url string) (ProcessedRecord, error) {
	record := ProcessedRecord{URL: url, Timestamp: s.now().Format(TimestampLayout)}

	records, err := readProcessed(s.path)
	if err != nil {
		aside := s.path + ".corrupt-" + s.now().Format("20060102T150405")
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			return record, fmt.Errorf("move corrupt processed set aside: %w", renameErr)
		}
		logging.WarnWithContext(s.logger, "corrupt processed set moved aside", "processed_set_reset",
			logging.String("path", s.path),
			logging.String("moved_to", aside),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "merge the moved file back if it holds needed history"),
			logging.String(logging.FieldImpact, "processed history restarted"),
		)
		records = nil
	}
	records = append(records, record)
	if err := fileutil.WriteJSONAtomic(s.path, records); err != nil {
		return record, fmt.Errorf("write processed set: %w", err)
	}
	return record, nil
}

func readProcessed(path string) ([]ProcessedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var records []ProcessedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
