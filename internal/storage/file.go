package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/webshelf/webshelf/internal/types"
)

// JSONFile buffers records and writes them as one JSON array on Close. The
// payload is Russian-heavy text, so HTML escaping is off and non-ASCII runes
// are written as-is.
type JSONFile struct {
	path    string
	records []*types.ParsedProduct
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewJSONFile creates a JSON file archive at outputPath.
func NewJSONFile(outputPath string, logger *slog.Logger) (*JSONFile, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &JSONFile{
		path:   outputPath,
		logger: logger.With("component", "json_archive"),
	}, nil
}

func (s *JSONFile) Name() string { return "json" }

func (s *JSONFile) Store(records []*types.ParsedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.logger.Debug("records buffered", "count", len(records), "total", len(s.records))
	return nil
}

func (s *JSONFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.records); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	s.logger.Info("JSON written", "path", s.path, "records", len(s.records))
	return nil
}

// ImportJSON reads a record array previously written by JSONFile.
func ImportJSON(r io.Reader) ([]*types.ParsedProduct, error) {
	var records []*types.ParsedProduct
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return records, nil
}

// ImportJSONFile reads a record array from a file path.
func ImportJSONFile(path string) ([]*types.ParsedProduct, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return ImportJSON(f)
}
