// Package storage persists simulation runs as one directory per run holding
// metadata.json and series.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
)

// ErrRunNotFound indicates an unknown run ID.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Pole is a closed-loop eigenvalue in JSON-friendly form.
type Pole struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

type RunMetadata struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Timestamp time.Time                  `json:"timestamp"`
	Method    string                     `json:"method"`
	Horizon   float64                    `json:"horizon"`
	Samples   int                        `json:"samples"`
	Inputs    []string                   `json:"inputs"`
	Outputs   []string                   `json:"outputs"`
	Stable    bool                       `json:"stable"`
	Poles     []Pole                     `json:"poles"`
	Channels  []experiment.ChannelReport `json:"channels"`
	Metrics   map[string]float64         `json:"metrics"`
	Config    *config.Config             `json:"config"`
}

// Save writes a run under a fresh ID prefixed with name.
func (s *Store) Save(name string, cfg *config.Config, result *experiment.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", name, xid.New().String())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	resp := result.Response
	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Timestamp: time.Now(),
		Method:    cfg.Method,
		Horizon:   cfg.Horizon,
		Samples:   len(resp.Times),
		Inputs:    resp.Inputs,
		Outputs:   resp.Outputs,
		Stable:    result.Stable,
		Channels:  result.Channels,
		Metrics:   result.Metrics,
		Config:    cfg,
	}
	for _, p := range result.Poles {
		meta.Poles = append(meta.Poles, Pole{Re: real(p), Im: imag(p)})
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := writeSeries(csvFile, seriesFromResult(result)); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns the readable runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

// Series is a sampled run: one column per signal, one row per sample.
type Series struct {
	Columns []string    `json:"columns"`
	Times   []float64   `json:"times"`
	Rows    [][]float64 `json:"rows"`
}

// Column returns the samples of the named signal, or nil.
func (s *Series) Column(name string) []float64 {
	for j, c := range s.Columns {
		if c == name {
			out := make([]float64, len(s.Rows))
			for i, row := range s.Rows {
				out[i] = row[j]
			}
			return out
		}
	}
	return nil
}

func seriesFromResult(result *experiment.Result) *Series {
	resp := result.Response
	s := &Series{Times: resp.Times}
	s.Columns = append(append(s.Columns, resp.Inputs...), resp.Outputs...)
	for k := range resp.Times {
		row := make([]float64, 0, len(s.Columns))
		for i := range resp.Inputs {
			row = append(row, resp.U.At(i, k))
		}
		for i := range resp.Outputs {
			row = append(row, resp.Y.At(i, k))
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func writeSeries(w io.Writer, s *Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"time"}, s.Columns...)); err != nil {
		return err
	}
	for k, t := range s.Times {
		record := make([]string, 0, len(s.Columns)+1)
		record = append(record, strconv.FormatFloat(t, 'g', -1, 64))
		for _, v := range s.Rows[k] {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	if len(records) == 0 {
		return &Series{}, nil
	}

	series := &Series{Columns: records[0][1:]}
	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %d: %w", runID, i+1, j, err)
			}
			values[j] = v
		}
		series.Times = append(series.Times, values[0])
		series.Rows = append(series.Rows, values[1:])
	}
	return series, nil
}

// ExportCSV copies the run's series to w.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	series, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}
	return writeSeries(w, series)
}

// ExportJSON writes the run metadata and series as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	series, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*RunMetadata
		Series *Series `json:"series"`
	}{meta, series})
}

// Delete removes a run directory.
func (s *Store) Delete(runID string) error {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return os.RemoveAll(dir)
}
