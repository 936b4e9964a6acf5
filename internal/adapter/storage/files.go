package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/config"
	"github.com/berfenger/solcast2mqtt/internal/core/consumption"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/port"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	DEFAULT_HISTORY_FILE  = "cons_history.json"
	DEFAULT_FORECAST_FILE = "prod_forecast.json"
	DEFAULT_KILL_FILE     = "kill"
)

var ErrNoHistory = errors.New("no consumption history")

// FileStore keeps the snapshots as JSON files under one directory.
type FileStore struct {
	fs           afero.Fs
	dir          string
	historyFile  string
	forecastFile string
	killFile     string
}

func NewFileStore(fs afero.Fs, cfg config.ControllerConfig) *FileStore {
	store := &FileStore{
		fs:           fs,
		dir:          cfg.DataDir,
		historyFile:  cfg.HistoryFile,
		forecastFile: cfg.ForecastFile,
		killFile:     cfg.KillFile,
	}
	if store.historyFile == "" {
		store.historyFile = DEFAULT_HISTORY_FILE
	}
	if store.forecastFile == "" {
		store.forecastFile = DEFAULT_FORECAST_FILE
	}
	if store.killFile == "" {
		store.killFile = DEFAULT_KILL_FILE
	}
	return store
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadHistory fails with ErrNoHistory when the snapshot is absent or holds no slot.
func (s *FileStore) LoadHistory() (*consumption.Table, error) {
	data, err := afero.ReadFile(s.fs, s.path(s.historyFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found", ErrNoHistory, s.path(s.historyFile))
	}
	if err != nil {
		return nil, err
	}
	var values map[string]float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.historyFile, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoHistory, s.path(s.historyFile))
	}
	return consumption.TableFromMap(values)
}

func (s *FileStore) SaveHistory(table *consumption.Table) error {
	data, err := json.Marshal(table.Values())
	if err != nil {
		return err
	}
	return s.write(s.historyFile, data)
}

// LoadForecast returns nil when no forecast was saved yet.
func (s *FileStore) LoadForecast() (*forecast.Snapshot, error) {
	data, err := afero.ReadFile(s.fs, s.path(s.forecastFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot forecast.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.forecastFile, err)
	}
	return &snapshot, nil
}

func (s *FileStore) SaveForecast(snapshot forecast.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.write(s.forecastFile, data)
}

func (s *FileStore) KillRequested() (bool, error) {
	exists, err := afero.Exists(s.fs, s.path(s.killFile))
	if err != nil || !exists {
		return false, err
	}
	if err := s.fs.Remove(s.path(s.killFile)); err != nil {
		return true, err
	}
	return true, nil
}

// write replaces a file through a temporary sibling so readers never see a partial snapshot.
func (s *FileStore) write(name string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp := s.path(name + ".tmp")
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.path(name))
}

// ensure interface compliance
var _ port.SnapshotStore = (*FileStore)(nil)
