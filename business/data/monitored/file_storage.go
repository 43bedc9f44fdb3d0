// Package monitored saves and loads the complete list of monitored stops
package monitored

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/business/data/transit"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage keeps monitored stops in a json file
type FileStorage struct {
	log  *log.Logger
	path string
	mu   sync.Mutex
}

// NewFileStorage builds FileStorage saving to path
func NewFileStorage(log *log.Logger, path string) *FileStorage {
	return &FileStorage{
		log:  log,
		path: path,
	}
}

// LoadMonitoredStops reads the saved stops. A missing file or one that cannot be parsed holds no stops.
func (f *FileStorage) LoadMonitoredStops(_ context.Context) ([]transit.Stop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []transit.Stop{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read monitored stops from %s: %w", f.path, err)
	}
	var stops []transit.Stop
	if err = json.Unmarshal(data, &stops); err != nil {
		f.log.Printf("ignoring unreadable monitored stops file %s, error:%v", f.path, err)
		return []transit.Stop{}, nil
	}
	if stops == nil {
		stops = []transit.Stop{}
	}
	return stops, nil
}

// SaveMonitoredStops replaces the file's content with stops
func (f *FileStorage) SaveMonitoredStops(_ context.Context, stops []transit.Stop) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if stops == nil {
		stops = []transit.Stop{}
	}
	data, err := json.MarshalIndent(stops, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode monitored stops: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("unable to create directory for %s: %w", f.path, err)
	}
	temp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to save monitored stops: %w", err)
	}
	defer func() {
		_ = os.Remove(temp.Name())
	}()
	_, err = temp.Write(data)
	closeErr := temp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(temp.Name(), f.path)
	}
	if err != nil {
		return fmt.Errorf("unable to save monitored stops to %s: %w", f.path, err)
	}
	return nil
}
