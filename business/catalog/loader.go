package catalog

import (
	"context"
	"errors"
	"fmt"
	"github.com/OpenTransitTools/stopwatch/foundation/httpclient"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LoaderConfig locates the remote stop file and its local copy
type LoaderConfig struct {
	URL      string
	DataDir  string
	FileName string
	MaxAge   time.Duration
}

// Loader keeps a local copy of the remote stop file and the Catalog parsed from it
type Loader struct {
	log       *log.Logger
	client    *http.Client
	url       string
	localFile string
	maxAge    time.Duration

	mu      sync.RWMutex
	current *Catalog
	remote  *httpclient.RemoteFileInfo
}

// NewLoader builds Loader, call Refresh to load the first Catalog
func NewLoader(log *log.Logger, client *http.Client, cfg LoaderConfig) *Loader {
	fileName := cfg.FileName
	if fileName == "" {
		fileName = "CTA_STOP_XFERS.txt"
	}
	return &Loader{
		log:       log,
		client:    client,
		url:       cfg.URL,
		localFile: filepath.Join(cfg.DataDir, fileName),
		maxAge:    cfg.MaxAge,
	}
}

// Current returns the last loaded Catalog, nil before the first successful Refresh
func (l *Loader) Current() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Refresh downloads the stop file when the local copy is missing, older than MaxAge, or the remote file changed,
// then loads it. When the download fails the existing local copy is used.
// Returns the Catalog in use, err is only returned when no Catalog could be loaded.
func (l *Loader) Refresh(ctx context.Context) (*Catalog, error) {
	downloaded, err := l.downloadIfNeeded(ctx)
	if err != nil {
		l.log.Printf("unable to download stop file from %s, using local copy. error:%v", l.url, err)
	}

	current := l.Current()
	if current != nil && !downloaded {
		return current, nil
	}

	file, err := os.Open(l.localFile)
	if err != nil {
		if current != nil {
			return current, nil
		}
		return nil, fmt.Errorf("no stop file available at %s: %w", l.localFile, err)
	}
	defer func() {
		_ = file.Close()
	}()
	entries, rowErrors, err := ParseStopFile(file, filepath.Base(l.localFile))
	if err != nil {
		if current != nil {
			l.log.Printf("keeping previous stops, error:%v", err)
			return current, nil
		}
		return nil, err
	}
	if len(rowErrors) > 0 {
		l.log.Printf("skipped %d invalid rows in %s, first error:%v", len(rowErrors), l.localFile, rowErrors[0])
	}

	loaded := New(entries)
	l.mu.Lock()
	l.current = loaded
	l.mu.Unlock()
	l.log.Printf("loaded %d stop entries from %s", loaded.Len(), l.localFile)
	return loaded, nil
}

// downloadIfNeeded returns true if a new copy of the stop file was downloaded
func (l *Loader) downloadIfNeeded(ctx context.Context) (bool, error) {
	if l.url == "" {
		return false, nil
	}
	stat, err := os.Stat(l.localFile)
	localMissing := errors.Is(err, os.ErrNotExist)
	if err != nil && !localMissing {
		return false, err
	}

	if !localMissing && time.Since(stat.ModTime()) < l.maxAge {
		info, err := httpclient.GetRemoteFileInfo(ctx, l.client, l.url)
		if err != nil {
			return false, err
		}
		l.mu.Lock()
		previous := l.remote
		l.remote = &info
		l.mu.Unlock()
		if previous == nil || !info.IsDifferent(previous.ETag, previous.LastModifiedTimestamp) {
			return false, nil
		}
		l.log.Printf("stop file at %s has changed", l.url)
	}

	if err = os.MkdirAll(filepath.Dir(l.localFile), 0755); err != nil {
		return false, err
	}
	downloadedFile, err := httpclient.DownloadRemoteFile(ctx, l.client, l.localFile, l.url)
	if err != nil {
		return false, err
	}
	l.mu.Lock()
	l.remote = &downloadedFile.RemoteFileInfo
	l.mu.Unlock()
	l.log.Printf("downloaded %d bytes from %s to %s", downloadedFile.Size, l.url, l.localFile)
	return true, nil
}
