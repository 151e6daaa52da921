// pkg/apl/file.go
package apl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"saleorauth/pkg/metrics"
)

// FileAPL stores credential records in a single JSON file.
//
// Two on-disk shapes are read transparently: the legacy single-record shape
// (one flat AuthData object, implying exactly one tenant) and the keyed shape
// (an object mapping saleorApiUrl to records). Only the keyed shape is ever
// written; a legacy file is normalized the first time Set touches it.
//
// The read-modify-write in Set/Delete is serialized with a process-local
// mutex and the file is replaced via temp-file + rename, so readers never
// observe a torn record. Writers in other processes sharing the same file
// are NOT serialized; last writer wins.
type FileAPL struct {
	path string
	log  *zap.SugaredLogger

	mu sync.Mutex // guards read-modify-write sequences
}

func NewFileAPL(path string, log *zap.SugaredLogger) *FileAPL {
	return &FileAPL{path: path, log: log.Named("apl.file")}
}

func (f *FileAPL) Get(ctx context.Context, saleorAPIURL string) (AuthData, bool) {
	records, _, err := f.load()
	if err != nil {
		f.logReadFailure("get", err)
		return AuthData{}, false
	}
	d, ok := records[saleorAPIURL]
	return d, ok
}

func (f *FileAPL) Set(ctx context.Context, data AuthData) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, _, err := f.load()
	if err != nil {
		// Start empty: an unreadable file is treated as absent, but the
		// failure is logged before it gets overwritten.
		f.logReadFailure("set", err)
		records = map[string]AuthData{}
	}
	records[data.SaleorAPIURL] = data
	if err := f.write(records); err != nil {
		metrics.StoreOp("file", "set", false)
		return fmt.Errorf("persist auth data for %s: %w", data.SaleorAPIURL, err)
	}
	metrics.StoreOp("file", "set", true)
	f.log.Debugw("auth data saved", "saleorApiUrl", data.SaleorAPIURL)
	return nil
}

func (f *FileAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, single, err := f.load()
	if err != nil {
		// Nothing readable to delete from.
		f.logReadFailure("delete", err)
		return nil
	}
	if _, ok := records[saleorAPIURL]; !ok {
		return nil
	}
	if single {
		// Legacy single-record file matching the key: the resource itself
		// is destroyed.
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			metrics.StoreOp("file", "delete", false)
			return fmt.Errorf("remove auth file: %w", err)
		}
		metrics.StoreOp("file", "delete", true)
		f.log.Debugw("auth file removed", "saleorApiUrl", saleorAPIURL)
		return nil
	}
	delete(records, saleorAPIURL)
	// The remainder is rewritten in the keyed shape even when zero or one
	// entries remain; the store never collapses back to the legacy shape.
	if err := f.write(records); err != nil {
		metrics.StoreOp("file", "delete", false)
		return fmt.Errorf("persist auth data after delete of %s: %w", saleorAPIURL, err)
	}
	metrics.StoreOp("file", "delete", true)
	f.log.Debugw("auth data deleted", "saleorApiUrl", saleorAPIURL)
	return nil
}

func (f *FileAPL) GetAll(ctx context.Context) []AuthData {
	records, _, err := f.load()
	if err != nil {
		f.logReadFailure("getAll", err)
		return nil
	}
	out := make([]AuthData, 0, len(records))
	for _, d := range records {
		out = append(out, d)
	}
	return out
}

func (f *FileAPL) IsConfigured(ctx context.Context) bool {
	records, _, err := f.load()
	if err != nil {
		// Missing (or unreadable) file: not yet configured but configurable.
		return true
	}
	return len(records) > 0
}

// load reads the backing file and returns its records keyed by API URL,
// along with whether the on-disk shape was the legacy single-record one.
func (f *FileAPL) load() (map[string]AuthData, bool, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, false, err
	}
	// Shape is detected structurally: a top-level saleorApiUrl string field
	// means the file holds one flat record.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false, fmt.Errorf("parse auth file: %w", err)
	}
	if urlRaw, ok := probe["saleorApiUrl"]; ok {
		var url string
		if err := json.Unmarshal(urlRaw, &url); err != nil {
			return nil, false, fmt.Errorf("parse auth file: %w", err)
		}
		var d AuthData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, false, fmt.Errorf("parse auth file: %w", err)
		}
		return map[string]AuthData{url: d}, true, nil
	}
	records := make(map[string]AuthData, len(probe))
	for url, entry := range probe {
		var d AuthData
		if err := json.Unmarshal(entry, &d); err != nil {
			return nil, false, fmt.Errorf("parse auth file entry %q: %w", url, err)
		}
		records[url] = d
	}
	return records, false, nil
}

// write atomically replaces the backing file with the keyed shape.
func (f *FileAPL) write(records map[string]AuthData) error {
	buf, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".auth-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (f *FileAPL) logReadFailure(op string, err error) {
	if os.IsNotExist(err) {
		f.log.Debugw("auth file does not exist", "op", op, "path", f.path)
		return
	}
	f.log.Errorw("auth file unreadable, treating as empty", "op", op, "path", f.path, "err", err)
}
