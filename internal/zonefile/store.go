// Package zonefile edits GeoJSON zone files on disk. Every write replaces the whole file through a
// temporary file and a rename, so readers see either the old or the new document.
package zonefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"polygonal-zones/internal/catalog"

	"github.com/paulmach/orb/geojson"
)

var (
	ErrZoneAlreadyExists   = errors.New("zone already exists")
	ErrZoneDoesNotExist    = errors.New("zone does not exist")
	ErrZoneFileNotEditable = errors.New("zone file is not editable")
)

// Store serializes writers per file. Readers of the file are never blocked.
type Store struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{locks: make(map[string]*sync.Mutex)}
}

func (s *Store) lock(path string) func() {
	key := filepath.Clean(path)

	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Read loads the FeatureCollection stored at path. A missing file reads as an empty collection.
func (s *Store) Read(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return geojson.NewFeatureCollection(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("zonefile: failed to read %s: %w", path, err)
	}

	fc, err := catalog.DecodeFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("zonefile: %s: %w", path, err)
	}
	return fc, nil
}

// Ensure creates path with an empty FeatureCollection when it does not exist yet.
func (s *Store) Ensure(path string) error {
	unlock := s.lock(path)
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("zonefile: failed to stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("zonefile: failed to create directory for %s: %w", path, err)
	}
	return s.write(path, geojson.NewFeatureCollection())
}

// Add appends a zone feature. The name must not be used by another zone of the file.
func (s *Store) Add(path string, feature []byte) error {
	f, name, err := catalog.DecodeFeature(feature)
	if err != nil {
		return fmt.Errorf("zonefile: %w", err)
	}

	return s.update(path, func(fc *geojson.FeatureCollection) error {
		if indexOf(fc, name) >= 0 {
			return fmt.Errorf("zonefile: %w: %q", ErrZoneAlreadyExists, name)
		}
		fc.Append(f)
		return nil
	})
}

// Edit replaces the zone called name with feature. The replacement is moved to the end of the file.
func (s *Store) Edit(path, name string, feature []byte) error {
	f, newName, err := catalog.DecodeFeature(feature)
	if err != nil {
		return fmt.Errorf("zonefile: %w", err)
	}

	return s.update(path, func(fc *geojson.FeatureCollection) error {
		idx := indexOf(fc, name)
		if idx < 0 {
			return fmt.Errorf("zonefile: %w: %q", ErrZoneDoesNotExist, name)
		}
		if other := indexOf(fc, newName); other >= 0 && other != idx {
			return fmt.Errorf("zonefile: %w: %q", ErrZoneAlreadyExists, newName)
		}

		fc.Features = append(fc.Features[:idx], fc.Features[idx+1:]...)
		fc.Append(f)
		return nil
	})
}

// Delete removes the zone called name.
func (s *Store) Delete(path, name string) error {
	return s.update(path, func(fc *geojson.FeatureCollection) error {
		idx := indexOf(fc, name)
		if idx < 0 {
			return fmt.Errorf("zonefile: %w: %q", ErrZoneDoesNotExist, name)
		}

		fc.Features = append(fc.Features[:idx], fc.Features[idx+1:]...)
		return nil
	})
}

// Replace overwrites the file with document, which must be a valid zone FeatureCollection.
func (s *Store) Replace(path string, document []byte) error {
	if _, err := catalog.Parse(document, 0); err != nil {
		return fmt.Errorf("zonefile: %w", err)
	}
	fc, err := catalog.DecodeFeatureCollection(document)
	if err != nil {
		return fmt.Errorf("zonefile: %w", err)
	}

	unlock := s.lock(path)
	defer unlock()

	return s.write(path, fc)
}

func (s *Store) update(path string, apply func(fc *geojson.FeatureCollection) error) error {
	unlock := s.lock(path)
	defer unlock()

	fc, err := s.Read(path)
	if err != nil {
		return err
	}
	if err := apply(fc); err != nil {
		return err
	}
	return s.write(path, fc)
}

func (s *Store) write(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("zonefile: failed to encode %s: %w", path, err)
	}
	return WriteAtomic(path, data)
}

func indexOf(fc *geojson.FeatureCollection, name string) int {
	for i, f := range fc.Features {
		if catalog.FeatureName(f) == name {
			return i
		}
	}
	return -1
}

// WriteAtomic writes data to a temporary file next to path and renames it over path.
func WriteAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("zonefile: failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("zonefile: failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("zonefile: failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("zonefile: failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("zonefile: failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("zonefile: failed to replace %s: %w", path, err)
	}
	return nil
}
