package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/kassett/relgraph"
)

// document is the YAML layout of a registry file:
//
//	entities:
//	  - name: User
//	    table: users
//	    relationships:
//	      - name: pets
//	        target: Pet
//	        direction: one-to-many
//	  - name: Pet
//	    relationships:
//	      - name: owner
//	        target: User
//	        direction: many-to-one
type document struct {
	Entities []*Entity `yaml:"entities"`
}

// LoadFile reads the YAML registry file at path.
func LoadFile(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s: %w", path, err)
	}
	r, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a YAML registry document. Unknown keys are rejected and
// every relationship must declare its direction.
func Parse(b []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("registry: decoding yaml: %w", err)
	}
	r := New()
	var errs []error
	for _, e := range doc.Entities {
		if err := r.Add(e); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, rel := range e.Relationships {
			if rel == nil {
				errs = append(errs, fmt.Errorf("registry: entity %s has an empty relationship", e.Name))
				continue
			}
			if rel.Rel == Unk {
				errs = append(errs, fmt.Errorf("registry: relationship %s.%s has no direction", e.Name, rel.Name))
			}
		}
	}
	if err := relgraph.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	r.fillStorage()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Encode writes the registry as a YAML document readable by Parse.
func (r *Registry) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Entities: r.entities}); err != nil {
		return fmt.Errorf("registry: encoding yaml: %w", err)
	}
	return enc.Close()
}

// watchDebounce groups the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

// Watch loads the registry file at path and calls fn with the result, then
// again each time the file changes. Blocks until ctx is cancelled.
//
// The parent directory is watched instead of the file, so editors that
// save by renaming a temporary file are still observed.
func Watch(ctx context.Context, path string, fn func(*Registry, error)) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry: creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("registry: watching %s: %w", path, err)
	}
	fn(LoadFile(path))

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("registry: watching %s: %w", path, err))
		case <-timer.C:
			fn(LoadFile(path))
		}
	}
}
