package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

var errRecordNotFound = errors.New("record not found")

// collection stores JSON documents of one record kind in a directory.
// Reads and writes are serialized so concurrent deliveries never observe a
// partially written file.
type collection[T any] struct {
	dir string
	mu  sync.RWMutex
}

func newCollection[T any](root, name string) *collection[T] {
	return &collection[T]{dir: path.Join(root, name)}
}

func (c *collection[T]) filePath(id string) string {
	return filepath.Clean(path.Join(c.dir, id+".json"))
}

func (c *collection[T]) get(id string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.read(id)
}

func (c *collection[T]) read(id string) (*T, error) {
	body, err := os.ReadFile(c.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errRecordNotFound
		}

		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}

	var record T

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return &record, nil
}

func (c *collection[T]) put(id string, record *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write(id, record)
}

func (c *collection[T]) write(id string, record *T) error {
	err := os.MkdirAll(c.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", c.dir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	return os.WriteFile(c.filePath(id), data, 0600)
}

// update applies fn to the stored record under the write lock.
func (c *collection[T]) update(id string, fn func(*T)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, err := c.read(id)
	if err != nil {
		return err
	}

	fn(record)

	return c.write(id, record)
}

func (c *collection[T]) remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.filePath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	return nil
}

// list returns every record accepted by keep. A missing directory is an empty collection.
func (c *collection[T]) list(keep func(*T) bool) ([]*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(c.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.dir, err)
	}

	out := make([]*T, 0, len(files))

	for _, file := range files {
		record, err := c.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			if errors.Is(err, errRecordNotFound) {
				continue
			}

			return nil, err
		}

		if keep == nil || keep(record) {
			out = append(out, record)
		}
	}

	return out, nil
}

// removeWhere deletes every record accepted by match.
func (c *collection[T]) removeWhere(match func(*T) bool, idOf func(*T) string) error {
	records, err := c.list(match)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := c.remove(idOf(record)); err != nil {
			return err
		}
	}

	return nil
}
