package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Codec serialises a cache entry for the disk tier.
type Codec[T any] interface {
	Marshal(Entry[T]) ([]byte, error)
	Unmarshal([]byte) (Entry[T], error)
}

// Disk stores one file per symbol under dir.
type Disk[T any] struct {
	dir    string
	suffix string
	codec  Codec[T]
}

// NewDisk creates a disk tier. The directory is created on first write.
func NewDisk[T any](dir, suffix string, codec Codec[T]) *Disk[T] {
	return &Disk[T]{dir: dir, suffix: suffix, codec: codec}
}

// Dir returns the directory holding the cache files.
func (d *Disk[T]) Dir() string { return d.dir }

// FileName maps a symbol to its cache file name: dots become underscores.
func FileName(symbol, suffix string) string {
	return strings.ReplaceAll(symbol, ".", "_") + suffix
}

// Path returns the file path for symbol.
func (d *Disk[T]) Path(symbol string) string {
	return filepath.Join(d.dir, FileName(symbol, d.suffix))
}

// Load reads and decodes the entry for symbol.
func (d *Disk[T]) Load(symbol string) (Entry[T], error) {
	data, err := os.ReadFile(d.Path(symbol))
	if err != nil {
		return Entry[T]{}, err
	}
	e, err := d.codec.Unmarshal(data)
	if err != nil {
		return Entry[T]{}, fmt.Errorf("decoding %s: %w", d.Path(symbol), err)
	}
	return e, nil
}

// Store encodes e and replaces the file for symbol. The write goes through a
// temp file and rename so readers never observe a partial payload.
func (d *Disk[T]) Store(symbol string, e Entry[T]) error {
	data, err := d.codec.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", symbol, err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), d.Path(symbol)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
