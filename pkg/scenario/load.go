package scenario

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultCatalog []byte

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	c, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in catalog: %w", err)
	}
	return c, nil
}

// Parse decodes a YAML catalog. Unknown fields are rejected and an empty
// document yields an empty catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads and decodes one catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return c, nil
}

// LoadDir returns the built-in catalog extended with every *.yaml or *.yml
// file in dir. Templates from files replace built-in templates of the same
// name. A missing dir is not an error; unreadable files are skipped.
func LoadDir(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return c, nil
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
			return nil
		}

		extra, err := LoadFile(path)
		if err != nil {
			logger.Warn("Skipping catalog file", "path", path, "error", err)
			return nil
		}
		c.Merge(extra)
		logger.Debug("Loaded catalog file",
			"path", path,
			"classes", len(extra.Classes),
			"rooms", len(extra.Rooms))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog dir: %w", err)
	}
	return c, nil
}

// Merge adds other's templates to c, replacing same-named ones.
func (c *Catalog) Merge(other *Catalog) {
	if other == nil {
		return
	}
	for _, cls := range other.Classes {
		i := slices.IndexFunc(c.Classes, func(x ClassTemplate) bool {
			return actor.NameKey(x.Name) == actor.NameKey(cls.Name)
		})
		if i >= 0 {
			c.Classes[i] = cls
		} else {
			c.Classes = append(c.Classes, cls)
		}
	}
	for _, room := range other.Rooms {
		i := slices.IndexFunc(c.Rooms, func(x RoomTemplate) bool {
			return actor.NameKey(x.Name) == actor.NameKey(room.Name)
		})
		if i >= 0 {
			c.Rooms[i] = room
		} else {
			c.Rooms = append(c.Rooms, room)
		}
	}
	names := actor.NewNameSet(c.Names)
	for _, n := range other.Names {
		if !names.Has(n) {
			c.Names = append(c.Names, n)
			names[actor.NameKey(n)] = struct{}{}
		}
	}
}

// Class finds a class template by name, ignoring case.
func (c *Catalog) Class(name string) (ClassTemplate, bool) {
	key := actor.NameKey(name)
	for _, cls := range c.Classes {
		if actor.NameKey(cls.Name) == key {
			return cls, true
		}
	}
	return ClassTemplate{}, false
}
