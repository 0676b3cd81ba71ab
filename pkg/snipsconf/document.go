/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package snipsconf reads, mutates and atomically persists the Snips TOML
// configuration document shared by a satellite or a core.
package snipsconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Document is a parsed Snips configuration. The TOML tree is kept generic so
// sections the pairing protocol does not touch survive a rewrite unchanged.
type Document struct {
	path string
	tree map[string]interface{}
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc.path = path

	return doc, nil
}

// Parse parses TOML bytes into a Document with no backing file.
func Parse(data []byte) (*Document, error) {
	tree := make(map[string]interface{})

	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return &Document{tree: tree}, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// Bytes serializes the whole document.
func (d *Document) Bytes() ([]byte, error) {
	return toml.Marshal(d.tree)
}

// Save serializes the document and atomically replaces the file it was
// loaded from: readers see either the previous content or the new one, never
// a partial write.
func (d *Document) Save() error {
	data, err := d.Bytes()
	if err != nil {
		return fmt.Errorf("serialize snips configuration: %w", err)
	}

	return WriteFileAtomic(d.path, data)
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it and
// renames it over path. The mode of an existing file is preserved.
func WriteFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}

	tmpName := tmp.Name()
	committed := false

	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	committed = true

	return nil
}

// Has reports whether section.key exists.
func (d *Document) Has(section, key string) bool {
	table, err := d.table(section, false)
	if err != nil || table == nil {
		return false
	}

	_, ok := table[key]

	return ok
}

// String returns section.key when it holds a string.
func (d *Document) String(section, key string) (string, bool) {
	table, err := d.table(section, false)
	if err != nil || table == nil {
		return "", false
	}

	s, ok := table[key].(string)

	return s, ok
}

// SetString sets section.key, creating the section if needed.
func (d *Document) SetString(section, key, value string) error {
	table, err := d.table(section, true)
	if err != nil {
		return err
	}

	table[key] = value

	return nil
}

// Delete removes section.key if present.
func (d *Document) Delete(section, key string) {
	table, err := d.table(section, false)
	if err != nil || table == nil {
		return
	}

	delete(table, key)
}

// Strings returns section.key as a string list. found is false when the key is absent.
func (d *Document) Strings(section, key string) (values []string, found bool, err error) {
	table, err := d.table(section, false)
	if err != nil || table == nil {
		return nil, false, err
	}

	raw, ok := table[key]
	if !ok {
		return nil, false, nil
	}

	switch list := raw.(type) {
	case []string:
		return append([]string(nil), list...), true, nil
	case []interface{}:
		values = make([]string, 0, len(list))

		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, true, fmt.Errorf("%w: %s.%s[%d] is %T", ErrUnexpectedType, section, key, i, item)
			}

			values = append(values, s)
		}

		return values, true, nil
	default:
		return nil, true, fmt.Errorf("%w: %s.%s is %T, want array", ErrUnexpectedType, section, key, raw)
	}
}

// SetStrings sets section.key to a string list, creating the section if needed.
func (d *Document) SetStrings(section, key string, values []string) error {
	table, err := d.table(section, true)
	if err != nil {
		return err
	}

	table[key] = append([]string(nil), values...)

	return nil
}

// EnsureSection creates an empty section when absent and reports whether it did.
func (d *Document) EnsureSection(section string) (bool, error) {
	if _, ok := d.tree[section]; ok {
		_, err := d.table(section, false)
		return false, err
	}

	d.tree[section] = make(map[string]interface{})

	return true, nil
}

func (d *Document) table(section string, create bool) (map[string]interface{}, error) {
	raw, ok := d.tree[section]
	if !ok {
		if !create {
			return nil, nil
		}

		table := make(map[string]interface{})
		d.tree[section] = table

		return table, nil
	}

	table, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrNotATable, section, raw)
	}

	return table, nil
}
