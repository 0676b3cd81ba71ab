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

// Package backup keeps a one-time snapshot of the Snips configuration taken
// before the first pairing mutation.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/carverauto/satconnect/pkg/logger"
	"github.com/carverauto/satconnect/pkg/snipsconf"
)

var (
	// ErrNoBackup is returned by Restore when no snapshot was ever taken.
	ErrNoBackup = errors.New("no configuration backup available")
)

// Store manages the snapshot of one live configuration file.
type Store struct {
	source string
	path   string
	logger logger.Logger
}

// NewStore returns a Store snapshotting source into path.
func NewStore(source, path string, log logger.Logger) *Store {
	return &Store{source: source, path: path, logger: log}
}

// Path returns the snapshot location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a snapshot is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)

	return err == nil && info.Mode().IsRegular()
}

// Ensure copies the live configuration to the snapshot location unless a
// snapshot already exists. An existing snapshot is authoritative and is never
// overwritten.
func (s *Store) Ensure() (created bool, err error) {
	if s.Exists() {
		s.logger.Info().Str("path", s.path).Msg("Backup already available")
		return false, nil
	}

	data, err := os.ReadFile(s.source)
	if errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: %s", snipsconf.ErrConfigNotFound, s.source)
	}

	if err != nil {
		return false, fmt.Errorf("read %s: %w", s.source, err)
	}

	s.logger.Info().Str("path", s.path).Msg("Creating configuration backup")

	if err := snipsconf.WriteFileAtomic(s.path, data); err != nil {
		return false, fmt.Errorf("write backup: %w", err)
	}

	s.logger.Info().Msg("Backup made")

	return true, nil
}

// Discard deletes the snapshot so the next Ensure takes a fresh one.
func (s *Store) Discard() (removed bool, err error) {
	err = os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("remove backup %s: %w", s.path, err)
	}

	s.logger.Info().Str("path", s.path).Msg("Backup flagged for deletion, deleted")

	return true, nil
}

// Restore copies the snapshot back over the live configuration. The snapshot
// itself is kept.
func (s *Store) Restore() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoBackup, s.path)
	}

	if err != nil {
		return fmt.Errorf("read backup %s: %w", s.path, err)
	}

	if err := snipsconf.WriteFileAtomic(s.source, data); err != nil {
		return fmt.Errorf("restore %s: %w", s.source, err)
	}

	s.logger.Info().Str("path", s.source).Msg("Backup restored")

	return nil
}
