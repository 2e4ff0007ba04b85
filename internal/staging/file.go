package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// FileSlot stages the latest reading as a JSON file. Writers replace the file
// through a rename so readers never see a half-written payload.
type FileSlot struct {
	fs          afero.Fs
	path        string
	defaultRate float64
}

var _ Slot = (*FileSlot)(nil)

func NewFileSlot(fsys afero.Fs, path string, defaultRate float64) *FileSlot {
	return &FileSlot{fs: fsys, path: path, defaultRate: defaultRate}
}

func (s *FileSlot) Path() string { return s.path }

func (s *FileSlot) Latest(_ context.Context) (domain.RawReading, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.RawReading{}, ErrNoReading
	}
	if err != nil {
		return domain.RawReading{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return domain.RawReading{}, ErrNoReading
	}
	return DecodeReading(data, s.defaultRate)
}

// Write stages r as the current reading.
func (s *FileSlot) Write(_ context.Context, r domain.RawReading) error {
	data, err := EncodeReading(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".reading-*.json")
	if err != nil {
		return fmt.Errorf("stage reading: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("stage reading: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("stage reading: %w", err)
	}
	if err := s.fs.Rename(tmp.Name(), s.path); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("publish reading: %w", err)
	}
	return nil
}
