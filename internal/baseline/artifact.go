package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// ErrArtifactNotFound is returned when no model has been persisted yet.
var ErrArtifactNotFound = errors.New("model artifact not found")

// Artifact is the persisted form of an IsolationForest.
type Artifact struct {
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	Features      []string  `json:"features"`
	Contamination float64   `json:"contamination"`
	SampleSize    int       `json:"sample_size"`
	Offset        float64   `json:"offset"`
	Trees         []*Node   `json:"trees"`
}

// Encode serialises a forest together with its feature ordering.
func Encode(f *IsolationForest) ([]byte, error) {
	a := Artifact{
		Name:          f.Name,
		Version:       f.Version,
		CreatedAt:     f.CreatedAt,
		Features:      f.Features(),
		Contamination: f.Contamination,
		SampleSize:    f.SampleSize,
		Offset:        f.Offset,
		Trees:         f.Trees,
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

// Decode rebuilds a forest from an encoded artifact.
func Decode(data []byte) (*IsolationForest, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := validateFeatures(a.Features); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("decode artifact: no trees")
	}
	for i, t := range a.Trees {
		if err := checkTree(t, len(a.Features)); err != nil {
			return nil, fmt.Errorf("decode artifact: tree %d: %w", i, err)
		}
	}
	return &IsolationForest{
		Name:          a.Name,
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		Contamination: a.Contamination,
		SampleSize:    a.SampleSize,
		Offset:        a.Offset,
		Trees:         a.Trees,
		features:      a.Features,
	}, nil
}

func checkTree(n *Node, dims int) error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	if n.Left == nil && n.Right == nil {
		return nil
	}
	if n.Left == nil || n.Right == nil {
		return fmt.Errorf("split with one child")
	}
	if n.Feature < 0 || n.Feature >= dims {
		return fmt.Errorf("feature index %d out of range", n.Feature)
	}
	if err := checkTree(n.Left, dims); err != nil {
		return err
	}
	return checkTree(n.Right, dims)
}

// ArtifactStore persists and retrieves trained models.
type ArtifactStore interface {
	Save(ctx context.Context, f *IsolationForest) error
	Load(ctx context.Context) (*IsolationForest, error)
}

// FileStore keeps the model artifact at a path on a filesystem.
type FileStore struct {
	fs   afero.Fs
	path string
}

var _ ArtifactStore = (*FileStore)(nil)

func NewFileStore(fsys afero.Fs, path string) *FileStore {
	return &FileStore{fs: fsys, path: path}
}

// Save writes the artifact to a temp file and renames it into place so a
// concurrent loader never sees a partial file.
func (s *FileStore) Save(_ context.Context, f *IsolationForest) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := afero.TempFile(s.fs, dir, ".model-*")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmp.Name())
		return fmt.Errorf("close model: %w", err)
	}
	if err := s.fs.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("install model: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (*IsolationForest, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrArtifactNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return Decode(data)
}
