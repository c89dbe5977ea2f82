package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"krishighor/internal/repos"
)

// ArtifactStore persists trained indexes. Load returns ErrNoArtifact when
// nothing was saved and ErrIncompatible when the saved index cannot be used.
type ArtifactStore interface {
	Load(ctx context.Context) (*Index, error)
	Save(ctx context.Context, idx *Index) error
}

func decode(b []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	if err := idx.compatible(); err != nil {
		return nil, err
	}
	return &idx, nil
}

// FileStore keeps the newest index in a single JSON file. Writes go through
// a temp file and rename so readers never see a partial artifact.
type FileStore struct {
	Path string
}

func (f *FileStore) Load(ctx context.Context) (*Index, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoArtifact
	}
	if err != nil {
		return nil, err
	}
	return decode(b)
}

func (f *FileStore) Save(ctx context.Context, idx *Index) error {
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

type indexRepo interface {
	Save(ctx context.Context, a repos.IndexArtifact) error
	Latest(ctx context.Context) (repos.IndexArtifact, bool, error)
}

// DBStore keeps versioned indexes in the catalog database.
type DBStore struct {
	Repo indexRepo
}

func (d *DBStore) Load(ctx context.Context) (*Index, error) {
	a, ok, err := d.Repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoArtifact
	}
	if a.SchemaVersion != FeatureSchema {
		return nil, fmt.Errorf("%w: stored schema %d", ErrIncompatible, a.SchemaVersion)
	}
	return decode(a.Payload)
}

func (d *DBStore) Save(ctx context.Context, idx *Index) error {
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return d.Repo.Save(ctx, repos.IndexArtifact{
		Version:       idx.Version,
		SchemaVersion: idx.Schema,
		Payload:       b,
	})
}
