package reportstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/koustreak/DatLens/internal/errs"
)

// FSStore persists reports as files in a local directory. Intended for
// development and single-host use; production deployments use the minio
// provider.
//
// Keys map directly to file names, so path separators are rejected.
type FSStore struct {
	dir string
}

// NewFSStore creates the directory if needed and returns the store.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "create report directory", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "report directory unavailable", err)
	}
	return nil
}

func (s *FSStore) Close() error {
	return nil
}

func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "write report "+key, err)
	}
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Newf(errs.ErrKindNotFound, "no report stored under %q", key)
		}
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "read report "+key, err)
	}
	return data, nil
}

func (s *FSStore) List(ctx context.Context) ([]ReportInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "list reports", err)
	}

	infos := make([]ReportInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info := ReportInfo{Key: e.Name(), Size: -1}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
			info.StoredAt = fi.ModTime()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// path validates the key and resolves it inside the store directory.
func (s *FSStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid report key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}
