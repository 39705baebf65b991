// Package fsbackend contains an implementation of the backend.Backend
// interface for the filesystem
package fsbackend

import (
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/backend"
	"github.com/binarytree/git-go/internal/cache"
	"github.com/binarytree/git-go/internal/gitpath"
)

// we make sure the struct implements the interface
var _ backend.Backend = (*Backend)(nil)

// defaultCacheSize is the amount of objects kept in the in-memory read
// cache. The store is single-threaded (there is never a second goroutine
// to race against), so the cache needs no locking.
const defaultCacheSize = 256

// Backend is a Backend implementation that uses the filesystem to store data
type Backend struct {
	root  string
	fs    afero.Fs
	cache *cache.LRU
}

// New returns a new Backend rooted at dotGitPath, backed by the real
// filesystem
func New(dotGitPath string) (*Backend, error) {
	return NewWithFs(afero.NewOsFs(), dotGitPath)
}

// NewWithFs returns a new Backend rooted at dotGitPath, using the given
// afero.Fs. Tests typically pass afero.NewMemMapFs().
func NewWithFs(fs afero.Fs, dotGitPath string) (*Backend, error) {
	c, err := cache.NewLRU(defaultCacheSize)
	if err != nil {
		return nil, xerrors.Errorf("could not create object cache: %w", err)
	}
	return &Backend{
		root:  dotGitPath,
		fs:    fs,
		cache: c,
	}, nil
}

// Close free the resources held by the backend
func (b *Backend) Close() error {
	return nil
}

// Init initializes a repository
func (b *Backend) Init() error {
	// Create the directories
	dirs := []string{
		gitpath.ObjectsPath,
		gitpath.RefsTagsPath,
		gitpath.RefsHeadsPath,
		gitpath.ObjectsInfoPath,
		gitpath.ObjectsPackPath,
	}
	for _, d := range dirs {
		fullPath := filepath.Join(b.root, d)
		if err := b.fs.MkdirAll(fullPath, 0o750); err != nil {
			return xerrors.Errorf("could not create directory %s: %w", d, err)
		}
	}

	// Create the files with the default content
	// (taken from a repo created on github)
	files := []struct {
		path    string
		content []byte
	}{
		{
			path:    gitpath.DescriptionPath,
			content: []byte("Unnamed repository; edit this file 'description' to name the repository.\n"),
		},
	}
	for _, f := range files {
		fullPath := filepath.Join(b.root, f.path)
		if err := afero.WriteFile(b.fs, fullPath, f.content, 0o644); err != nil {
			return xerrors.Errorf("could not create file %s: %w", f.path, err)
		}
	}

	if err := b.setDefaultCfg(); err != nil {
		return xerrors.Errorf("could not set the default config: %w", err)
	}

	return nil
}
