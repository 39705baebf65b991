// Package git is the entry point of the library. It exposes a Repository
// type that wraps the object store and reference store of a single git
// repository, and lets callers read and write commits, trees and blobs
// without having to deal with the on-disk layout directly.
package git

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/backend"
	"github.com/binarytree/git-go/backend/fsbackend"
	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/config"
	"github.com/binarytree/git-go/ginternals/object"
	"github.com/binarytree/git-go/internal/gitpath"
)

// List of errors returned by the Repository struct
var (
	// ErrRepositoryNotExist is returned when trying to open a repository
	// that doesn't exist
	ErrRepositoryNotExist = errors.New("repository does not exist")
	// ErrRepositoryExists is returned when trying to initialize a
	// repository that already exists
	ErrRepositoryExists = errors.New("repository already exists")
)

// Repository represents a git repository.
// A Git repository is the .git/ folder inside a project. It tracks all
// changes made to the files of the project, building a history over
// time.
// https://blog.axosoft.com/learning-git-repository/
type Repository struct {
	// Config holds the resolved configuration (paths, env overrides,
	// config files) used to open or initialize this repository.
	Config *config.Config

	dotGit backend.Backend
	wt     afero.Fs
}

// InitOptions contains all the optional data used to initialize a
// repository
type InitOptions struct {
	// IsBare states whether a bare repository (one with no working
	// tree) should be created
	IsBare bool
	// InitialBranchName is the name of the branch HEAD will point to.
	// Defaults to ginternals.Master
	InitialBranchName string
	// Symlink states that cfg.GitDirPath lives outside the working tree
	// (--separate-git-dir). A small text file pointing at GitDirPath is
	// written at the conventional .git location instead of a real
	// directory.
	Symlink bool
}

// InitRepository initializes a new git repository by creating the .git
// directory in the given path, which is where almost everything that
// Git stores and manipulates is located.
// https://git-scm.com/book/en/v2/Git-Internals-Plumbing-and-Porcelain#ch10-git-internals
func InitRepository(repoPath string) (*Repository, error) {
	cfg, err := defaultConfig(repoPath, false)
	if err != nil {
		return nil, xerrors.Errorf("could not resolve config: %w", err)
	}
	return InitRepositoryWithParams(cfg, InitOptions{})
}

// InitRepositoryWithParams initializes a new git repository using an
// already resolved Config, giving callers full control over paths and
// environment overrides (typically via config.LoadConfig).
func InitRepositoryWithParams(cfg *config.Config, opts InitOptions) (*Repository, error) {
	b, err := fsbackend.NewWithFs(fsOf(cfg), cfg.GitDirPath)
	if err != nil {
		return nil, xerrors.Errorf("could not create backend: %w", err)
	}
	if err := b.Init(); err != nil {
		return nil, xerrors.Errorf("could not initialize repository: %w", err)
	}

	branch := opts.InitialBranchName
	if branch == "" {
		branch = ginternals.Master
	}
	head := ginternals.NewSymbolicReference(ginternals.Head, ginternals.LocalBranchFullName(branch))
	if err := b.WriteReferenceSafe(head); err != nil {
		if xerrors.Is(err, ginternals.ErrRefExists) {
			return nil, ErrRepositoryExists
		}
		return nil, xerrors.Errorf("could not write HEAD: %w", err)
	}

	if opts.Symlink && !opts.IsBare {
		linkPath := filepath.Join(cfg.WorkTreePath, gitpath.DotGitPath)
		content := fmt.Sprintf("gitdir: %s\n", cfg.GitDirPath)
		if err := afero.WriteFile(fsOf(cfg), linkPath, []byte(content), 0o644); err != nil {
			return nil, xerrors.Errorf("could not write git dir link: %w", err)
		}
	}

	r := &Repository{
		Config: cfg,
		dotGit: b,
	}
	if !opts.IsBare {
		r.wt = fsOf(cfg)
	}
	return r, nil
}

// OpenOptions contains all the optional data used to open a
// repository
type OpenOptions struct {
	// IsBare states whether the repository has no working tree
	IsBare bool
}

// OpenRepository loads an existing git repository and returns a
// Repository instance
func OpenRepository(repoPath string) (*Repository, error) {
	cfg, err := defaultConfig(repoPath, false)
	if err != nil {
		return nil, xerrors.Errorf("could not resolve config: %w", err)
	}
	return OpenRepositoryWithParams(cfg, OpenOptions{})
}

// OpenRepositoryWithParams loads an existing git repository using an
// already resolved Config
func OpenRepositoryWithParams(cfg *config.Config, opts OpenOptions) (*Repository, error) {
	b, err := fsbackend.NewWithFs(fsOf(cfg), cfg.GitDirPath)
	if err != nil {
		return nil, xerrors.Errorf("could not create backend: %w", err)
	}

	// since we can't check if the directory exists on disk to validate
	// if the repo exists, we instead check that HEAD resolves, since it
	// should always be there in a valid repository
	if _, err := b.Reference(ginternals.Head); err != nil {
		return nil, ErrRepositoryNotExist
	}

	r := &Repository{
		Config: cfg,
		dotGit: b,
	}
	if !opts.IsBare {
		r.wt = fsOf(cfg)
	}
	return r, nil
}

// defaultConfig builds a Config for a repository rooted at repoPath,
// skipping both the environment and the .git lookup since the caller
// already knows exactly where the repository is (or should be).
func defaultConfig(repoPath string, isBare bool) (*config.Config, error) {
	gitDirPath := repoPath
	if !isBare {
		gitDirPath = filepath.Join(repoPath, gitpath.DotGitPath)
	}
	return config.LoadConfigSkipEnv(config.LoadConfigOptions{
		WorkingDirectory: repoPath,
		GitDirPath:       gitDirPath,
		IsBare:           isBare,
		SkipGitDirLookUp: true,
	})
}

// fsOf returns the filesystem implementation held by cfg, falling back
// to the real filesystem if none was set.
func fsOf(cfg *config.Config) afero.Fs {
	if cfg.FS == nil {
		return afero.NewOsFs()
	}
	return cfg.FS
}

// IsBare returns whether the repository has no working tree
func (r *Repository) IsBare() bool {
	return r.wt == nil
}

// Close frees the resources held by the repository
func (r *Repository) Close() error {
	return r.dotGit.Close()
}

// GetReference returns the reference matching the given name.
// ErrRefNotFound is returned if the reference doesn't exist.
func (r *Repository) GetReference(name string) (*ginternals.Reference, error) {
	return r.dotGit.Reference(name)
}

// GetObject returns the object matching the given Oid
func (r *Repository) GetObject(oid ginternals.Oid) (*object.Object, error) {
	return r.dotGit.Object(oid)
}

// GetCommit returns the commit matching the given Oid
func (r *Repository) GetCommit(oid ginternals.Oid) (*object.Commit, error) {
	o, err := r.dotGit.Object(oid)
	if err != nil {
		return nil, xerrors.Errorf("could not get commit %s: %w", oid.String(), err)
	}
	return o.AsCommit()
}

// GetTree returns the tree matching the given Oid
func (r *Repository) GetTree(oid ginternals.Oid) (*object.Tree, error) {
	o, err := r.dotGit.Object(oid)
	if err != nil {
		return nil, xerrors.Errorf("could not get tree %s: %w", oid.String(), err)
	}
	return o.AsTree()
}

// NewBlob creates, persists, and returns a new Blob object
func (r *Repository) NewBlob(data []byte) (*object.Blob, error) {
	o := object.New(object.TypeBlob, data)
	if _, err := r.dotGit.WriteObject(o); err != nil {
		return nil, xerrors.Errorf("could not persist blob: %w", err)
	}
	return o.AsBlob(), nil
}

// NewDanglingCommit persists a commit pointing at tree without moving any
// reference, as `commit-tree` does: the commit is reachable only by its
// own hash until some later operation points a ref at it.
func (r *Repository) NewDanglingCommit(treeID ginternals.Oid, author object.Signature, opts *object.CommitOptions) (*object.Commit, error) {
	if opts == nil {
		opts = &object.CommitOptions{}
	}
	c := object.NewCommit(treeID, author, opts)
	if _, err := r.dotGit.WriteObject(c.ToObject()); err != nil {
		return nil, xerrors.Errorf("could not persist commit: %w", err)
	}
	return c, nil
}

// NewCommit creates a new commit pointing at tree, persists it, and
// moves the reference named refName to point at the new commit.
func (r *Repository) NewCommit(refName string, tree *object.Tree, author object.Signature, opts *object.CommitOptions) (*object.Commit, error) {
	if opts == nil {
		opts = &object.CommitOptions{}
	}
	c := object.NewCommit(tree.ID(), author, opts)
	if _, err := r.dotGit.WriteObject(c.ToObject()); err != nil {
		return nil, xerrors.Errorf("could not persist commit: %w", err)
	}

	ref := ginternals.NewReference(refName, c.ID())
	if err := r.dotGit.WriteReference(ref); err != nil {
		return nil, xerrors.Errorf("could not update reference %s: %w", refName, err)
	}
	return c, nil
}
