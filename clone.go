package git

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/checkout"
	"github.com/binarytree/git-go/internal/packfile"
	"github.com/binarytree/git-go/transport"
)

// CloneOptions contains all the optional data used to clone a repository.
type CloneOptions struct {
	// Client overrides the transport.Client used to reach the
	// remote. Defaults to transport.New(url).
	Client *transport.Client
}

// Clone discovers url's default branch, fetches the pack realizing it,
// resolves and persists every object the pack contains, and materializes
// the resulting commit's tree into a new working directory at dest.
func Clone(ctx context.Context, url, dest string) (*Repository, error) {
	return CloneWithParams(ctx, url, dest, CloneOptions{})
}

// CloneWithParams behaves like Clone but lets the caller override the
// transport client, primarily for testing against a local HTTP server.
func CloneWithParams(ctx context.Context, url, dest string, opts CloneOptions) (*Repository, error) {
	client := opts.Client
	if client == nil {
		client = transport.New(url)
	}

	hash, err := client.DiscoverRef(ctx)
	if err != nil {
		return nil, xerrors.Errorf("could not discover default branch: %w", err)
	}
	commitHash, err := ginternals.NewOidFromStr(hash)
	if err != nil {
		return nil, xerrors.Errorf("remote advertised an invalid commit hash: %w", err)
	}

	packBody, err := client.FetchPack(ctx, hash)
	if err != nil {
		return nil, xerrors.Errorf("could not fetch pack: %w", err)
	}
	records, err := packfile.Parse(packBody)
	if err != nil {
		return nil, xerrors.Errorf("could not parse pack: %w", err)
	}

	r, err := InitRepository(dest)
	if err != nil {
		return nil, xerrors.Errorf("could not initialize destination repository: %w", err)
	}

	if err := packfile.Unpack(r.dotGit, records); err != nil {
		return nil, xerrors.Errorf("could not resolve pack objects: %w", err)
	}

	head := ginternals.NewReference(ginternals.LocalBranchFullName(ginternals.Master), commitHash)
	if err := r.dotGit.WriteReference(head); err != nil {
		return nil, xerrors.Errorf("could not update %s: %w", ginternals.Master, err)
	}

	if !r.IsBare() {
		if err := checkout.Commit(r.wt, r.dotGit, commitHash, r.Config.WorkTreePath); err != nil {
			return nil, xerrors.Errorf("could not checkout %s: %w", commitHash.String(), err)
		}
	}

	return r, nil
}
