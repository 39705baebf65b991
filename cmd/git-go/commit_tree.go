package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/binarytree/git-go/internal/errutil"

	git "github.com/binarytree/git-go"
	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/object"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

// defaultAuthorName and defaultAuthorEmail are used when neither the
// environment nor the repository's config files carry a user identity.
const (
	defaultAuthorName  = "Git Go"
	defaultAuthorEmail = "gitgo@example.com"
)

var errEmptyMessage = errors.New("commit message cannot be empty")

func newCommitTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-tree TREE",
		Short: "Create a new commit object",
		Args:  cobra.ExactArgs(1),
	}

	parent := cmd.Flags().StringP("parent", "p", "", "ID of a parent commit object")
	message := cmd.Flags().StringP("message", "m", "", "Commit message")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return commitTreeCmd(cmd.OutOrStdout(), cfg, args[0], *parent, *message)
	}
	return cmd
}

func commitTreeCmd(out io.Writer, cfg *globalFlags, treeHash, parentHash, message string) (err error) {
	if message == "" {
		return errEmptyMessage
	}

	treeID, err := ginternals.NewOidFromStr(treeHash)
	if err != nil {
		return xerrors.Errorf("invalid tree %s: %w", treeHash, err)
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	if _, err := r.GetTree(treeID); err != nil {
		return xerrors.Errorf("invalid tree %s: %w", treeHash, err)
	}

	opts := &object.CommitOptions{Message: message}
	if parentHash != "" {
		parentID, err := ginternals.NewOidFromStr(parentHash)
		if err != nil {
			return xerrors.Errorf("invalid parent %s: %w", parentHash, err)
		}
		opts.ParentsID = []ginternals.Oid{parentID}
	}

	author := authorIdentity(cfg, r)
	c, err := r.NewDanglingCommit(treeID, author, opts)
	if err != nil {
		return xerrors.Errorf("could not persist commit: %w", err)
	}

	fmt.Fprintln(out, c.ID().String())
	return nil
}

// authorIdentity resolves the committer identity used to sign new
// commits: the environment takes precedence over the repository's config
// files, which take precedence over a hardcoded fallback.
func authorIdentity(cfg *globalFlags, r *git.Repository) object.Signature {
	if name, email := cfg.env.Get("GIT_AUTHOR_NAME"), cfg.env.Get("GIT_AUTHOR_EMAIL"); name != "" && email != "" {
		return object.NewSignature(name, email)
	}
	if name, email, ok := r.Config.UserIdentity(); ok {
		return object.NewSignature(name, email)
	}
	return object.NewSignature(defaultAuthorName, defaultAuthorEmail)
}
