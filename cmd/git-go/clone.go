package main

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	git "github.com/binarytree/git-go"
	"github.com/binarytree/git-go/internal/errutil"
	"github.com/spf13/cobra"
)

func newCloneCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone URL [DIRECTORY]",
		Short: "Clone a repository over HTTP into a new directory",
		Args:  cobra.RangeArgs(1, 2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 2 {
			dir = args[1]
		}
		return cloneCmd(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], dir)
	}
	return cmd
}

func cloneCmd(ctx context.Context, out io.Writer, cfg *globalFlags, url, dir string) (err error) {
	if dir == "" {
		dir = defaultCloneDir(url)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.C.String(), dir)
	}

	r, err := git.Clone(ctx, url, dir)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	fmt.Fprintf(out, "Cloning into %q...\n", dir)
	return nil
}

// defaultCloneDir derives the destination directory name from url the
// same way `git clone` does: the last path segment, with a trailing
// ".git" stripped.
func defaultCloneDir(url string) string {
	name := path.Base(url)
	return strings.TrimSuffix(name, ".git")
}
