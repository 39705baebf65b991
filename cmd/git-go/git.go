package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/binarytree/git-go/env"
	"github.com/binarytree/git-go/internal/pathutil"
)

// globalFlags represents the flags shared by every subcommand
type globalFlags struct {
	// C is a simpler version of git's -C: https://git-scm.com/docs/git#Documentation/git.txt--Cltpathgt
	C pflag.Value
	// GitDir mirrors --git-dir / $GIT_DIR
	GitDir string
	// WorkTree mirrors --work-tree / $GIT_WORK_TREE
	WorkTree string
	// Bare mirrors --bare
	Bare bool

	env *env.Env
}

func newRootCmd(cwd string, e *env.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "git-go",
		Short:         "git implementation in pure Go",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cfg := &globalFlags{
		env: e,
	}
	cfg.C = pathutil.NewDirPathFlagWithDefault(cwd)
	cmd.PersistentFlags().VarS(cfg.C, "C", "C", "Run as if git was started in the provided path instead of the current working directory.")
	cmd.PersistentFlags().StringVar(&cfg.GitDir, "git-dir", "", "Set the path to the repository database, overriding $GIT_DIR.")
	cmd.PersistentFlags().StringVar(&cfg.WorkTree, "work-tree", "", "Set the path to the working tree, overriding $GIT_WORK_TREE.")
	cmd.PersistentFlags().BoolVar(&cfg.Bare, "bare", false, "Treat the repository as bare, ignoring any working tree.")

	// porcelain
	cmd.AddCommand(newInitCmd(cfg))

	// plumbing
	cmd.AddCommand(newCatFileCmd(cfg))
	cmd.AddCommand(newHashObjectCmd(cfg))
	cmd.AddCommand(newLsTreeCmd(cfg))
	cmd.AddCommand(newWriteTreeCmd(cfg))
	cmd.AddCommand(newCommitTreeCmd(cfg))

	// network
	cmd.AddCommand(newCloneCmd(cfg))

	return cmd
}
