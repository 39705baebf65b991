package main

import (
	"fmt"
	"os"

	"github.com/binarytree/git-go/env"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	root := newRootCmd(cwd, env.NewFromOs())
	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
