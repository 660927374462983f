package main

import (
	"fmt"
	"os"

	"github.com/crewsight/crewsight/internal/tools/common"
)

func main() {
	// a local .env is a dev convenience; real deployments set the
	// environment directly
	if err := common.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
