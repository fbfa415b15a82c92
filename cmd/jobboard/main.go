// cmd/jobboard/main.go
package main

import (
	"context"
	"os"

	"jobboard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
