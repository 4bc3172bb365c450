package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	var configFlag string
	ctx := newCommandContext(&configFlag)
	cmd := newRootCommand(ctx, &configFlag)

	err := cmd.Execute()
	ctx.close()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
