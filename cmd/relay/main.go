package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd, a := newRootCmd()
	err := cmd.Execute()
	if cerr := a.close(context.Background()); cerr != nil {
		a.logger.Warn().Err(cerr).Msg("shutdown")
	}
	if err != nil {
		// Failed requests already printed their apology.
		if !errors.Is(err, errRequestFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}
