// Command series-spider advances tracked series records by finding and queueing their next installment.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
