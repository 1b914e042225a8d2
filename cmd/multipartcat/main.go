// Command multipartcat reads a multipart/form-data body and prints a
// summary of its parts, optionally storing files to a directory. It
// exists as a small demonstration of the library, not a production
// tool.
package main

import (
	"fmt"
	"os"

	"github.com/zostay/go-multipart/cmd/multipartcat/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "multipartcat: %v\n", err)
		os.Exit(1)
	}
}
