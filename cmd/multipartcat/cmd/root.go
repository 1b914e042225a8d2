// Package cmd holds the multipartcat CLI's cobra command tree.
package cmd

import "github.com/spf13/cobra"

// RootCmd is the multipartcat entry point.
var RootCmd = &cobra.Command{
	Use:   "multipartcat",
	Short: "Parse a multipart/form-data body and summarize its parts",
}

func init() {
	RootCmd.AddCommand(catCmd)
}
