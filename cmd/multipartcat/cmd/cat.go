package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mu "github.com/zostay/go-multipart"
	"github.com/zostay/go-multipart/config"
	muerrors "github.com/zostay/go-multipart/errors"
	"github.com/zostay/go-multipart/storage"
)

var (
	catCmd = &cobra.Command{
		Use:   "cat [file]",
		Short: "Parse a multipart/form-data body and summarize its parts",
		Args:  cobra.MaximumNArgs(1),
		Run:   Cat,
	}

	catBoundary string
	catStoreDir string
)

func init() {
	catCmd.Flags().StringVar(&catBoundary, "boundary", "", "multipart boundary")
	catCmd.Flags().StringVar(&catStoreDir, "store-dir", "", "if set, stored files are written under this directory instead of collected in memory")
}

// Cat reads a multipart/form-data body from path (or stdin) and prints
// one line per part, storing files via a storage.Engine and collecting
// text fields via the library's convenience ParseAndStore entry point.
func Cat(_ *cobra.Command, args []string) {
	if catBoundary == "" {
		_, _ = fmt.Fprintln(os.Stderr, "multipartcat: --boundary is required")
		os.Exit(1)
	}

	in := os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "multipartcat: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	cfg := config.DefaultConfig()

	var engine storage.Engine
	if catStoreDir != "" {
		disk, err := storage.NewDiskBuilder().Path(catStoreDir).Build()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "multipartcat: %v\n", err)
			os.Exit(1)
		}
		engine = disk
	} else {
		engine = storage.NewMemory()
	}

	muer, err := mu.NewMulter(cfg, engine)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "multipartcat: %v\n", err)
		os.Exit(1)
	}

	result, err := muer.ParseAndStore(context.Background(), catBoundary, in)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "multipartcat: %v\n", describeErr(err))
		os.Exit(1)
	}

	for _, f := range result.StoredFiles {
		fmt.Printf("file\tfield=%s\tname=%s\ttype=%s\tsize=%d\tkey=%s\n",
			f.FieldName, f.FileName, f.ContentType, f.Size, f.StorageKey)
	}
	for _, t := range result.TextFields {
		fmt.Printf("text\tfield=%s\tvalue=%q\n", t.Name, t.Value)
	}
}

func describeErr(err error) string {
	if pe, ok := err.(*muerrors.PolicyError); ok {
		return fmt.Sprintf("%s (%s)", pe.Error(), pe.Kind)
	}
	return err.Error()
}
