// fpdb-inspect prints the header and chunk tables of a fingerprint
// database container.
//
// Usage:
//
//	fpdb-inspect [--records N] [--verify] <container>
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/hupe1980/fpdb/blobstore"
	"github.com/hupe1980/fpdb/blobstore/resolve"
	"github.com/hupe1980/fpdb/compression"
	"github.com/hupe1980/fpdb/container"
	"github.com/hupe1980/fpdb/model"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var records int
	var verify bool

	flagSet := pflag.NewFlagSet("fpdb-inspect", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.IntVar(&records, "records", 0, "print the first N decoded records")
	flagSet.BoolVar(&verify, "verify", false, "decompress every chunk and check record counts")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: fpdb-inspect [flags] <container>\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("expected 1 argument, got %d", flagSet.NArg())
	}
	location := flagSet.Arg(0)

	c, size, err := load(ctx, location)
	if err != nil {
		return err
	}

	h := c.Header
	fmt.Fprintf(stdout, "container:    %s\n", location)
	fmt.Fprintf(stdout, "size:         %d bytes\n", size)
	fmt.Fprintf(stdout, "version:      %d\n", h.Version)
	fmt.Fprintf(stdout, "db_key:       %q\n", h.DBKey)
	fmt.Fprintf(stdout, "bit_count:    %d\n", h.BitCount)
	fmt.Fprintf(stdout, "record_count: %d\n\n", h.RecordCount)

	if err := printChunks(stdout, c); err != nil {
		return err
	}

	if !verify && records <= 0 {
		return nil
	}

	// Records decodes every stream and cross-checks them against the header.
	recs, err := c.Records()
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if verify {
		fmt.Fprintf(stdout, "\nverified %d records\n", len(recs))
	}
	if records > 0 {
		fmt.Fprintln(stdout)
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tIDENTIFIER\tSTRUCTURE\tFINGERPRINT")
		for i, rec := range recs[:min(records, len(recs))] {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, rec.Identifier, rec.CanonicalText, hex.EncodeToString(rec.Fingerprint))
		}
		return tw.Flush()
	}
	return nil
}

func load(ctx context.Context, location string) (*container.Container, int64, error) {
	store, name, err := resolve.Resolve(ctx, location)
	if err != nil {
		return nil, 0, err
	}
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", location, err)
	}
	defer blob.Close()

	c, err := container.Read(blobstore.NewReader(blob))
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", location, err)
	}
	return c, blob.Size(), nil
}

func printChunks(w io.Writer, c *container.Container) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "STREAM\tCHUNK\tCOMPRESSED\tORIGINAL\t")
	for _, kind := range model.StreamOrder {
		for i, block := range c.Blocks[kind] {
			orig, err := compression.OriginalSize(block)
			if err != nil {
				return fmt.Errorf("%s chunk %d: %w", kind, i, err)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t\n", kind, i, len(block), orig)
		}
	}
	return tw.Flush()
}
