// Command streamer runs a child process and streams its combined
// stdout+stderr to an object store as a sequence of logarithmically
// chunked objects plus a manifest, per the wire contract described in
// this module's top-level spec. Argument parsing, the choice between
// local-directory and S3 targets, and the generated index.html are
// thin adapters behind the storage interface; the core chunking
// protocol lives in internal/chunked.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/allisonkarlitskaya/s3-streamer/internal/backend"
	"github.com/allisonkarlitskaya/s3-streamer/internal/backend/local"
	"github.com/allisonkarlitskaya/s3-streamer/internal/backend/retry"
	"github.com/allisonkarlitskaya/s3-streamer/internal/backend/s3"
	"github.com/allisonkarlitskaya/s3-streamer/internal/driver"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

var opts struct {
	dir            string
	remote         string
	attachmentsDir string
	filename       string
	encoding       string
}

var cmdRoot = &cobra.Command{
	Use:   "streamer -- command [args...]",
	Short: "Stream a child process's output to an object store",
	Long: `
streamer runs the given command, capturing its combined stdout and
stderr, and publishes it incrementally to a local directory or an
S3-compatible bucket as a sequence of immutable chunk objects plus a
manifest that a polling browser client can follow.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
	Args:              cobra.MinimumNArgs(1),
	RunE:              runStreamer,
}

func init() {
	flags := cmdRoot.Flags()
	flags.StringVar(&opts.dir, "dir", "", "publish to this local directory")
	flags.StringVar(&opts.remote, "s3", "", "publish to this s3://bucket[/prefix] target")
	flags.StringVar(&opts.attachmentsDir, "attachments", "", "directory shared with the child for attachments (default: a temp dir)")
	flags.StringVar(&opts.filename, "filename", "log", "base object name to publish under")
	flags.StringVar(&opts.encoding, "encoding", "", "source encoding of the child's output (default: UTF-8)")
	cmdRoot.MarkFlagsMutuallyExclusive("dir", "s3")
}

func openBackend() (backend.Backend, error) {
	switch {
	case opts.dir != "" && opts.remote != "":
		return nil, errors.Fatal("--dir and --s3 are mutually exclusive")
	case opts.dir != "":
		be, err := local.Open(opts.dir)
		if err != nil {
			return nil, err
		}
		return retry.New(be, nil), nil
	case opts.remote != "":
		cfg, err := s3.ParseConfig(opts.remote)
		if err != nil {
			return nil, err
		}
		be, err := s3.Open(cfg)
		if err != nil {
			return nil, err
		}
		return retry.New(be, nil), nil
	default:
		return nil, errors.Fatal("one of --dir or --s3 is required")
	}
}

func runStreamer(cmd *cobra.Command, args []string) error {
	be, err := openBackend()
	if err != nil {
		return err
	}

	attachmentsDir := opts.attachmentsDir
	if attachmentsDir == "" {
		dir, err := os.MkdirTemp("", "streamer-attachments-")
		if err != nil {
			return errors.Wrap(err, "runStreamer")
		}
		defer os.RemoveAll(dir)
		attachmentsDir = dir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return driver.Run(ctx, be, driver.Config{
		Command:        args,
		AttachmentsDir: attachmentsDir,
		Filename:       opts.filename,
		SourceEncoding: opts.encoding,
	})
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		if errors.IsFatal(err) {
			fmt.Fprintf(os.Stderr, "streamer: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "streamer: error: %v\n", err)
		}
		os.Exit(1)
	}
}
