// Package driver spawns the child process, drains its merged
// stdout+stderr non-blockingly, and drives the attachments scanner, the
// chunked uploader, and the index on a 1-second cadence, finalising the
// stream once the child has exited.
package driver

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/allisonkarlitskaya/s3-streamer/internal/attachments"
	"github.com/allisonkarlitskaya/s3-streamer/internal/backend"
	"github.com/allisonkarlitskaya/s3-streamer/internal/chunked"
	"github.com/allisonkarlitskaya/s3-streamer/internal/debug"
	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
	"github.com/allisonkarlitskaya/s3-streamer/internal/index"
)

// AttachmentsEnvVar is the name of the environment variable under which
// the child process is told the path of the shared attachments
// directory.
const AttachmentsEnvVar = "STREAMER_ATTACHMENTS_DIR"

const (
	tickInterval  = 1 * time.Second
	readBufSize   = 1 << 20 // 1 MiB
	pipeBufferCap = 1 << 20 // 1 MiB
)

// Config describes one invocation of the driver.
type Config struct {
	// Command is the child process to run: Command[0] is the
	// executable, the rest are its arguments.
	Command []string

	// AttachmentsDir is a directory shared with the child for the
	// attachments sidechannel. It is created if it does not exist.
	AttachmentsDir string

	// Filename is the base object name the uploader publishes under
	// ({filename}, {filename}.chunks, {filename}.{start}-{end}).
	Filename string

	// SourceEncoding names the child's stdout encoding, as understood
	// by textstream.New. Empty means UTF-8.
	SourceEncoding string
}

// Run spawns the child named by cfg.Command and streams its output to
// be until the child exits and a final flush has been published. It
// returns a non-zero-exit-worthy error if the child failed or the store
// refused writes.
func Run(ctx context.Context, be backend.Backend, cfg Config) error {
	if len(cfg.Command) == 0 {
		return errors.Fatal("driver.Run: empty command")
	}

	if err := os.MkdirAll(cfg.AttachmentsDir, 0755); err != nil {
		return errors.Wrap(err, "driver.Run")
	}

	ix := index.New(be)

	uploader, err := chunked.New(ctx, ix, cfg.Filename, cfg.SourceEncoding)
	if err != nil {
		return errors.Wrap(err, "driver.Run")
	}

	scanner := attachments.New(cfg.AttachmentsDir, ix)

	r, w, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, "driver.Run")
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.Stdin = nil
	cmd.Env = append(os.Environ(), AttachmentsEnvVar+"="+cfg.AttachmentsDir)

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return errors.Wrap(err, "driver.Run: starting child")
	}
	// The parent's copy of the write end must be closed so that reads
	// on r observe EOF once the child (the only remaining holder)
	// exits.
	w.Close()

	if err := setNonblock(r); err != nil {
		debug.Log("could not set pipe non-blocking: %v", err)
	}
	if err := growPipeBuffer(r, pipeBufferCap); err != nil {
		debug.Log("could not grow pipe buffer: %v", err)
	}

	waitCh := make(chan error, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		waitCh <- cmd.Wait()
		return nil
	})
	g.Go(func() error {
		return runLoop(gctx, r, waitCh, scanner, uploader, ix)
	})

	return g.Wait()
}

// runLoop implements spec.md §4.5's main loop: sleep, poll, read, scan,
// write, sync — repeating until the child has exited and one final
// pass has run.
func runLoop(ctx context.Context, r io.ReadCloser, waitCh <-chan error, scanner *attachments.Scanner, uploader *chunked.Uploader, ix *index.Indexed) error {
	defer r.Close()

	f, ok := r.(*os.File)
	if !ok {
		return errors.Fatal("driver.runLoop: pipe read end is not an *os.File")
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var waitErr error
	buf := make([]byte, readBufSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		exited := false
		select {
		case waitErr = <-waitCh:
			exited = true
		default:
		}

		n, readErr := nonblockingRead(f, buf)
		if readErr != nil {
			// Child read error is treated as end-of-stream, per
			// spec.md §7.
			debug.Log("read error, treating as end-of-stream: %v", readErr)
			exited = true
			n = 0
		}
		data := buf[:n]

		if err := scanner.Scan(ctx); err != nil {
			return errors.Wrap(err, "driver.runLoop")
		}

		if err := uploader.Write(ctx, data, exited); err != nil {
			return errors.Wrap(err, "driver.runLoop")
		}

		if err := ix.Sync(ctx); err != nil {
			return errors.Wrap(err, "driver.runLoop")
		}

		if exited {
			return exitError(waitErr)
		}
	}
}

func exitError(waitErr error) error {
	if waitErr == nil {
		return nil
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return errors.Wrapf(exitErr, "child exited with status %d", exitErr.ExitCode())
	}
	return errors.Wrap(waitErr, "child process")
}
