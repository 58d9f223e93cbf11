// Command streamer-fetch is a small reference client driving
// internal/client against a streamer-published base URL, for manual and
// end-to-end verification of the wire contract. It is not a production
// viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/allisonkarlitskaya/s3-streamer/internal/client"
)

func main() {
	baseURL := flag.String("url", "", "base URL the stream was published under")
	filename := flag.String("filename", "log", "base object name")
	flag.Parse()

	if *baseURL == "" {
		fmt.Fprintln(os.Stderr, "streamer-fetch: -url is required")
		os.Exit(2)
	}

	c := client.New(*baseURL, *filename)

	err := client.Fetch(context.Background(), os.Stdout, c, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamer-fetch: %v\n", err)
		os.Exit(1)
	}
}
