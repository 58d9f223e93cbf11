// Package client is a reference implementation of the polling protocol
// described in spec.md §6. It is test/demo tooling, not a production
// viewer: fetch the manifest, walk chunk ranges skipping anything
// already held, fetch the tail of a straddling range plus everything
// after it, and fall back to the consolidated object once the manifest
// 404s.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

// Client fetches a single named stream from baseURL, following the
// manifest/chunk/consolidated-object protocol.
type Client struct {
	HTTP     *http.Client
	BaseURL  string
	Filename string

	held int64
}

// New returns a Client targeting {baseURL}/{filename}.
func New(baseURL, filename string) *Client {
	return &Client{
		HTTP:     http.DefaultClient,
		BaseURL:  baseURL,
		Filename: filename,
	}
}

func (c *Client) url(name string) string {
	return c.BaseURL + "/" + name
}

// PollOnce performs one iteration of the protocol: it fetches the
// manifest, walks its chunk ranges, and appends any newly available
// bytes to out. It returns done=true once the manifest has 404ed and
// the consolidated object has been fully read.
func (c *Client) PollOnce(ctx context.Context, out io.Writer) (done bool, err error) {
	sizes, ok, err := c.fetchManifest(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return c.fetchConsolidated(ctx, out)
	}

	chunkStart := int64(0)
	for _, size := range sizes {
		chunkEnd := chunkStart + int64(size)
		if c.held >= chunkEnd {
			chunkStart = chunkEnd
			continue
		}

		name := fmt.Sprintf("%s.%d-%d", c.Filename, chunkStart, chunkEnd)
		offset := c.held - chunkStart

		data, got, err := c.fetchRange(ctx, name, offset)
		if err != nil {
			return false, err
		}
		if !got {
			// The chunk vanished between the manifest fetch and
			// this fetch: the stream completed mid-iteration.
			// Break and let the caller retry the outer loop.
			return false, nil
		}

		// The manifest may have raced a later merge that extended
		// this chunk's end; never consume past what the manifest
		// promised.
		want := chunkEnd - c.held
		if int64(len(data)) > want {
			data = data[:want]
		}

		if _, err := out.Write(data); err != nil {
			return false, errors.Wrap(err, "client.PollOnce")
		}
		c.held += int64(len(data))
		chunkStart = chunkEnd
	}

	return false, nil
}

func (c *Client) fetchManifest(ctx context.Context) ([]int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(c.Filename+".chunks"), nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "client.fetchManifest")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "client.fetchManifest")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, errors.Errorf("client.fetchManifest: unexpected status %d", resp.StatusCode)
	}

	var sizes []int
	if err := json.NewDecoder(resp.Body).Decode(&sizes); err != nil {
		return nil, false, errors.Wrap(err, "client.fetchManifest: decoding manifest")
	}

	return sizes, true, nil
}

// fetchRange fetches name with a Range header starting at offset,
// degrading to discarding the leading offset bytes if the server
// answers 200 instead of 206.
func (c *Client) fetchRange(ctx context.Context, name string, offset int64) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(name), nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "client.fetchRange")
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "client.fetchRange")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, false, errors.Errorf("client.fetchRange: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "client.fetchRange")
	}

	if resp.StatusCode == http.StatusOK && offset > 0 {
		if int64(len(data)) < offset {
			data = nil
		} else {
			data = data[offset:]
		}
	}

	return data, true, nil
}

func (c *Client) fetchConsolidated(ctx context.Context, out io.Writer) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(c.Filename), nil)
	if err != nil {
		return false, errors.Wrap(err, "client.fetchConsolidated")
	}
	if c.held > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", c.held))
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "client.fetchConsolidated")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return false, errors.Errorf("client.fetchConsolidated: unexpected status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if resp.StatusCode == http.StatusOK && c.held > 0 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, errors.Wrap(err, "client.fetchConsolidated")
		}
		if int64(len(data)) < c.held {
			return true, nil
		}
		reader = bytes.NewReader(data[c.held:])
	}

	n, err := io.Copy(out, reader)
	if err != nil {
		return false, errors.Wrap(err, "client.fetchConsolidated")
	}
	c.held += n

	return true, nil
}

// Fetch repeatedly polls until the stream is complete, sleeping between
// iterations. It is the loop described in spec.md §6 step 4, intended
// for tests and the streamer-fetch CLI rather than production use.
func Fetch(ctx context.Context, out io.Writer, c *Client, sleep func(context.Context) error) error {
	for {
		done, err := c.PollOnce(ctx, out)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := sleep(ctx); err != nil {
			return err
		}
	}
}
