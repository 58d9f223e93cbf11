package s3

import (
	"net/url"
	"strings"

	"github.com/allisonkarlitskaya/s3-streamer/internal/errors"
)

// Config holds the parameters needed to open an S3 backend.
type Config struct {
	Endpoint string
	Bucket   string
	Prefix   string
	Region   string
	UseHTTP  bool

	KeyID  string
	Secret string
}

// ParseConfig parses an s3://bucket[/prefix] (default AWS endpoint) or
// s3:http://host/bucket[/prefix] / s3:https://host/bucket[/prefix]
// (explicit endpoint) specification into a Config. Credentials are read
// from the environment (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY) by the
// caller, matching the convention the rest of this module's CLI adapter
// follows.
func ParseConfig(s string) (Config, error) {
	if !strings.HasPrefix(s, "s3:") {
		return Config{}, errors.Errorf("invalid s3 backend specification %q", s)
	}
	rest := strings.TrimPrefix(s, "s3:")

	var endpoint, path string
	useHTTP := false

	switch {
	case strings.HasPrefix(rest, "http://"):
		useHTTP = true
		u, err := url.Parse(rest)
		if err != nil {
			return Config{}, errors.Wrap(err, "s3.ParseConfig")
		}
		endpoint, path = u.Host, strings.TrimPrefix(u.Path, "/")
	case strings.HasPrefix(rest, "https://"):
		u, err := url.Parse(rest)
		if err != nil {
			return Config{}, errors.Wrap(err, "s3.ParseConfig")
		}
		endpoint, path = u.Host, strings.TrimPrefix(u.Path, "/")
	case strings.HasPrefix(rest, "//"):
		// No explicit endpoint: "s3://bucket[/prefix]".
		path = strings.TrimPrefix(rest, "//")
	default:
		return Config{}, errors.Errorf("invalid s3 backend specification %q", s)
	}

	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return Config{}, errors.Errorf("s3 backend specification %q is missing a bucket name", s)
	}

	cfg := Config{
		Endpoint: endpoint,
		Bucket:   parts[0],
		UseHTTP:  useHTTP,
	}
	if len(parts) == 2 {
		cfg.Prefix = parts[1]
	}

	return cfg, nil
}
