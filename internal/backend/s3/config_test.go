package s3

import "testing"

func TestParseConfigDefaultEndpoint(t *testing.T) {
	cfg, err := ParseConfig("s3://my-bucket/logs/run1")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	want := Config{Endpoint: "", Bucket: "my-bucket", Prefix: "logs/run1", UseHTTP: false}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestParseConfigDefaultEndpointNoPrefix(t *testing.T) {
	cfg, err := ParseConfig("s3://my-bucket")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	want := Config{Endpoint: "", Bucket: "my-bucket", Prefix: "", UseHTTP: false}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestParseConfigExplicitHTTPEndpoint(t *testing.T) {
	cfg, err := ParseConfig("s3:http://minio.local:9000/my-bucket/logs")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	want := Config{Endpoint: "minio.local:9000", Bucket: "my-bucket", Prefix: "logs", UseHTTP: true}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestParseConfigExplicitHTTPSEndpoint(t *testing.T) {
	cfg, err := ParseConfig("s3:https://minio.local/my-bucket")
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	want := Config{Endpoint: "minio.local", Bucket: "my-bucket", Prefix: "", UseHTTP: false}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestParseConfigRejectsMissingBucket(t *testing.T) {
	for _, s := range []string{"s3://", "s3:http://host/", "not-s3://bucket"} {
		if _, err := ParseConfig(s); err == nil {
			t.Fatalf("ParseConfig(%q): expected an error", s)
		}
	}
}

func TestContentTypeBySuffix(t *testing.T) {
	cases := map[string]string{
		"viewer.html": "text/html",
		"log.chunks":  "text/plain",
		"log.0-6":     "text/plain",
		"log":         "text/plain",
	}
	for name, want := range cases {
		if got := contentType(name); got != want {
			t.Fatalf("contentType(%q) = %q, want %q", name, got, want)
		}
	}
}
