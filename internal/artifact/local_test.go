package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kebairia/reseed/internal/config"
)

func TestLocalSource_AcquireReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.sql")
	payload := []byte("CREATE TABLE t (id int);\n")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}

	src := &LocalSource{Path: path}
	stream, err := src.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	defer stream.Close()

	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch: %q", got)
	}
}

func TestLocalSource_AcquireMissingFile(t *testing.T) {
	src := &LocalSource{Path: filepath.Join(t.TempDir(), "absent.sql")}
	if _, err := src.Acquire(context.Background()); err == nil {
		t.Fatal("expected an error for a missing artifact")
	}
}

func TestLocalSource_Identifier(t *testing.T) {
	src := &LocalSource{Path: "/var/backups/app.sql"}
	if src.Identifier() != "local:/var/backups/app.sql" {
		t.Fatalf("unexpected identifier %q", src.Identifier())
	}
}

func TestNewSourceFromConfig_DefaultsToLocal(t *testing.T) {
	src, err := NewSourceFromConfig(config.ArtifactConfig{
		Local: config.LocalArtifact{Path: "/var/backups/app.sql"},
	})
	if err != nil {
		t.Fatalf("NewSourceFromConfig returned error: %v", err)
	}
	if _, ok := src.(*LocalSource); !ok {
		t.Fatalf("expected *LocalSource, got %T", src)
	}
}

func TestNewSourceFromConfig_LocalWithoutPath(t *testing.T) {
	if _, err := NewSourceFromConfig(config.ArtifactConfig{Source: "local"}); err == nil {
		t.Fatal("expected an error for a local source without a path")
	}
}

func TestNewSourceFromConfig_UnknownSource(t *testing.T) {
	_, err := NewSourceFromConfig(config.ArtifactConfig{Source: "ftp"})
	if err == nil || !strings.Contains(err.Error(), "unsupported artifact source") {
		t.Fatalf("expected unsupported source error, got %v", err)
	}
}

func TestNewSourceFromConfig_S3NeedsCredentialEnv(t *testing.T) {
	cfg := config.ArtifactConfig{
		Source: "s3",
		S3: config.S3Artifact{
			Bucket:       "backups",
			Key:          "app.sql",
			AccessKeyEnv: "RESEED_TEST_S3_ACCESS_4242",
			SecretKeyEnv: "RESEED_TEST_S3_SECRET_4242",
		},
	}
	if _, err := NewSourceFromConfig(cfg); err == nil {
		t.Fatal("expected an error when credential env vars are unset")
	}
}

func TestNewSourceFromConfig_S3BuildsClient(t *testing.T) {
	t.Setenv("RESEED_TEST_S3_ACCESS", "minio")
	t.Setenv("RESEED_TEST_S3_SECRET", "minio123")

	cfg := config.ArtifactConfig{
		Source: "s3",
		S3: config.S3Artifact{
			Endpoint:     "http://localhost:9000",
			Region:       "us-east-1",
			Bucket:       "backups",
			Prefix:       "app/",
			AccessKeyEnv: "RESEED_TEST_S3_ACCESS",
			SecretKeyEnv: "RESEED_TEST_S3_SECRET",
		},
	}
	src, err := NewSourceFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewSourceFromConfig returned error: %v", err)
	}
	s3src, ok := src.(*S3Source)
	if !ok {
		t.Fatalf("expected *S3Source, got %T", src)
	}
	if got := s3src.Identifier(); got != "s3://backups/app/ (endpoint: http://localhost:9000)" {
		t.Fatalf("unexpected identifier %q", got)
	}
}
