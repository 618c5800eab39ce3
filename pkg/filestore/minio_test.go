package filestore

import (
	"errors"
	"testing"

	"contactos/pkg/config"

	"github.com/minio/minio-go/v7"
)

func TestNewMinIO(t *testing.T) {
	s, err := NewMinIO(config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "contacts"})
	if err != nil {
		t.Fatalf("NewMinIO: %v", err)
	}
	if s.bucket != "contacts" {
		t.Errorf("bucket = %q", s.bucket)
	}
}

func TestIsNoSuchKey(t *testing.T) {
	notFound := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	if !isNoSuchKey(notFound) {
		t.Error("NoSuchKey not detected")
	}
	if isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}) {
		t.Error("AccessDenied treated as missing")
	}
	if isNoSuchKey(errors.New("dial tcp: refused")) {
		t.Error("plain error treated as missing")
	}
}
