package files

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	puts    []s3.PutObjectInput
	deletes []string
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, *params)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestStore_Upload(t *testing.T) {
	s3c := &fakeS3{}
	store := NewStore(s3c, "hilvan-images", "https://img.example.com", nil)

	key, err := store.Upload(context.Background(), "owner-1", "projects", "image/jpeg", []byte("jpegdata"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, "projects/owner-1/") || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("unexpected key %q", key)
	}
	if len(s3c.puts) != 1 {
		t.Fatalf("expected 1 put, got %d", len(s3c.puts))
	}
	if *s3c.puts[0].Bucket != "hilvan-images" {
		t.Fatalf("wrong bucket %q", *s3c.puts[0].Bucket)
	}
	if got := store.PublicURL(key); got != "https://img.example.com/"+key {
		t.Fatalf("wrong public url %q", got)
	}
}

func TestStore_UploadUnconfigured(t *testing.T) {
	store := NewStore(nil, "", "", nil)
	if store.Enabled() {
		t.Fatal("store without bucket must be disabled")
	}
	if _, err := store.Upload(context.Background(), "owner-1", "projects", "image/png", []byte("x")); err == nil {
		t.Fatal("expected error when storage is not configured")
	}
}

func TestStore_Delete(t *testing.T) {
	s3c := &fakeS3{}
	store := NewStore(s3c, "hilvan-images", "", nil)
	if err := store.Delete(context.Background(), "projects/owner-1/2026/08/x.jpg"); err != nil {
		t.Fatal(err)
	}
	if len(s3c.deletes) != 1 || s3c.deletes[0] != "projects/owner-1/2026/08/x.jpg" {
		t.Fatalf("unexpected deletes %v", s3c.deletes)
	}
}
