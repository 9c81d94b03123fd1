package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"docanalyzer/internal/shared/storage/object"
	"docanalyzer/internal/shared/util"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	deletes []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = body
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(params.Key)
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/scan.pdf", want: "owner/scan.pdf"},
		{name: "trailing slash", prefix: "documents/", key: "owner/scan.pdf", want: "documents/owner/scan.pdf"},
		{name: "leading slashes", prefix: "/documents/", key: "/owner/scan.pdf", want: "documents/owner/scan.pdf"},
		{name: "empty key", prefix: "documents", key: "", want: "documents"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestSaveAndLocalPath(t *testing.T) {
	client := newFakeS3()
	store := newStore(client, Config{Bucket: "docs", Prefix: " /uploads/ "})

	key, size, mimeType, err := store.Save(context.Background(), "", "lettre.txt", strings.NewReader("Bonjour Madame"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(key, util.AnonymousOwner+"/") || !strings.HasSuffix(key, "_lettre.txt") {
		t.Fatalf("unexpected storage key %q", key)
	}
	if size != int64(len("Bonjour Madame")) || !strings.HasPrefix(mimeType, "text/plain") {
		t.Fatalf("unexpected size/mime: %d %s", size, mimeType)
	}
	put := client.puts[0]
	if aws.ToString(put.Key) != "uploads/"+key {
		t.Fatalf("expected prefixed object key, got %q", aws.ToString(put.Key))
	}
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 encryption, got %q", put.ServerSideEncryption)
	}

	path, cleanup, err := store.LocalPath(context.Background(), key)
	if err != nil {
		t.Fatalf("local path: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "Bonjour Madame" {
		t.Fatalf("unexpected local copy %q: %v", got, err)
	}
	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected cleanup to remove %s", path)
	}
}

func TestSaveUsesKMSKey(t *testing.T) {
	client := newFakeS3()
	store := newStore(client, Config{Bucket: "docs", KMSKeyID: " key-1 "})
	if _, _, _, err := store.Save(context.Background(), "user-1", "scan.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("save: %v", err)
	}
	put := client.puts[0]
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(put.SSEKMSKeyId) != "key-1" {
		t.Fatalf("expected KMS encryption, got %q %q", put.ServerSideEncryption, aws.ToString(put.SSEKMSKeyId))
	}
}

func TestLocalPathMissingObject(t *testing.T) {
	store := newStore(newFakeS3(), Config{Bucket: "docs"})
	_, cleanup, err := store.LocalPath(context.Background(), "missing/key")
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	cleanup()
}

func TestDeleteUsesPrefixedKey(t *testing.T) {
	client := newFakeS3()
	store := newStore(client, Config{Bucket: "docs", Prefix: "uploads"})
	ctx := context.Background()

	key, _, _, err := store.Save(ctx, "guest:a", "note.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(client.deletes) != 1 || client.deletes[0] != "uploads/"+key {
		t.Fatalf("unexpected deletes: %v", client.deletes)
	}
	if _, ok := client.objects["uploads/"+key]; ok {
		t.Fatalf("expected object removed")
	}
	if err := store.Delete(ctx, "../escape"); err == nil {
		t.Fatalf("expected invalid key to be rejected")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{Region: "eu-west-3", Bucket: " "}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}
