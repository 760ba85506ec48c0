package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"filechk/internal/catalog"
	"filechk/internal/config"
)

// fakeS3 is an in-memory bucket. Multipart uploads are not implemented;
// snapshots in tests stay below the uploader's part size.
type fakeS3 struct {
	manager.UploadAPIClient

	mu      sync.Mutex
	objects map[string][]byte
	headErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for _, k := range slices.Sorted(maps.Keys(f.objects)) {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{
				Key:          aws.String(k),
				Size:         aws.Int64(int64(len(f.objects[k]))),
				LastModified: aws.Time(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
			})
		}
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestS3Vault(t *testing.T) {
	testVaultContract(t, func(t *testing.T) catalog.Vault {
		return newS3VaultWithClient("test", "bucket", "backups", newFakeS3())
	})
}

func TestS3Vault_ObjectKeys(t *testing.T) {
	fake := newFakeS3()
	v := newS3VaultWithClient("test", "bucket", "/backups/", fake)

	if err := v.PutSnapshot("abc", "20240115T103000Z.db", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	if _, ok := fake.objects["backups/snapshots/abc/20240115T103000Z.db"]; !ok {
		t.Errorf("objects = %v, want key backups/snapshots/abc/20240115T103000Z.db", slices.Collect(maps.Keys(fake.objects)))
	}

	noPrefix := newS3VaultWithClient("test", "bucket", "", fake)
	if got := noPrefix.dir("abc"); got != "snapshots/abc/" {
		t.Errorf("dir() = %q, want snapshots/abc/", got)
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = errors.New("forbidden")
	v := newS3VaultWithClient("test", "bucket", "", fake)

	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error")
	}
}

func TestNewS3Vault_RequiresBucket(t *testing.T) {
	if _, err := NewS3Vault(config.VaultConfig{Type: "s3", Name: "x"}); err == nil {
		t.Error("NewS3Vault() expected error without bucket")
	}
}
