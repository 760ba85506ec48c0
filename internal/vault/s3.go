package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"filechk/internal/catalog"
	"filechk/internal/config"
)

// s3API is the subset of the S3 client the vault uses.
type s3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores snapshots as objects under
// <prefix>/snapshots/<catalogKey>/<name>.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3API
	uploader *manager.Uploader
}

// NewS3Vault creates a vault from config, loading AWS credentials from the
// default chain unless static keys are configured.
func NewS3Vault(cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3VaultWithClient(cfg.Name, cfg.S3Bucket, cfg.S3Prefix, client), nil
}

func newS3VaultWithClient(name, bucket, prefix string, client s3API) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (v *S3Vault) dir(catalogKey string) string {
	return path.Join(v.prefix, "snapshots", catalogKey) + "/"
}

func (v *S3Vault) PutSnapshot(catalogKey, name string, r io.Reader, size int64) error {
	if err := checkNames(catalogKey, name); err != nil {
		return err
	}

	counter := &countingReader{r: r}
	_, err := v.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.dir(catalogKey) + name),
		Body:   counter,
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	if counter.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counter.n)
	}
	return nil
}

func (v *S3Vault) GetSnapshot(catalogKey, name string, w io.Writer) error {
	if err := checkNames(catalogKey, name); err != nil {
		return err
	}

	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.dir(catalogKey) + name),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("%w: %s/%s", catalog.ErrSnapshotNotFound, catalogKey, name)
		}
		return fmt.Errorf("downloading snapshot: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	return nil
}

func (v *S3Vault) ListSnapshots(catalogKey string) ([]catalog.Snapshot, error) {
	if err := checkNames(catalogKey); err != nil {
		return nil, err
	}

	dir := v.dir(catalogKey)
	pages := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
		Prefix: aws.String(dir),
	})

	var out []catalog.Snapshot
	for pages.HasMorePages() {
		page, err := pages.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), dir)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			out = append(out, catalog.Snapshot{
				Name:      name,
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: aws.ToTime(obj.LastModified),
			})
		}
	}
	slices.SortFunc(out, func(a, b catalog.Snapshot) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup() error {
	if _, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ catalog.Vault = (*S3Vault)(nil)
