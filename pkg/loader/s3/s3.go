package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/kgchat/pkg/loader"
)

// S3API is the subset of the S3 client used by the store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3GraphFileStore keeps the CSV library in an S3 bucket under a key prefix.
// It works with any S3-compatible storage such as MinIO.
type S3GraphFileStore struct {
	bucket string
	prefix string
	client S3API

	group singleflight.Group
}

// NewS3GraphFileStoreWithClient creates a store using an existing client.
func NewS3GraphFileStoreWithClient(bucket, prefix string, client S3API) *S3GraphFileStore {
	return &S3GraphFileStore{
		bucket: bucket,
		prefix: normalizePrefix(prefix),
		client: client,
	}
}

// NewS3GraphFileStoreParams defines the configuration parameters for
// creating a new S3GraphFileStore.
//
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO). Prefix is the key prefix all CSV files live under.
type NewS3GraphFileStoreParams struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3GraphFileStore creates a new S3GraphFileStore with static credentials.
//
// Example:
//
//	store, err := s3.NewS3GraphFileStore(ctx, s3.NewS3GraphFileStoreParams{
//		Bucket:    "kgchat",
//		Prefix:    "csv",
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
func NewS3GraphFileStore(ctx context.Context, params NewS3GraphFileStoreParams) (*S3GraphFileStore, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return NewS3GraphFileStoreWithClient(params.Bucket, params.Prefix, client), nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func (s *S3GraphFileStore) key(name string) string {
	return s.prefix + name
}

// ListFiles lists the .csv objects directly under the prefix, sorted by name.
func (s *S3GraphFileStore) ListFiles(ctx context.Context) ([]loader.FileInfo, error) {
	var files []loader.FileInfo
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	}

	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", s.prefix, err)
		}

		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			rel := strings.TrimPrefix(*obj.Key, s.prefix)
			name, err := loader.CleanCSVName(rel)
			if err != nil {
				continue
			}
			info := loader.FileInfo{Name: name, Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				info.ModifiedAt = *obj.LastModified
			}
			files = append(files, info)
		}

		if out.IsTruncated != nil && *out.IsTruncated {
			input.ContinuationToken = out.NextContinuationToken
		} else {
			break
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})
	return files, nil
}

// PutFile uploads content under name, replacing any existing object.
func (s *S3GraphFileStore) PutFile(ctx context.Context, name string, content io.Reader) (loader.FileInfo, error) {
	name, err := loader.CleanCSVName(name)
	if err != nil {
		return loader.FileInfo{}, err
	}

	body, err := io.ReadAll(content)
	if err != nil {
		return loader.FileInfo{}, fmt.Errorf("failed to read upload %s: %w", name, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return loader.FileInfo{}, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return loader.FileInfo{Name: name, Size: int64(len(body)), ModifiedAt: time.Now()}, nil
}

// Open checks that the object exists and returns a GraphFile for it.
func (s *S3GraphFileStore) Open(ctx context.Context, name string) (loader.GraphFile, error) {
	name, err := loader.CleanCSVName(name)
	if err != nil {
		return loader.GraphFile{}, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return loader.GraphFile{}, mapNotFound(err, name)
	}

	return loader.NewGraphCSVFile(loader.NewGraphFileParams{
		ID:       name,
		FilePath: s.key(name),
		Loader:   s,
	}), nil
}

// GetFileText retrieves the object at file.FilePath.
func (s *S3GraphFileStore) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	result, err, _ := s.group.Do(loader.CacheKey(file), func() (any, error) {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(file.FilePath),
		})
		if err != nil {
			return nil, mapNotFound(err, path.Base(file.FilePath))
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("failed to read file contents: %w", err)
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func mapNotFound(err error, name string) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", loader.ErrFileNotFound, name)
	}
	return fmt.Errorf("failed to get file from S3: %w", err)
}
