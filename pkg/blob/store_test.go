package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, ".webp", ExtensionFor("image/webp; charset=binary"))
	assert.Equal(t, ".png", ExtensionFor("image/png"))
	assert.Equal(t, ".png", ExtensionFor("application/octet-stream"))
}

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "http://localhost:3000/")

	url, err := s.Put(context.Background(), "results/u1/d1.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/uploads/results/u1/d1.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "results", "u1", "d1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "http://localhost")

	for _, key := range []string{"", "../etc/passwd", "a/../../b"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), 1, "image/png")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func withFakeS3(t *testing.T, putter *fakePutter) {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, _ ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return putter
	}
}

func TestS3Store_Put(t *testing.T) {
	tests := []struct {
		name    string
		cfg     S3Config
		wantURL string
	}{
		{
			name:    "PublicBaseURL",
			cfg:     S3Config{Bucket: "rooms", Region: "us-east-1", PublicBaseURL: "https://cdn.example.com/"},
			wantURL: "https://cdn.example.com/results/u1/d1.png",
		},
		{
			name:    "CustomEndpoint",
			cfg:     S3Config{Bucket: "rooms", Region: "us-east-1", BaseEndpoint: "http://minio:9000"},
			wantURL: "http://minio:9000/rooms/results/u1/d1.png",
		},
		{
			name:    "AWS",
			cfg:     S3Config{Bucket: "rooms", Region: "eu-west-1"},
			wantURL: "https://rooms.s3.eu-west-1.amazonaws.com/results/u1/d1.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			putter := &fakePutter{}
			withFakeS3(t, putter)

			s, err := NewS3Store(context.Background(), tt.cfg)
			require.NoError(t, err)

			url, err := s.Put(context.Background(), "results/u1/d1.png", io.NopCloser(strings.NewReader("img")), -1, "image/png")
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
			assert.Equal(t, "rooms", aws.ToString(putter.input.Bucket))
			assert.Equal(t, "results/u1/d1.png", aws.ToString(putter.input.Key))
			assert.Equal(t, int64(3), aws.ToInt64(putter.input.ContentLength))
			assert.Equal(t, "img", putter.body)
		})
	}
}

func TestS3Store_PutError(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	withFakeS3(t, putter)

	s, err := NewS3Store(context.Background(), S3Config{Bucket: "rooms"})
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "rooms/a.png", strings.NewReader("x"), 1, "image/png")
	assert.ErrorContains(t, err, "access denied")
}

type fakeUploader struct {
	params uploader.UploadParams
	result *uploader.UploadResult
	err    error
}

func (f *fakeUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.params = params
	return f.result, f.err
}

func TestCloudinaryStore_Put(t *testing.T) {
	up := &fakeUploader{result: &uploader.UploadResult{SecureURL: "https://res.cloudinary.com/demo/image/upload/results/u1/d1.png"}}
	s := &CloudinaryStore{uploader: up}

	url, err := s.Put(context.Background(), "results/u1/d1.png", strings.NewReader("x"), 1, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/results/u1/d1.png", url)
	assert.Equal(t, "results/u1", up.params.Folder)
	assert.Equal(t, "d1", up.params.PublicID)
}

func TestCloudinaryStore_PutErrorResponse(t *testing.T) {
	up := &fakeUploader{result: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}}
	s := &CloudinaryStore{uploader: up}

	_, err := s.Put(context.Background(), "results/u1/d1.png", strings.NewReader("x"), 1, "image/png")
	assert.ErrorContains(t, err, "Invalid image file")
}
