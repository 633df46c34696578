package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// CloudinaryStore uploads images to Cloudinary. The key's directory becomes the folder
// and its base name, without extension, the public id.
type CloudinaryStore struct {
	uploader cloudinaryUploader
}

func NewCloudinaryStore(c CloudinaryConfig) (*CloudinaryStore, error) {
	cfg, err := config.NewFromParams(c.CloudName, c.APIKey, c.APISecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &CloudinaryStore{uploader: up}, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	folder, file := path.Split(key)
	publicID := strings.TrimSuffix(file, path.Ext(file))
	overwrite := true

	result, err := s.uploader.Upload(ctx, r, uploader.UploadParams{
		Folder:    strings.TrimSuffix(folder, "/"),
		PublicID:  publicID,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload %s: %w", key, err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload %s: %w", key, errors.New(result.Error.Message))
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload %s: empty url", key)
	}
	return result.SecureURL, nil
}
