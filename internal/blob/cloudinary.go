package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryConfig holds account credentials. Folder prefixes every public id.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Cloudinary uploads files through the signed upload API. Uploaded objects
// are always served from their secure URL.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cfg CloudinaryConfig) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, folder: cfg.Folder}, nil
}

func (c *Cloudinary) Name() string { return BackendCloudinary }

func (c *Cloudinary) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (Object, error) {
	if err := validKey(key); err != nil {
		return Object{}, err
	}
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID: strings.TrimSuffix(key, path.Ext(key)),
		Folder:   c.folder,
	})
	if err != nil {
		return Object{}, fmt.Errorf("cloudinary: upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return Object{}, fmt.Errorf("cloudinary: upload rejected: %s", res.Error.Message)
	}
	url := res.SecureURL
	if url == "" {
		url = res.URL
	}
	if url == "" {
		return Object{}, errors.New("cloudinary: response has no url")
	}
	return Object{Backend: BackendCloudinary, Key: key, URL: url}, nil
}

func (c *Cloudinary) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrRemoteOnly
}
