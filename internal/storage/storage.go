// Package storage keeps uploaded files (profile photos, license documents)
// on local disk or in an S3 bucket.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Storage writes an object and returns its public URL.
type Storage interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error)
	Delete(ctx context.Context, key string) error
}

type UploadRequest struct {
	Key         string
	Reader      io.Reader
	ContentType string
	Size        int64
}

type UploadResponse struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// NewKey builds a collision-free object key such as
// "profile-photos/0f6c...e1.jpg".  The extension is taken from the original
// file name and lower-cased.
func NewKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(folder, uuid.NewString()+ext)
}
