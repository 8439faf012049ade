// Package storage uploads activity attachments and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/prospectroute/pkg/domain"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AttachmentKey builds a collision-free object key for a prospect attachment.
func AttachmentKey(prospectID int, fileName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("prospects/%d/%s/%s-%s", prospectID, now.UTC().Format("2006/01"), uuid.NewString()[:8], base)
}

// Config selects and configures a backend
type Config struct {
	Type          string // local or s3
	LocalPath     string
	PublicBaseURL string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
	S3Endpoint         string // optional, for S3-compatible services
}

// New returns the backend named by cfg.Type
func New(ctx context.Context, cfg Config) (domain.ObjectStorage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocal(cfg.LocalPath, cfg.PublicBaseURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
