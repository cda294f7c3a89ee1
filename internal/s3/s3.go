// s3 wraps the subset of the AWS S3 API used by webctl: creating, listing and
// deleting buckets and uploading single objects.
//
// NOTE: ALL errors returned by this package wrap one of the 'internal/errs'
// categories.
package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/chainguard-dev/webctl/internal/errs"
)

// API is the subset of '*s3.Client' used by 'Client'.
type API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeletePublicAccessBlock(ctx context.Context, params *s3.DeletePublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.DeletePublicAccessBlockOutput, error)
	PutBucketAcl(ctx context.Context, params *s3.PutBucketAclInput, optFns ...func(*s3.Options)) (*s3.PutBucketAclOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ API = (*s3.Client)(nil)

// Client issues bucket and object operations against S3.
type Client struct {
	api API
}

func New(api API) *Client {
	return &Client{api: api}
}

// ACL is the canned access-control mode applied to buckets and objects.
type ACL string

const (
	ACLPrivate    ACL = "private"
	ACLPublicRead ACL = "public-read"
)

// ACLFor returns 'ACLPublicRead' when 'public' is set, 'ACLPrivate' otherwise.
func ACLFor(public bool) ACL {
	if public {
		return ACLPublicRead
	}
	return ACLPrivate
}

func (a ACL) bucket() types.BucketCannedACL {
	return types.BucketCannedACL(a)
}

func (a ACL) object() types.ObjectCannedACL {
	return types.ObjectCannedACL(a)
}

// wrap classifies an S3 error into one of the 'errs' categories, keeping the
// original error in the chain.
func wrap(err error, msg string) error {
	var (
		exists   *types.BucketAlreadyExists
		owned    *types.BucketAlreadyOwnedByYou
		noBucket *types.NoSuchBucket
		noKey    *types.NoSuchKey
	)
	switch {
	case errors.As(err, &exists):
		return fmt.Errorf("%w: %s: bucket name is already taken: %w", errs.ErrAlreadyExists, msg, err)
	case errors.As(err, &owned):
		return fmt.Errorf("%w: %s: bucket is already owned by you: %w", errs.ErrAlreadyExists, msg, err)
	case errors.As(err, &noBucket), errors.As(err, &noKey):
		return fmt.Errorf("%w: %s: %w", errs.ErrNotFound, msg, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket" {
		return fmt.Errorf("%w: %s: %w", errs.ErrNotFound, msg, err)
	}
	return fmt.Errorf("%w: %s: %w", errs.ErrProvider, msg, err)
}
