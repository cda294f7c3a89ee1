package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/chainguard-dev/clog"
)

// Bucket is a read-only view of an S3 bucket.
type Bucket struct {
	Name      string
	Region    string
	CreatedAt time.Time

	// Objects is the number of objects in the bucket, or -1 if it was not
	// (or could not be) counted.
	Objects int
}

// regionUSEast1 is the one region S3 rejects as an explicit location
// constraint.
const regionUSEast1 = "us-east-1"

// CreateBucket creates bucket 'name' in 'region' with the canned 'acl'.
//
// New buckets enforce bucket-owner object ownership and block public access,
// and reject ACLs while they do. A public-read bucket is therefore created
// with object-writer ownership, then has its public access block removed and
// the ACL applied in two further calls.
//
// A name collision with any existing bucket (bucket names are global) returns
// an error wrapping 'errs.ErrAlreadyExists'; every other failure, an invalid
// region included, wraps 'errs.ErrProvider'.
func (c *Client) CreateBucket(ctx context.Context, name, region string, acl ACL) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(name),
	}
	if acl == ACLPublicRead {
		input.ObjectOwnership = types.ObjectOwnershipObjectWriter
	} else {
		input.ACL = acl.bucket()
	}
	if region != "" && region != regionUSEast1 {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	_, err := c.api.CreateBucket(ctx, input, withRegion(region))
	if err != nil {
		return wrap(err, "failed to create bucket "+name)
	}
	if acl == ACLPublicRead {
		if err := c.allowPublicRead(ctx, name, region); err != nil {
			return err
		}
	}
	clog.FromContext(ctx).Info("created bucket", "bucket", name, "region", region, "acl", acl)
	return nil
}

func (c *Client) allowPublicRead(ctx context.Context, name, region string) error {
	_, err := c.api.DeletePublicAccessBlock(ctx, &s3.DeletePublicAccessBlockInput{
		Bucket: aws.String(name),
	}, withRegion(region))
	if err != nil {
		return wrap(err, "bucket "+name+" was created but its public access block could not be removed")
	}
	_, err = c.api.PutBucketAcl(ctx, &s3.PutBucketAclInput{
		Bucket: aws.String(name),
		ACL:    ACLPublicRead.bucket(),
	}, withRegion(region))
	if err != nil {
		return wrap(err, "bucket "+name+" was created but is not public")
	}
	return nil
}

// regionOf returns the region bucket 'name' lives in, or "" (the client's
// own region) when it cannot be looked up.
func (c *Client) regionOf(ctx context.Context, name string) string {
	out, err := c.api.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		clog.FromContext(ctx).Debug("failed to look up bucket region, using the client region", "bucket", name, "error", err)
		return ""
	}
	switch out.LocationConstraint {
	case "":
		return regionUSEast1
	case types.BucketLocationConstraintEu:
		return "eu-west-1"
	default:
		return string(out.LocationConstraint)
	}
}

// DeleteBucket deletes bucket 'name'.
//
// When 'forceEmpty' is set, every object in the bucket is deleted first. This
// is best effort: a failure listing the bucket, or deleting any one object, is
// recorded and the remaining objects (and finally the bucket itself) are
// still attempted. 'onObject', when non-nil, is called with every object
// deletion result. All errors encountered are returned joined.
//
// Every call goes to the bucket's own region, whatever the client's is.
func (c *Client) DeleteBucket(ctx context.Context, name string, forceEmpty bool, onObject func(key string, err error)) error {
	log := clog.FromContext(ctx)
	region := c.regionOf(ctx, name)
	var errs error
	if forceEmpty {
		errs = c.empty(ctx, name, region, onObject)
	}
	_, err := c.api.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(name),
	}, withRegion(region))
	if err != nil {
		log.Error("failed to delete bucket", "bucket", name, "error", err)
		return errors.Join(errs, wrap(err, "failed to delete bucket "+name))
	}
	log.Info("deleted bucket", "bucket", name)
	return errs
}

func (c *Client) empty(ctx context.Context, name, region string, onObject func(string, error)) error {
	log := clog.FromContext(ctx)
	var errs error
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(name),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx, withRegion(region))
		if err != nil {
			log.Error("failed to list objects, continuing with bucket delete", "bucket", name, "error", err)
			return errors.Join(errs, wrap(err, "failed to list objects in "+name))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(name),
				Key:    aws.String(key),
			}, withRegion(region))
			if err != nil {
				log.Error("failed to delete object, continuing", "bucket", name, "key", key, "error", err)
				err = wrap(err, fmt.Sprintf("failed to delete s3://%s/%s", name, key))
				errs = errors.Join(errs, err)
			} else {
				log.Debug("deleted object", "bucket", name, "key", key)
			}
			if onObject != nil {
				onObject(key, err)
			}
		}
	}
	return errs
}

// ListBuckets lists every bucket visible to the caller. When 'withCounts' is
// set each bucket's objects are counted; counting failures leave
// 'Bucket.Objects' at -1.
func (c *Client) ListBuckets(ctx context.Context, withCounts bool) ([]Bucket, error) {
	log := clog.FromContext(ctx)
	var buckets []Bucket
	paginator := s3.NewListBucketsPaginator(c.api, &s3.ListBucketsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap(err, "failed to list buckets")
		}
		for _, b := range page.Buckets {
			buckets = append(buckets, Bucket{
				Name:      aws.ToString(b.Name),
				Region:    aws.ToString(b.BucketRegion),
				CreatedAt: aws.ToTime(b.CreationDate),
				Objects:   -1,
			})
		}
	}
	if !withCounts {
		return buckets, nil
	}
	for i := range buckets {
		n, err := c.count(ctx, buckets[i].Name, buckets[i].Region)
		if err != nil {
			log.Warn("failed to count objects", "bucket", buckets[i].Name, "error", err)
			continue
		}
		buckets[i].Objects = n
	}
	return buckets, nil
}

func (c *Client) count(ctx context.Context, name, region string) (int, error) {
	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(name),
	})
	n := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx, withRegion(region))
		if err != nil {
			return -1, wrap(err, "failed to list objects in "+name)
		}
		n += len(page.Contents)
	}
	return n, nil
}

// withRegion overrides the client region for a single call, a no-op when
// 'region' is empty.
func withRegion(region string) func(*s3.Options) {
	return func(o *s3.Options) {
		if region != "" {
			o.Region = region
		}
	}
}
