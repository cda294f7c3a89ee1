package ec2

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"
	"github.com/chainguard-dev/webctl/internal/errs"
)

// API is the subset of '*ec2.Client' used by 'Client'.
type API interface {
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

var _ API = (*ec2.Client)(nil)

// Client issues instance operations against EC2.
type Client struct {
	api API
}

func New(api API) *Client {
	return &Client{api: api}
}

// wrap classifies an AWS error into one of the 'errs' categories, keeping the
// original error in the chain.
func wrap(err error, msg string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidInstanceID.NotFound", "InvalidAMIID.NotFound", "InvalidKeyPair.NotFound", "InvalidGroup.NotFound":
			return fmt.Errorf("%w: %s: %w", errs.ErrNotFound, msg, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", errs.ErrProvider, msg, err)
}
