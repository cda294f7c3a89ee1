package ec2

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/webctl/internal/errs"
	"github.com/google/uuid"
)

const (
	// Amazon Linux 2 x86_64 (AMI IDs are region-specific).
	DefaultImageID                         = "ami-0fad7378adf284ce0"
	DefaultInstanceType types.InstanceType = types.InstanceTypeT2Micro
)

// WebServerUserData installs and starts Apache on first boot of an Amazon
// Linux instance.
const WebServerUserData = "#!/bin/bash\n" +
	"yum update -y\n" +
	"yum install httpd -y\n" +
	"systemctl enable httpd\n" +
	"systemctl start httpd"

// LaunchSpec describes the instances to launch.
type LaunchSpec struct {
	Name           string
	Group          string
	ImageID        string
	InstanceType   types.InstanceType
	MinCount       int32
	MaxCount       int32
	KeyName        string
	SecurityGroups []string

	// WebServer attaches 'WebServerUserData' to the launch.
	WebServer bool

	// ClientToken makes the launch request idempotent. A random one is
	// generated when empty.
	ClientToken string
}

var ErrNoInstances = fmt.Errorf("encountered no error during instance " +
	"launch, but no instance was actually created")

// LaunchInput renders 'spec' into the RunInstances request that 'Create'
// submits.
func LaunchInput(spec LaunchSpec) *ec2.RunInstancesInput {
	if spec.ImageID == "" {
		spec.ImageID = DefaultImageID
	}
	if spec.InstanceType == "" {
		spec.InstanceType = DefaultInstanceType
	}
	if spec.MinCount == 0 {
		spec.MinCount = 1
	}
	if spec.MaxCount == 0 {
		spec.MaxCount = max(1, spec.MinCount)
	}
	if spec.ClientToken == "" {
		spec.ClientToken = uuid.NewString()
	}
	input := &ec2.RunInstancesInput{
		ImageId:           aws.String(spec.ImageID),
		InstanceType:      spec.InstanceType,
		MinCount:          aws.Int32(spec.MinCount),
		MaxCount:          aws.Int32(spec.MaxCount),
		TagSpecifications: tagSpecification(spec.Name, spec.Group),
		ClientToken:       aws.String(spec.ClientToken),
	}
	if spec.KeyName != "" {
		input.KeyName = aws.String(spec.KeyName)
	}
	if len(spec.SecurityGroups) > 0 {
		input.SecurityGroups = spec.SecurityGroups
	}
	if spec.WebServer {
		// The EC2 API expects user data base64-encoded.
		input.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(WebServerUserData)))
	}
	return input
}

// Create launches the instances described by 'spec'.
func (c *Client) Create(ctx context.Context, spec LaunchSpec) ([]Instance, error) {
	log := clog.FromContext(ctx)
	input := LaunchInput(spec)
	log.Debug("launching instances",
		"image", aws.ToString(input.ImageId),
		"instance_type", input.InstanceType,
		"min", aws.ToInt32(input.MinCount),
		"max", aws.ToInt32(input.MaxCount),
		"client_token", aws.ToString(input.ClientToken),
	)
	result, err := c.api.RunInstances(ctx, input)
	if err != nil {
		return nil, wrap(err, "failed to launch instances")
	}
	if len(result.Instances) == 0 {
		return nil, fmt.Errorf("%w: %w", errs.ErrProvider, ErrNoInstances)
	}
	instances := make([]Instance, 0, len(result.Instances))
	for _, inst := range result.Instances {
		instances = append(instances, instanceFrom(inst))
	}
	log.Info("launched instances", "count", len(instances), "first_id", instances[0].ID)
	return instances, nil
}
