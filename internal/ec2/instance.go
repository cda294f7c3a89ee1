package ec2

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Instance is a read-only view of an EC2 instance.
type Instance struct {
	ID            string
	Name          string
	Group         string
	State         types.InstanceStateName
	KeyName       string
	PublicDNSName string
	PublicIP      string
	LaunchTime    time.Time
	Tags          []types.Tag
}

// Address returns the best address to reach the instance on, preferring the
// public DNS name.
func (i Instance) Address() string {
	if i.PublicDNSName != "" {
		return i.PublicDNSName
	}
	return i.PublicIP
}

func instanceFrom(in types.Instance) Instance {
	out := Instance{
		ID:            aws.ToString(in.InstanceId),
		Name:          TagValueOr(in.Tags, TagKeyName, ""),
		Group:         TagValueOr(in.Tags, TagKeyGroup, ""),
		KeyName:       aws.ToString(in.KeyName),
		PublicDNSName: aws.ToString(in.PublicDnsName),
		PublicIP:      aws.ToString(in.PublicIpAddress),
		LaunchTime:    aws.ToTime(in.LaunchTime),
		Tags:          in.Tags,
	}
	if in.State != nil {
		out.State = in.State.Name
	}
	return out
}
