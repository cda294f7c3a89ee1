package ec2

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

const (
	// These are the well-known tag keys webctl writes and reads.
	//
	// 'Name' is well-known within AWS itself (the console displays it), 'Group'
	// is our own grouping key used by 'status' and 'destroy'.
	TagKeyName  = "Name"
	TagKeyGroup = "Group"
)

// NewTag constructs a key-value tag.
func NewTag(key, value string) types.Tag {
	return types.Tag{
		Key:   aws.String(key),
		Value: aws.String(value),
	}
}

// TagValue returns the value of the first tag in 'tags' whose key is 'key'.
//
// The second return value is false if no tag matched. EC2 permits duplicate
// keys on some resource types; when that happens the first occurrence wins.
func TagValue(tags []types.Tag, key string) (string, bool) {
	for _, tag := range tags {
		if tag.Key == nil || *tag.Key != key {
			continue
		}
		return aws.ToString(tag.Value), true
	}
	return "", false
}

// TagValueOr is 'TagValue' for display purposes, returning 'fallback' when the
// key is absent.
func TagValueOr(tags []types.Tag, key, fallback string) string {
	if v, ok := TagValue(tags, key); ok {
		return v
	}
	return fallback
}

// tagSpecification produces the instance tag specification for a launch.
//
// A 'TagSpecification' is just AWS' term for metadata, defined as key-value
// pairs, associated with a particular 'types.ResourceType'. The 'Name' tag is
// emitted before 'Group', and either is omitted when empty.
func tagSpecification(name, group string) []types.TagSpecification {
	tags := make([]types.Tag, 0, 2)
	if name != "" {
		tags = append(tags, NewTag(TagKeyName, name))
	}
	if group != "" {
		tags = append(tags, NewTag(TagKeyGroup, group))
	}
	return []types.TagSpecification{
		{
			ResourceType: types.ResourceTypeInstance,
			Tags:         tags,
		},
	}
}

// tagFilter builds a server-side filter matching instances tagged 'key=value'.
func tagFilter(key, value string) types.Filter {
	return types.Filter{
		Name:   aws.String("tag:" + key),
		Values: []string{value},
	}
}
