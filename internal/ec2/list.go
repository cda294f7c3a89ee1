package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
)

// Filter selects instances. Exactly one of its fields must be set.
type Filter struct {
	Name  string
	Group string
	All   bool
}

var (
	ErrNoSelector          = fmt.Errorf("one of name, group or all must be set")
	ErrConflictingSelector = fmt.Errorf("only one of name, group or all may be set")
)

func (f Filter) validate() error {
	set := 0
	for _, ok := range []bool{f.Name != "", f.Group != "", f.All} {
		if ok {
			set++
		}
	}
	switch set {
	case 0:
		return ErrNoSelector
	case 1:
		return nil
	default:
		return ErrConflictingSelector
	}
}

func (f Filter) filters() []types.Filter {
	switch {
	case f.All:
		return nil
	case f.Group != "":
		return []types.Filter{tagFilter(TagKeyGroup, f.Group)}
	default:
		return []types.Filter{tagFilter(TagKeyName, f.Name)}
	}
}

// List returns every instance matched by 'filter', across all reservations
// and result pages.
func (c *Client) List(ctx context.Context, filter Filter) ([]Instance, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}
	log := clog.FromContext(ctx)
	paginator := ec2.NewDescribeInstancesPaginator(c.api, &ec2.DescribeInstancesInput{
		Filters: filter.filters(),
	})
	var instances []Instance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap(err, "failed to describe instances")
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, instanceFrom(inst))
			}
		}
	}
	log.Debug("listed instances", "count", len(instances), "all", filter.All, "group", filter.Group, "name", filter.Name)
	return instances, nil
}

// Get returns a single instance by ID.
func (c *Client) Get(ctx context.Context, id string) (Instance, error) {
	result, err := c.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return Instance{}, wrap(err, "failed to describe instance "+id)
	}
	for _, reservation := range result.Reservations {
		for _, inst := range reservation.Instances {
			return instanceFrom(inst), nil
		}
	}
	return Instance{}, fmt.Errorf("%w: instance %s", errNotFound, id)
}
