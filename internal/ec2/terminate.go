package ec2

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/chainguard-dev/clog"
)

// Terminate terminates a single instance.
func (c *Client) Terminate(ctx context.Context, inst Instance) error {
	_, err := c.api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{inst.ID},
	})
	if err != nil {
		return wrap(err, "failed to terminate instance "+inst.ID)
	}
	clog.FromContext(ctx).Info("terminating instance", "id", inst.ID, "name", inst.Name)
	return nil
}

// TerminateAll terminates every instance in 'instances', one request each.
//
// A failure on one instance does not stop the others. 'onEach', when non-nil,
// is called once per instance after its termination request, with that
// request's error. All errors are returned joined.
func (c *Client) TerminateAll(ctx context.Context, instances []Instance, onEach func(Instance, error)) error {
	var errs error
	for _, inst := range instances {
		err := c.Terminate(ctx, inst)
		if err != nil {
			clog.FromContext(ctx).Error("failed to terminate instance", "id", inst.ID, "error", err)
			errs = errors.Join(errs, fmt.Errorf("%s: %w", inst.ID, err))
		}
		if onEach != nil {
			onEach(inst, err)
		}
	}
	return errs
}
