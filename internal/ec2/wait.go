package ec2

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/webctl/internal/errs"
)

var errNotFound = fmt.Errorf("%w: no such instance", errs.ErrNotFound)

// WaitRunning blocks until instance 'id' reaches the 'running' state or
// 'timeout' elapses, returning the refreshed instance.
func (c *Client) WaitRunning(ctx context.Context, id string, timeout time.Duration) (Instance, error) {
	log := clog.FromContext(ctx)
	log.Info("waiting for instance to enter running state", "id", id)
	waiter := ec2.NewInstanceRunningWaiter(c.api)
	out, err := waiter.WaitForOutput(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	}, timeout)
	if err != nil {
		return Instance{}, wrap(err, "waiting for running state")
	}
	if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
		return Instance{}, fmt.Errorf("%w: instance %s not found in waiter output", errNotFound, id)
	}
	inst := instanceFrom(out.Reservations[0].Instances[0])
	log.Info("instance running", "id", inst.ID, "address", inst.Address())
	return inst, nil
}
