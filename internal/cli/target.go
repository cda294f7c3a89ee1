package cli

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/webctl/internal/ec2"
	"github.com/chainguard-dev/webctl/internal/errs"
	"github.com/chainguard-dev/webctl/internal/remote"
	"github.com/spf13/cobra"
)

// targetOptions select an instance and the SSH credentials to reach it with.
type targetOptions struct {
	name    string
	id      string
	keyName string
	keyDir  string
	user    string
}

func (o *targetOptions) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.name, "name", "n", "", "Name of the instance")
	flags.StringVar(&o.id, "id", "", "ID of the instance")
	flags.StringVarP(&o.keyName, "key_name", "k", "", "Key pair name, read from <key_dir>/<key_name>.pem (default $KEYNAME, then the instance's key pair)")
	flags.StringVar(&o.keyDir, "key_dir", "", "Directory holding private keys (default $KEYDIR or ~/.ssh)")
	flags.StringVar(&o.user, "user", "", "SSH login user (default "+remote.DefaultUser+")")
	cmd.MarkFlagsMutuallyExclusive("name", "id")
	cmd.MarkFlagsOneRequired("name", "id")
}

// resolve finds the instance and opens a runner against it.
func (a *App) resolve(ctx context.Context, cmd *cobra.Command, o targetOptions) (ec2.Instance, remote.Runner, error) {
	flags := cmd.Flags()
	if !flags.Changed("key_name") {
		o.keyName = a.cfg.KeyName
	}
	if !flags.Changed("key_dir") {
		o.keyDir = a.cfg.KeyDir
	}
	if !flags.Changed("user") {
		o.user = a.cfg.User
	}

	client, err := a.ec2Client(ctx)
	if err != nil {
		return ec2.Instance{}, nil, err
	}
	inst, err := a.findInstance(ctx, client, o)
	if err != nil {
		return ec2.Instance{}, nil, err
	}
	if inst.Address() == "" {
		return ec2.Instance{}, nil, fmt.Errorf("%w: instance %s has no public address", errs.ErrNotFound, inst.ID)
	}
	if o.keyName == "" {
		o.keyName = inst.KeyName
	}

	runner, err := a.NewRunner(remote.Target{
		Host:    inst.Address(),
		User:    o.user,
		KeyDir:  o.keyDir,
		KeyName: o.keyName,
	})
	if err != nil {
		return ec2.Instance{}, nil, err
	}
	return inst, runner, nil
}

// findInstance looks the instance up by ID, or by name preferring a running
// instance when several share it.
func (a *App) findInstance(ctx context.Context, client *ec2.Client, o targetOptions) (ec2.Instance, error) {
	if o.id != "" {
		return client.Get(ctx, o.id)
	}
	instances, err := client.List(ctx, ec2.Filter{Name: o.name})
	if err != nil {
		return ec2.Instance{}, err
	}
	if len(instances) == 0 {
		return ec2.Instance{}, fmt.Errorf("%w: no instance named %q", errs.ErrNotFound, o.name)
	}
	for _, inst := range instances {
		if inst.State == types.InstanceStateNameRunning {
			return inst, nil
		}
	}
	return instances[0], nil
}

// displayName is how logs and run files refer to an instance.
func displayName(inst ec2.Instance) string {
	if inst.Name != "" {
		return inst.Name
	}
	return inst.ID
}
