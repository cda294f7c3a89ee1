package cli

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/webctl/internal/ec2"
	"github.com/chainguard-dev/webctl/internal/o11y"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

type createOptions struct {
	name           string
	group          string
	maxCount       int32
	minCount       int32
	keyName        string
	securityGroups []string
	image          string
	instanceType   string
	noWebServer    bool
	wait           bool
	waitTimeout    time.Duration
}

func (a *App) createCmd() *cobra.Command {
	var opts createOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an EC2 instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := o11y.Start(cmd.Context(), "create",
				attribute.String(o11y.AttrName, opts.name))
			defer func() { o11y.End(span, err) }()

			flags := cmd.Flags()
			if !flags.Changed("group") {
				opts.group = a.cfg.Group
			}
			if !flags.Changed("key_name") {
				opts.keyName = a.cfg.KeyName
			}
			if !flags.Changed("security_group") {
				opts.securityGroups = a.cfg.SecurityGroups
			}
			if !flags.Changed("image") {
				opts.image = a.cfg.ImageID
			}
			if !flags.Changed("instance_type") {
				opts.instanceType = a.cfg.InstanceType
			}
			if opts.minCount < 1 || opts.maxCount < opts.minCount {
				return fmt.Errorf("--min_count must be at least 1 and at most --max_count")
			}

			client, err := a.ec2Client(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.Out, "Create EC2 instance, %s in group %s\n", opts.name, opts.group)
			instances, err := client.Create(ctx, ec2.LaunchSpec{
				Name:           opts.name,
				Group:          opts.group,
				ImageID:        opts.image,
				InstanceType:   types.InstanceType(opts.instanceType),
				MinCount:       opts.minCount,
				MaxCount:       opts.maxCount,
				KeyName:        opts.keyName,
				SecurityGroups: opts.securityGroups,
				WebServer:      !opts.noWebServer,
			})
			if err != nil {
				return err
			}

			for _, inst := range instances {
				if opts.wait {
					if inst, err = client.WaitRunning(ctx, inst.ID, opts.waitTimeout); err != nil {
						return err
					}
				}
				fmt.Fprintf(a.Out, "Created EC2 instance.\n\tID: %s\n\tCurrent State: %s\n", inst.ID, inst.State)
				if opts.wait {
					fmt.Fprintf(a.Out, "\tPublic dns: %s\n", inst.PublicDNSName)
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.name, "name", "n", "", "Name of instance")
	flags.StringVarP(&opts.group, "group", "g", "", "Group the instance belongs to (default $GROUP)")
	flags.Int32Var(&opts.maxCount, "max_count", 1, "Max count of instances")
	flags.Int32Var(&opts.minCount, "min_count", 1, "Min count of instances")
	flags.StringVarP(&opts.keyName, "key_name", "k", "", "Key pair name used for SSH (default $KEYNAME)")
	flags.StringSliceVarP(&opts.securityGroups, "security_group", "s", nil, "Security group name, repeatable or comma-separated (default $SECURITYGROUP)")
	flags.StringVar(&opts.image, "image", "", "AMI to launch (default "+ec2.DefaultImageID+")")
	flags.StringVar(&opts.instanceType, "instance_type", "", "Instance type (default "+string(ec2.DefaultInstanceType)+")")
	flags.BoolVar(&opts.noWebServer, "no-webserver", false, "Do not install a web server on first boot")
	flags.BoolVar(&opts.wait, "wait", false, "Wait for the instances to be running")
	flags.DurationVar(&opts.waitTimeout, "wait-timeout", 5*time.Minute, "How long --wait waits")
	return cmd
}
