package cli

import (
	"fmt"

	"github.com/chainguard-dev/webctl/internal/ec2"
	"github.com/chainguard-dev/webctl/internal/o11y"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

const (
	undefinedName       = "Undefined"
	destroySelectorHelp = "You must set '--group' or '--all'"
)

func (a *App) destroyCmd() *cobra.Command {
	var (
		filter ec2.Filter
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Terminate EC2 instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if !filter.All && !cmd.Flags().Changed("group") {
				filter.Group = a.cfg.Group
			}
			ctx, span := o11y.Start(cmd.Context(), "destroy",
				attribute.String(o11y.AttrGroup, filter.Group),
				attribute.Bool("all", filter.All))
			defer func() { o11y.End(span, err) }()

			if !filter.All && filter.Group == "" {
				fmt.Fprintln(a.Err, destroySelectorHelp)
				return errNoSelector
			}
			if err := a.confirm(yes, "Are you sure you want to terminate instances"); err != nil {
				return err
			}

			client, err := a.ec2Client(ctx)
			if err != nil {
				return err
			}
			instances, err := client.List(ctx, filter)
			if err != nil {
				return err
			}
			if len(instances) == 0 {
				fmt.Fprintln(a.Out, "No instances found")
				return nil
			}

			return client.TerminateAll(ctx, instances, func(inst ec2.Instance, err error) {
				name := ec2.TagValueOr(inst.Tags, ec2.TagKeyName, undefinedName)
				fmt.Fprintf(a.Out, "Terminating %s\n", name)
				if err != nil {
					fmt.Fprintf(a.Out, "Issue terminating %s\n", name)
				}
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&filter.Group, "group", "g", "", "Group the instances belong to (default $GROUP)")
	flags.BoolVarP(&filter.All, "all", "a", false, "Select all instances. Protected instances will not be terminated")
	flags.BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.MarkFlagsMutuallyExclusive("group", "all")
	return cmd
}
