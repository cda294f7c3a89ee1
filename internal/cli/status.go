package cli

import (
	"errors"
	"fmt"

	"github.com/chainguard-dev/webctl/internal/ec2"
	"github.com/chainguard-dev/webctl/internal/o11y"
	"github.com/spf13/cobra"
)

const (
	notSet             = "Not Set"
	statusSelectorHelp = "You must set '--name', '--group' or '--all'"
)

// errNoSelector is returned when 'status' or 'destroy' is run without
// choosing which instances to act on.
var errNoSelector = errors.New("no instances selected")

func (a *App) statusCmd() *cobra.Command {
	var filter ec2.Filter
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Get the status of existing EC2 instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := o11y.Start(cmd.Context(), "status")
			defer func() { o11y.End(span, err) }()

			if !filter.All && filter.Group == "" && filter.Name == "" {
				fmt.Fprintln(a.Err, statusSelectorHelp)
				return errNoSelector
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

			fmt.Fprintln(a.Out, "Getting status of instance(s)")
			for _, inst := range instances {
				fmt.Fprintf(a.Out, "\n"+
					"\tID: %s\n"+
					"\tState: %s\n"+
					"\tName: %s\n"+
					"\tGroup: %s\n"+
					"\tKey Pair: %s\n"+
					"\tPublic dns: %s\n",
					inst.ID,
					inst.State,
					ec2.TagValueOr(inst.Tags, ec2.TagKeyName, notSet),
					ec2.TagValueOr(inst.Tags, ec2.TagKeyGroup, notSet),
					inst.KeyName,
					inst.PublicDNSName,
				)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&filter.Name, "name", "n", "", "Name of instance")
	flags.StringVarP(&filter.Group, "group", "g", "", "Group the instances belong to")
	flags.BoolVarP(&filter.All, "all", "a", false, "Get status of all instances")
	cmd.MarkFlagsMutuallyExclusive("name", "group", "all")
	return cmd
}
