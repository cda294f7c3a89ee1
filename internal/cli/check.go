package cli

import (
	"fmt"

	"github.com/chainguard-dev/webctl/internal/bootstrap"
	"github.com/chainguard-dev/webctl/internal/log"
	"github.com/chainguard-dev/webctl/internal/o11y"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func (a *App) checkCmd() *cobra.Command {
	var (
		target  targetOptions
		script  string
		retries int
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the web server on an instance, installing what the check needs",
		Long: `Runs the web server check script on the instance with python3.

When python3 is missing it is installed with yum; when the script is missing it
is copied from the local --script path. Each check, together with the
remediation it triggers, uses up one of --retries attempts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := o11y.Start(cmd.Context(), "check")
			defer func() { o11y.End(span, err) }()

			if !cmd.Flags().Changed("script") {
				script = a.cfg.Script
			}
			if !cmd.Flags().Changed("retries") {
				retries = a.cfg.Retries
			}

			inst, runner, err := a.resolve(ctx, cmd, target)
			if err != nil {
				return err
			}
			span.SetAttributes(attribute.String(o11y.AttrInstance, inst.ID))

			ctx = log.With(ctx, o11y.AttrInstance, inst.ID, "host", inst.Address())
			ctx, done := log.WithRunFile(ctx, a.cfg.LogDir, displayName(inst))
			defer done()

			report, err := bootstrap.New(runner, bootstrap.Config{
				Script: script,
				Budget: retries,
			}).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Web server check passed on %s after %d attempt(s)\n", inst.Address(), report.Checks)
			return nil
		},
	}

	target.addFlags(cmd)
	cmd.Flags().StringVar(&script, "script", "", "Local path of the check script (default "+bootstrap.DefaultScript+")")
	cmd.Flags().IntVar(&retries, "retries", 0, "Attempts before giving up (default 3)")
	return cmd
}
