package cli

import (
	"fmt"

	"github.com/chainguard-dev/webctl/internal/bootstrap"
	"github.com/chainguard-dev/webctl/internal/log"
	"github.com/chainguard-dev/webctl/internal/o11y"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func (a *App) webserverCmd() *cobra.Command {
	var (
		target  targetOptions
		docRoot string
	)
	cmd := &cobra.Command{
		Use:   "webserver FILE",
		Short: "Deploy a web content file to an instance's web server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, span := o11y.Start(cmd.Context(), "webserver")
			defer func() { o11y.End(span, err) }()

			inst, runner, err := a.resolve(ctx, cmd, target)
			if err != nil {
				return err
			}
			span.SetAttributes(attribute.String(o11y.AttrInstance, inst.ID))

			ctx = log.With(ctx, o11y.AttrInstance, inst.ID, "host", inst.Address())
			ctx, done := log.WithRunFile(ctx, a.cfg.LogDir, displayName(inst))
			defer done()

			dest, err := bootstrap.Deploy(ctx, runner, args[0], docRoot)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Deployed %s to %s:%s\n", args[0], inst.Address(), dest)
			return nil
		},
	}

	target.addFlags(cmd)
	cmd.Flags().StringVar(&docRoot, "doc-root", bootstrap.DefaultDocumentRoot, "Web server document root")
	return cmd
}
