// cli is webctl's command surface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/webctl/internal/config"
	"github.com/chainguard-dev/webctl/internal/ec2"
	"github.com/chainguard-dev/webctl/internal/log"
	"github.com/chainguard-dev/webctl/internal/o11y"
	"github.com/chainguard-dev/webctl/internal/remote"
	"github.com/chainguard-dev/webctl/internal/s3"
	"github.com/spf13/cobra"
)

// App holds the dependencies of webctl's commands. The zero value is not
// usable; start from 'NewApp' and override fields in tests.
type App struct {
	Version string

	In  io.Reader
	Out io.Writer
	Err io.Writer

	Getenv func(string) string

	LoadAWSConfig func(ctx context.Context, region string) (aws.Config, error)
	NewEC2        func(aws.Config) ec2.API
	NewS3         func(aws.Config) s3.API
	NewRunner     func(remote.Target) (remote.Runner, error)
	Confirm       Confirmer

	// Set by the root command's pre-run.
	cfg     *config.Config
	closers []func(context.Context) error
}

// NewApp returns an 'App' talking to AWS and the terminal.
func NewApp(version string) *App {
	return &App{
		Version: version,
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Getenv:  os.Getenv,
		LoadAWSConfig: func(ctx context.Context, region string) (aws.Config, error) {
			var opts []func(*awsconfig.LoadOptions) error
			if region != "" {
				opts = append(opts, awsconfig.WithRegion(region))
			}
			return awsconfig.LoadDefaultConfig(ctx, opts...)
		},
		NewEC2: func(cfg aws.Config) ec2.API { return awsec2.NewFromConfig(cfg) },
		NewS3:  func(cfg aws.Config) s3.API { return awss3.NewFromConfig(cfg) },
		NewRunner: func(target remote.Target) (remote.Runner, error) {
			return remote.NewSSHRunner(target)
		},
		Confirm: NewPromptConfirmer(os.Stdin, os.Stderr),
	}
}

// Execute runs the command line 'args' (without the program name).
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.RootCmd()
	root.SetArgs(args)
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	err := root.ExecuteContext(ctx)
	if err != nil {
		// Falls back to the default logger, which setup points at the
		// configured streams.
		clog.FromContext(ctx).Error("command failed", "error", err)
	}
	// The context may be cancelled already; flushing must still happen.
	flushCtx := context.WithoutCancel(ctx)
	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i](flushCtx); cerr != nil {
			fmt.Fprintf(a.Err, "webctl: %v\n", cerr)
		}
	}
	a.closers = nil
	return err
}

type rootOptions struct {
	region  string
	logDir  string
	config  string
	verbose bool
}

// RootCmd builds the 'webctl' command tree.
func (a *App) RootCmd() *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:          "webctl",
		Short:        "Launch, check and tear down EC2 web servers and manage S3 buckets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.region, "region", "", "AWS region (default from $AWS_REGION or the AWS shared config)")
	cmd.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "directory for log files (default ~/.webctl/logs)")
	cmd.PersistentFlags().StringVar(&opts.config, "config", "", "config file (default $WEBCTL_CONFIG or ~/.config/webctl/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug records to the console")

	cmd.AddCommand(
		a.createCmd(),
		a.statusCmd(),
		a.destroyCmd(),
		a.checkCmd(),
		a.webserverCmd(),
		a.bucketCmd(),
		a.versionCmd(),
	)
	return cmd
}

// setup loads the configuration and builds the logging and tracing context
// every subcommand runs with.
func (a *App) setup(cmd *cobra.Command, opts rootOptions) error {
	cfg, err := config.Load(opts.config, a.Getenv)
	if err != nil {
		return err
	}
	if opts.region != "" {
		cfg.Region = opts.region
	}
	if opts.logDir != "" {
		cfg.LogDir = opts.logDir
	}
	a.cfg = cfg

	ctx := cmd.Context()
	otelHandler, shutdownLogs, err := o11y.SetupLogging(ctx)
	if err != nil {
		return fmt.Errorf("setting up log export: %w", err)
	}
	a.closers = append(a.closers, shutdownLogs)

	logOpts := log.Options{Dir: cfg.LogDir, Verbose: opts.verbose, Console: a.Err}
	if otelHandler != nil {
		logOpts.Extra = append(logOpts.Extra, otelHandler)
	}
	ctx, closeLogs, err := log.Setup(ctx, logOpts)
	if err != nil {
		return fmt.Errorf("setting up logs in %s: %w", cfg.LogDir, err)
	}
	a.closers = append(a.closers, func(context.Context) error { return closeLogs() })

	shutdownTracing, err := o11y.SetupTracing(ctx)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	log.Debug(ctx, "configuration loaded", "region", cfg.Region, "log_dir", cfg.LogDir, "command", cmd.CommandPath())
	cmd.SetContext(ctx)
	return nil
}

func (a *App) awsConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := a.LoadAWSConfig(ctx, a.cfg.Region)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS configuration: %w", err)
	}
	return cfg, nil
}

func (a *App) ec2Client(ctx context.Context) (*ec2.Client, error) {
	cfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	return ec2.New(a.NewEC2(cfg)), nil
}

// s3Client also returns the effective region, which bucket creation needs.
func (a *App) s3Client(ctx context.Context) (*s3.Client, string, error) {
	cfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, "", err
	}
	return s3.New(a.NewS3(cfg)), cfg.Region, nil
}

// ErrAborted is returned when a confirmation prompt is declined.
var ErrAborted = errors.New("aborted")

func (a *App) confirm(skip bool, prompt string) error {
	if skip {
		return nil
	}
	ok, err := a.Confirm.Confirm(prompt)
	if err != nil {
		return fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		fmt.Fprintln(a.Err, "Aborted!")
		return ErrAborted
	}
	return nil
}
