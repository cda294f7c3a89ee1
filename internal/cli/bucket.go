package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/chainguard-dev/webctl/internal/o11y"
	"github.com/chainguard-dev/webctl/internal/s3"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func (a *App) bucketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage S3 buckets",
	}
	cmd.AddCommand(
		a.bucketCreateCmd(),
		a.bucketAddFileCmd(),
		a.bucketDeleteCmd(),
		a.bucketListCmd(),
	)
	return cmd
}

func (a *App) bucketCreateCmd() *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an S3 bucket",
		Long:  "Create an S3 bucket. NAME must be globally unique.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			name := args[0]
			ctx, span := o11y.Start(cmd.Context(), "bucket.create", attribute.String(o11y.AttrBucket, name))
			defer func() { o11y.End(span, err) }()

			client, region, err := a.s3Client(ctx)
			if err != nil {
				return err
			}
			if err := client.CreateBucket(ctx, name, region, s3.ACLFor(public)); err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Created bucket %s in %s\n", name, region)
			return nil
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "Make the bucket publicly readable")
	return cmd
}

func (a *App) bucketAddFileCmd() *cobra.Command {
	var (
		key    string
		public bool
	)
	cmd := &cobra.Command{
		Use:   "add-file BUCKET FILE",
		Short: "Upload a file to an S3 bucket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			bucket, file := args[0], args[1]
			ctx, span := o11y.Start(cmd.Context(), "bucket.add-file", attribute.String(o11y.AttrBucket, bucket))
			defer func() { o11y.End(span, err) }()

			client, _, err := a.s3Client(ctx)
			if err != nil {
				return err
			}
			uploaded, err := client.Upload(ctx, bucket, key, file, s3.ACLFor(public))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Uploaded %s to s3://%s/%s\n", file, bucket, uploaded)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Object key (default the file's base name)")
	cmd.Flags().BoolVar(&public, "public", false, "Make the object publicly readable")
	return cmd
}

func (a *App) bucketDeleteCmd() *cobra.Command {
	var empty, yes bool
	cmd := &cobra.Command{
		Use:   "delete BUCKET",
		Short: "Remove an S3 bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			bucket := args[0]
			ctx, span := o11y.Start(cmd.Context(), "bucket.delete", attribute.String(o11y.AttrBucket, bucket))
			defer func() { o11y.End(span, err) }()

			if err := a.confirm(yes, "Remove S3 bucket..."); err != nil {
				return err
			}
			client, _, err := a.s3Client(ctx)
			if err != nil {
				return err
			}
			err = client.DeleteBucket(ctx, bucket, empty, func(key string, err error) {
				if err != nil {
					fmt.Fprintf(a.Out, "Issue deleting %s\n", key)
					return
				}
				fmt.Fprintf(a.Out, "Deleted %s\n", key)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Removed bucket %s\n", bucket)
			return nil
		},
	}
	cmd.Flags().BoolVar(&empty, "empty", false, "Remove the bucket's contents before removing the bucket")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *App) bucketListCmd() *cobra.Command {
	var count bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the buckets you have access to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := o11y.Start(cmd.Context(), "bucket.list")
			defer func() { o11y.End(span, err) }()

			client, _, err := a.s3Client(ctx)
			if err != nil {
				return err
			}
			buckets, err := client.ListBuckets(ctx, count)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
			header := "NAME\tREGION\tCREATED"
			if count {
				header += "\tOBJECTS"
			}
			fmt.Fprintln(w, header)
			for _, b := range buckets {
				line := fmt.Sprintf("%s\t%s\t%s", b.Name, b.Region, b.CreatedAt.Format(time.DateOnly))
				if count {
					objects := "?"
					if b.Objects >= 0 {
						objects = fmt.Sprint(b.Objects)
					}
					line += "\t" + objects
				}
				fmt.Fprintln(w, line)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&count, "count", false, "Count the objects in each bucket")
	return cmd
}
