package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chainguard-dev/webctl/internal/ec2"
	"github.com/chainguard-dev/webctl/internal/remote"
	"github.com/chainguard-dev/webctl/internal/s3"
)

// mockEC2Client is a mock implementation of 'ec2.API'.
type mockEC2Client struct {
	runInstancesFunc       func(params *awsec2.RunInstancesInput) (*awsec2.RunInstancesOutput, error)
	describeInstancesFunc  func(params *awsec2.DescribeInstancesInput) (*awsec2.DescribeInstancesOutput, error)
	terminateInstancesFunc func(params *awsec2.TerminateInstancesInput) (*awsec2.TerminateInstancesOutput, error)

	operations []string
	launched   []*awsec2.RunInstancesInput
	described  []*awsec2.DescribeInstancesInput
}

var _ ec2.API = (*mockEC2Client)(nil)

func (m *mockEC2Client) RunInstances(_ context.Context, params *awsec2.RunInstancesInput, _ ...func(*awsec2.Options)) (*awsec2.RunInstancesOutput, error) {
	m.operations = append(m.operations, "RunInstances")
	m.launched = append(m.launched, params)
	if m.runInstancesFunc != nil {
		return m.runInstancesFunc(params)
	}
	return &awsec2.RunInstancesOutput{Instances: []types.Instance{{
		InstanceId: aws.String("i-1"),
		State:      &types.InstanceState{Name: types.InstanceStateNamePending},
	}}}, nil
}

func (m *mockEC2Client) DescribeInstances(_ context.Context, params *awsec2.DescribeInstancesInput, _ ...func(*awsec2.Options)) (*awsec2.DescribeInstancesOutput, error) {
	m.operations = append(m.operations, "DescribeInstances")
	m.described = append(m.described, params)
	if m.describeInstancesFunc != nil {
		return m.describeInstancesFunc(params)
	}
	return &awsec2.DescribeInstancesOutput{}, nil
}

func (m *mockEC2Client) TerminateInstances(_ context.Context, params *awsec2.TerminateInstancesInput, _ ...func(*awsec2.Options)) (*awsec2.TerminateInstancesOutput, error) {
	m.operations = append(m.operations, "TerminateInstances:"+strings.Join(params.InstanceIds, ","))
	if m.terminateInstancesFunc != nil {
		return m.terminateInstancesFunc(params)
	}
	return &awsec2.TerminateInstancesOutput{}, nil
}

// describeOnly returns a describe func answering with 'instances' in one
// reservation.
func describeOnly(instances ...types.Instance) func(*awsec2.DescribeInstancesInput) (*awsec2.DescribeInstancesOutput, error) {
	return func(*awsec2.DescribeInstancesInput) (*awsec2.DescribeInstancesOutput, error) {
		return &awsec2.DescribeInstancesOutput{
			Reservations: []types.Reservation{{Instances: instances}},
		}, nil
	}
}

func instanceFixture(id, name, group string) types.Instance {
	var tags []types.Tag
	if name != "" {
		tags = append(tags, ec2.NewTag(ec2.TagKeyName, name))
	}
	if group != "" {
		tags = append(tags, ec2.NewTag(ec2.TagKeyGroup, group))
	}
	return types.Instance{
		InstanceId:    aws.String(id),
		State:         &types.InstanceState{Name: types.InstanceStateNameRunning},
		KeyName:       aws.String("webkey"),
		PublicDnsName: aws.String(id + ".compute.amazonaws.com"),
		Tags:          tags,
	}
}

// mockS3Client is a mock implementation of 's3.API'.
type mockS3Client struct {
	createBucketFunc  func(params *awss3.CreateBucketInput) (*awss3.CreateBucketOutput, error)
	deleteBucketFunc  func(params *awss3.DeleteBucketInput) (*awss3.DeleteBucketOutput, error)
	listBucketsFunc   func(params *awss3.ListBucketsInput) (*awss3.ListBucketsOutput, error)
	putObjectFunc     func(params *awss3.PutObjectInput) (*awss3.PutObjectOutput, error)
	deleteObjectFunc  func(params *awss3.DeleteObjectInput) (*awss3.DeleteObjectOutput, error)
	listObjectsV2Func func(params *awss3.ListObjectsV2Input) (*awss3.ListObjectsV2Output, error)

	operations []string
	created    []*awss3.CreateBucketInput
}

var _ s3.API = (*mockS3Client)(nil)

func (m *mockS3Client) CreateBucket(_ context.Context, params *awss3.CreateBucketInput, _ ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error) {
	m.operations = append(m.operations, "CreateBucket")
	m.created = append(m.created, params)
	if m.createBucketFunc != nil {
		return m.createBucketFunc(params)
	}
	return &awss3.CreateBucketOutput{}, nil
}

func (m *mockS3Client) DeletePublicAccessBlock(_ context.Context, _ *awss3.DeletePublicAccessBlockInput, _ ...func(*awss3.Options)) (*awss3.DeletePublicAccessBlockOutput, error) {
	m.operations = append(m.operations, "DeletePublicAccessBlock")
	return &awss3.DeletePublicAccessBlockOutput{}, nil
}

func (m *mockS3Client) PutBucketAcl(_ context.Context, params *awss3.PutBucketAclInput, _ ...func(*awss3.Options)) (*awss3.PutBucketAclOutput, error) {
	m.operations = append(m.operations, "PutBucketAcl:"+string(params.ACL))
	return &awss3.PutBucketAclOutput{}, nil
}

func (m *mockS3Client) GetBucketLocation(_ context.Context, _ *awss3.GetBucketLocationInput, _ ...func(*awss3.Options)) (*awss3.GetBucketLocationOutput, error) {
	m.operations = append(m.operations, "GetBucketLocation")
	return &awss3.GetBucketLocationOutput{}, nil
}

func (m *mockS3Client) DeleteBucket(_ context.Context, params *awss3.DeleteBucketInput, _ ...func(*awss3.Options)) (*awss3.DeleteBucketOutput, error) {
	m.operations = append(m.operations, "DeleteBucket")
	if m.deleteBucketFunc != nil {
		return m.deleteBucketFunc(params)
	}
	return &awss3.DeleteBucketOutput{}, nil
}

func (m *mockS3Client) ListBuckets(_ context.Context, params *awss3.ListBucketsInput, _ ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error) {
	m.operations = append(m.operations, "ListBuckets")
	if m.listBucketsFunc != nil {
		return m.listBucketsFunc(params)
	}
	return &awss3.ListBucketsOutput{}, nil
}

func (m *mockS3Client) PutObject(_ context.Context, params *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	m.operations = append(m.operations, "PutObject:"+aws.ToString(params.Key))
	if m.putObjectFunc != nil {
		return m.putObjectFunc(params)
	}
	return &awss3.PutObjectOutput{}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, params *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	m.operations = append(m.operations, "DeleteObject:"+aws.ToString(params.Key))
	if m.deleteObjectFunc != nil {
		return m.deleteObjectFunc(params)
	}
	return &awss3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, params *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	m.operations = append(m.operations, "ListObjectsV2")
	if m.listObjectsV2Func != nil {
		return m.listObjectsV2Func(params)
	}
	return &awss3.ListObjectsV2Output{}, nil
}

// mockRunner is a 'remote.Runner' answering 'Run' from a script of exit
// statuses, repeating the last one.
type mockRunner struct {
	statuses []int
	runs     []string
	runAll   [][]string
	copies   [][2]string
}

var _ remote.Runner = (*mockRunner)(nil)

func (m *mockRunner) Run(_ context.Context, cmd remote.Command) (remote.Result, error) {
	m.runs = append(m.runs, cmd.String())
	if len(m.statuses) == 0 {
		return remote.Result{}, nil
	}
	return remote.Result{ExitStatus: m.statuses[min(len(m.runs), len(m.statuses))-1]}, nil
}

func (m *mockRunner) RunAll(_ context.Context, cmds ...remote.Command) (remote.Result, error) {
	var rendered []string
	for _, cmd := range cmds {
		rendered = append(rendered, cmd.String())
	}
	m.runAll = append(m.runAll, rendered)
	return remote.Result{}, nil
}

func (m *mockRunner) Copy(_ context.Context, localPath, remotePath string) error {
	m.copies = append(m.copies, [2]string{localPath, remotePath})
	return nil
}

type mockConfirmer struct {
	answer  bool
	prompts []string
}

func (m *mockConfirmer) Confirm(prompt string) (bool, error) {
	m.prompts = append(m.prompts, prompt)
	return m.answer, nil
}

// testApp is an 'App' wired to mocks, with its output captured.
type testApp struct {
	*App
	ec2     *mockEC2Client
	s3      *mockS3Client
	runner  *mockRunner
	confirm *mockConfirmer
	targets []remote.Target
	env     map[string]string
	logDir  string
	out     *bytes.Buffer
	err     *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "")

	ta := &testApp{
		ec2:     &mockEC2Client{},
		s3:      &mockS3Client{},
		runner:  &mockRunner{},
		confirm: &mockConfirmer{},
		logDir:  t.TempDir(),
		out:     &bytes.Buffer{},
		err:     &bytes.Buffer{},
	}
	ta.env = map[string]string{"WEBCTL_LOG_DIR": ta.logDir}
	ta.App = &App{
		Version: "v1.2.3",
		In:      strings.NewReader(""),
		Out:     ta.out,
		Err:     ta.err,
		Getenv:  func(k string) string { return ta.env[k] },
		LoadAWSConfig: func(_ context.Context, region string) (aws.Config, error) {
			if region == "" {
				region = "us-east-1"
			}
			return aws.Config{Region: region}, nil
		},
		NewEC2: func(aws.Config) ec2.API { return ta.ec2 },
		NewS3:  func(aws.Config) s3.API { return ta.s3 },
		NewRunner: func(target remote.Target) (remote.Runner, error) {
			ta.targets = append(ta.targets, target)
			return ta.runner, nil
		},
		Confirm: ta.confirm,
	}
	return ta
}

func (ta *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	return ta.Execute(t.Context(), args)
}
