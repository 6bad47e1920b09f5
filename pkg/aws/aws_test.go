package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{}, f.err
}

type fakeSecrets struct {
	values map[string]string
	calls  int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}, nil
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

type fakeLogs struct {
	events int
	err    error
}

func (f *fakeLogs) CreateLogGroup(context.Context, *cloudwatchlogs.CreateLogGroupInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return &cloudwatchlogs.CreateLogGroupOutput{}, nil
}
func (f *fakeLogs) PutRetentionPolicy(context.Context, *cloudwatchlogs.PutRetentionPolicyInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}
func (f *fakeLogs) CreateLogStream(context.Context, *cloudwatchlogs.CreateLogStreamInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}
func (f *fakeLogs) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.events += len(in.LogEvents)
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: sdkaws.String("next")}, nil
}

// ---- tests ----

func TestSNSClient_PublishWithAttributes(t *testing.T) {
	api := &fakeSNS{}
	c := &SNSClient{client: api}

	err := c.Publish(context.Background(), "arn:aws:sns:us-east-1:000000000000:checkout", []byte(`{"a":1}`), map[string]string{"event_type": "checkout_session_created"})

	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, *api.input.Message)
	assert.Equal(t, "checkout_session_created", *api.input.MessageAttributes["event_type"].StringValue)
}

func TestSNSClient_EmptyTopic(t *testing.T) {
	c := &SNSClient{client: &fakeSNS{}}
	assert.Error(t, c.Publish(context.Background(), "", []byte("x"), nil))
}

func TestSNSClient_WrapsError(t *testing.T) {
	boom := errors.New("throttled")
	c := &SNSClient{client: &fakeSNS{err: boom}}
	assert.ErrorIs(t, c.Publish(context.Background(), "arn", []byte("x"), nil), boom)
}

func TestSecretsClient_CachesValues(t *testing.T) {
	api := &fakeSecrets{values: map[string]string{"checkout/JWT_SECRET": "s3cret"}}
	c := newSecretsClient(api)

	for i := 0; i < 3; i++ {
		v, err := c.GetSecret(context.Background(), "checkout/JWT_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, api.calls)
}

func TestSecretsClient_GetSecretMap(t *testing.T) {
	api := &fakeSecrets{values: map[string]string{
		"checkout/DB_CREDENTIALS": `{"POSTGRES_USER":"app","POSTGRES_PASSWORD":"pw"}`,
		"checkout/BROKEN":         `not-json`,
	}}
	c := newSecretsClient(api)

	m, err := c.GetSecretMap(context.Background(), "checkout/DB_CREDENTIALS")
	require.NoError(t, err)
	assert.Equal(t, "app", m["POSTGRES_USER"])

	_, err = c.GetSecretMap(context.Background(), "checkout/BROKEN")
	assert.Error(t, err)

	_, err = c.GetSecretMap(context.Background(), "checkout/MISSING")
	assert.Error(t, err)
}

func TestMetricsClient_DisabledSendsNothing(t *testing.T) {
	api := &fakeCloudWatch{}
	m := &MetricsClient{client: api, namespace: "Checkout"}

	require.NoError(t, m.RecordCount(context.Background(), MetricCheckoutSessionsCreated, nil))
	assert.Empty(t, api.inputs)

	var nilClient *MetricsClient
	assert.False(t, nilClient.IsEnabled())
	assert.NoError(t, nilClient.RecordCount(context.Background(), MetricCheckoutSessionsCreated, nil))
}

func TestMetricsClient_RecordLatency(t *testing.T) {
	api := &fakeCloudWatch{}
	m := &MetricsClient{client: api, namespace: "Checkout", enabled: true}

	err := m.RecordLatency(context.Background(), MetricCheckoutBuildLatency, 1500*time.Millisecond, map[string]string{"Service": "checkout-service"})

	require.NoError(t, err)
	require.Len(t, api.inputs, 1)
	datum := api.inputs[0].MetricData[0]
	assert.Equal(t, "Checkout", *api.inputs[0].Namespace)
	assert.Equal(t, float64(1500), *datum.Value)
	require.Len(t, datum.Dimensions, 1)
	assert.Equal(t, "Service", *datum.Dimensions[0].Name)
}

func TestCloudWatchLogsClient_Write(t *testing.T) {
	api := &fakeLogs{}
	c := &CloudWatchLogsClient{client: api, logGroupName: "/g", logStreamName: "s"}

	n, err := c.Write([]byte("line"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, api.events)
	assert.Equal(t, "next", *c.sequenceToken)

	api.err = errors.New("down")
	n, err = c.Write([]byte("again"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestLoadOptions(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	assert.Empty(t, loadOptions())

	t.Setenv("AWS_REGION", "eu-west-1")
	assert.Len(t, loadOptions(), 1)

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	assert.Len(t, loadOptions(), 2)
}

func TestLocalEndpoint_PrefersServiceSpecific(t *testing.T) {
	t.Setenv("AWS_ENDPOINT", "http://localstack:4566")
	t.Setenv("AWS_SNS_ENDPOINT", "")
	t.Setenv("AWS_DYNAMODB_ENDPOINT", "http://dynamo:8000")
	assert.Equal(t, "http://dynamo:8000", localEndpoint())
}
