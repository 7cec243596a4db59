package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/DrSkyle/idlewatch/pkg/config"
	"github.com/DrSkyle/idlewatch/pkg/finding"
	"github.com/DrSkyle/idlewatch/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

type stubInspector struct {
	category finding.ResourceType
	found    []finding.Finding
	err      error
}

func (s *stubInspector) Name() string                   { return "Inspect" + string(s.category) }
func (s *stubInspector) Category() finding.ResourceType { return s.category }
func (s *stubInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	return s.found, s.err
}

type fakeStore struct {
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return data, nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]string, error) { return nil, nil }

func (f *fakeStore) Location(key string) string { return "fake://" + key }

type fakePublisher struct {
	calls   int
	subject string
	message string
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, subject, message string) error {
	f.calls++
	f.subject = subject
	f.message = message
	return f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return fixedNow }),
	}
	eng, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestRunHappyPath(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}

	eng := testEngine(t,
		WithStore(store),
		WithPublisher(pub),
		WithInspectors(
			&stubInspector{category: finding.TypeEC2Instance, found: []finding.Finding{
				{Type: finding.TypeEC2Instance, ID: "i-1", Region: "us-east-1a", Reason: "stopped ≥7 days", DetectedAt: fixedNow},
			}},
			&stubInspector{category: finding.TypeEBSVolume, found: []finding.Finding{
				{Type: finding.TypeEBSVolume, ID: "vol-1", Region: "us-east-1b", Reason: "detached ≥7 days", DetectedAt: fixedNow},
			}},
		),
	)

	result, err := eng.Run(context.Background(), ManualEvent())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, result.FindingsCount)
	assert.Equal(t, "fake://unused-resources-report-2026-08-28.csv", result.Location)

	// Report landed under the dated key and parses back.
	data, err := store.Get(context.Background(), "unused-resources-report-2026-08-28.csv")
	require.NoError(t, err)
	parsed, err := report.Parse(data)
	require.NoError(t, err)
	assert.Len(t, parsed, 2)
	assert.Equal(t, "i-1", parsed[0].ID)

	// One notification, carrying the location and the total.
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "AWS Unused Resources Report", pub.subject)
	assert.Contains(t, pub.message, "fake://unused-resources-report-2026-08-28.csv")
	assert.Contains(t, pub.message, "- EC2 Instance: i-1 (region: us-east-1a)")
	assert.Contains(t, pub.message, "Total Unused Resources: 2")
}

func TestRunZeroFindingsStillReportsAndNotifies(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}

	eng := testEngine(t,
		WithStore(store),
		WithPublisher(pub),
		WithInspectors(&stubInspector{category: finding.TypeEC2Instance}),
	)

	result, err := eng.Run(context.Background(), ManualEvent())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 0, result.FindingsCount)

	// Header-only CSV still gets written.
	data, err := store.Get(context.Background(), "unused-resources-report-2026-08-28.csv")
	require.NoError(t, err)
	assert.Equal(t, "resource_type,identifier,region,reason,detected_at\n", string(data))

	assert.Equal(t, 1, pub.calls)
	assert.Contains(t, pub.message, "No unused resources found.")
	assert.Contains(t, pub.message, "Total Unused Resources: 0")
}

func TestRunStorageFailureSuppressesNotification(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("access denied")
	pub := &fakePublisher{}

	eng := testEngine(t,
		WithStore(store),
		WithPublisher(pub),
		WithInspectors(&stubInspector{category: finding.TypeEC2Instance, found: []finding.Finding{
			{Type: finding.TypeEC2Instance, ID: "i-1", DetectedAt: fixedNow},
		}}),
	)

	result, err := eng.Run(context.Background(), ManualEvent())
	require.Error(t, err)

	var serr *report.StorageError
	assert.ErrorAs(t, err, &serr)
	assert.Equal(t, StatusFailure, result.Status)
	assert.Empty(t, result.Location)

	// Nothing worth announcing without a stored report.
	assert.Equal(t, 0, pub.calls)
}

func TestRunNotificationFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("topic gone")}

	eng := testEngine(t,
		WithStore(store),
		WithPublisher(pub),
		WithInspectors(&stubInspector{category: finding.TypeEC2Instance}),
	)

	result, err := eng.Run(context.Background(), ManualEvent())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, pub.calls)
}

func TestRunPartialResultTolerantByDefault(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}

	eng := testEngine(t,
		WithStore(store),
		WithPublisher(pub),
		WithInspectors(
			&stubInspector{category: finding.TypeRDSInstance, err: errors.New("throttled")},
			&stubInspector{category: finding.TypeS3Bucket, found: []finding.Finding{
				{Type: finding.TypeS3Bucket, ID: "old-logs", DetectedAt: fixedNow},
			}},
		),
	)

	result, err := eng.Run(context.Background(), ManualEvent())
	require.NoError(t, err)

	// The surviving category's findings still flow through.
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.FindingsCount)
	assert.Equal(t, 1, pub.calls)
}

func TestRunStrictModeFailsOnPartialResult(t *testing.T) {
	cfg := config.Default()
	cfg.StrictMode = true

	store := newFakeStore()
	pub := &fakePublisher{}

	eng := testEngine(t,
		WithConfig(cfg),
		WithStore(store),
		WithPublisher(pub),
		WithInspectors(
			&stubInspector{category: finding.TypeRDSInstance, err: errors.New("throttled")},
			&stubInspector{category: finding.TypeS3Bucket, found: []finding.Finding{
				{Type: finding.TypeS3Bucket, ID: "old-logs", DetectedAt: fixedNow},
			}},
		),
	)

	result, err := eng.Run(context.Background(), ManualEvent())
	require.ErrorIs(t, err, ErrPartialResult)

	// The report and notification happen anyway; strict mode only changes
	// the reported status.
	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, 1, result.FindingsCount)
	assert.Contains(t, store.objects, "unused-resources-report-2026-08-28.csv")
	assert.Equal(t, 1, pub.calls)
}

type panickyInspector struct {
	stubInspector
}

func (p *panickyInspector) Inspect(ctx context.Context) ([]finding.Finding, error) {
	panic("nil pointer dereference in classifier")
}

func TestRunPanicReturnsFailure(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}

	eng := testEngine(t,
		WithStore(store),
		WithPublisher(pub),
		WithInspectors(&panickyInspector{stubInspector{category: finding.TypeEC2Instance}}),
	)

	result, err := eng.Run(context.Background(), ManualEvent())

	// A crash must surface as a failed invocation, never as an empty result
	// the scheduler would read as healthy.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Equal(t, StatusFailure, result.Status)
}

func TestRunLogsTriggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	store := newFakeStore()
	eng := testEngine(t,
		WithLogger(logger),
		WithStore(store),
		WithPublisher(&fakePublisher{}),
		WithInspectors(&stubInspector{category: finding.TypeEC2Instance}),
	)

	ev := Event{
		Source: "aws.events",
		Detail: "Scheduled Event",
		Time:   fixedNow,
	}
	_, err := eng.Run(context.Background(), ev)
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, `"source":"aws.events"`)
	assert.Contains(t, logs, `"detail_type":"Scheduled Event"`)
	assert.Contains(t, logs, `"triggered_at":"2026-08-28T06:00:00Z"`)
}

func TestRunWithoutPublisher(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()

	// No topic and no injected publisher: the run succeeds and only logs
	// that the alert was skipped.
	eng := testEngine(t,
		WithConfig(cfg),
		WithInspectors(&stubInspector{category: finding.TypeEC2Instance}),
	)

	result, err := eng.Run(context.Background(), ManualEvent())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.NotEmpty(t, result.Location)
}
