package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessageReader is an in-memory substitute for *kafka.Reader, per
// SPEC_FULL.md's note that the reload consumer is tested against a fake
// reader instead of a real broker.
type fakeMessageReader struct {
	messages []kafka.Message
	idx      int
	closed   bool
	closeErr error
}

func (f *fakeMessageReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if f.idx >= len(f.messages) {
		return kafka.Message{}, io.EOF
	}

	msg := f.messages[f.idx]
	f.idx++

	return msg, nil
}

func (f *fakeMessageReader) Close() error {
	f.closed = true

	return f.closeErr
}

func TestLoadReloadConfig(t *testing.T) {
	t.Run("disabled when brokers unset", func(t *testing.T) {
		t.Setenv("FEATUREPIPE_RELOAD_KAFKA_BROKERS", "")
		t.Setenv("FEATUREPIPE_RELOAD_KAFKA_TOPIC", "reload")

		_, enabled := LoadReloadConfig()
		assert.False(t, enabled)
	})

	t.Run("disabled when topic unset", func(t *testing.T) {
		t.Setenv("FEATUREPIPE_RELOAD_KAFKA_BROKERS", "localhost:9092")
		t.Setenv("FEATUREPIPE_RELOAD_KAFKA_TOPIC", "")

		_, enabled := LoadReloadConfig()
		assert.False(t, enabled)
	})

	t.Run("enabled with defaulted group id", func(t *testing.T) {
		t.Setenv("FEATUREPIPE_RELOAD_KAFKA_BROKERS", "b1:9092, b2:9092")
		t.Setenv("FEATUREPIPE_RELOAD_KAFKA_TOPIC", "reload")
		t.Setenv("FEATUREPIPE_RELOAD_KAFKA_GROUP_ID", "")

		cfg, enabled := LoadReloadConfig()
		require.True(t, enabled)
		assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
		assert.Equal(t, "reload", cfg.Topic)
		assert.Equal(t, DefaultReloadGroupID, cfg.GroupID)
	})
}

func TestReloadConsumer_Run(t *testing.T) {
	runtime := newTestRuntime(t, nil)

	rebuildCalls := 0
	rebuild := func() (map[string]*Pipeline, *BuildContext, error) {
		rebuildCalls++

		return map[string]*Pipeline{"reloaded": {Name: "reloaded"}}, runtime.buildContext(), nil
	}

	reader := &fakeMessageReader{messages: []kafka.Message{{Topic: "reload", Offset: 1}}}
	consumer := newReloadConsumer(reader, runtime, rebuild, slog.Default())

	err := consumer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rebuildCalls)

	_, ok := runtime.lookupPipeline("reloaded")
	assert.True(t, ok)

	_, ok = runtime.lookupPipeline("double")
	assert.False(t, ok, "ReloadWith replaces the pipeline set wholesale")
}

func TestReloadConsumer_Run_RebuildFailureKeepsPreviousSnapshot(t *testing.T) {
	runtime := newTestRuntime(t, nil)

	rebuild := func() (map[string]*Pipeline, *BuildContext, error) {
		return nil, nil, errors.New("compile error")
	}

	reader := &fakeMessageReader{messages: []kafka.Message{{Topic: "reload", Offset: 1}}}
	consumer := newReloadConsumer(reader, runtime, rebuild, slog.Default())

	err := consumer.Run(context.Background())
	require.NoError(t, err)

	_, ok := runtime.lookupPipeline("double")
	assert.True(t, ok, "a failed rebuild must not disturb the active pipeline set")
}

func TestReloadConsumer_Run_StopsOnContextCancellation(t *testing.T) {
	runtime := newTestRuntime(t, nil)

	rebuild := func() (map[string]*Pipeline, *BuildContext, error) {
		t.Fatal("rebuild should not run when the context is already canceled")

		return nil, nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &canceledReader{}
	consumer := newReloadConsumer(reader, runtime, rebuild, slog.Default())

	err := consumer.Run(ctx)
	require.NoError(t, err)
}

// canceledReader simulates a kafka.Reader whose ReadMessage returns once its
// context is canceled, without ever yielding a message.
type canceledReader struct{}

func (c *canceledReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()

	return kafka.Message{}, ctx.Err()
}

func (c *canceledReader) Close() error { return nil }

func TestReloadConsumer_Close(t *testing.T) {
	reader := &fakeMessageReader{}
	consumer := newReloadConsumer(reader, nil, nil, nil)

	require.NoError(t, consumer.Close())
	assert.True(t, reader.closed)
}
