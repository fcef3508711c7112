package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"transcode-notifier/constant"
	"transcode-notifier/dto"
	"transcode-notifier/entities"
)

func TestSignalBus_DeliversByKind(t *testing.T) {
	bus := NewSignalBus()
	var progress, complete, all []string

	bus.Subscribe(constant.SignalProgress, func(ctx context.Context, s Signal) error {
		progress = append(progress, s.Job.ID)
		return nil
	})
	bus.Subscribe(constant.SignalComplete, func(ctx context.Context, s Signal) error {
		complete = append(complete, s.Job.ID)
		return nil
	})
	bus.SubscribeAll(func(ctx context.Context, s Signal) error {
		all = append(all, string(s.Kind))
		return nil
	})

	ctx := context.Background()
	bus.Publish(ctx, Signal{Kind: constant.SignalProgress, Job: entities.Job{ID: "a"}})
	bus.Publish(ctx, Signal{Kind: constant.SignalComplete, Job: entities.Job{ID: "b"}})
	bus.Publish(ctx, Signal{Kind: constant.SignalError, Job: entities.Job{ID: "c"}})

	assert.Equal(t, []string{"a"}, progress)
	assert.Equal(t, []string{"b"}, complete)
	assert.Equal(t, []string{"progress", "complete", "error"}, all)
}

func TestSignalBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewSignalBus()
	called := 0

	bus.Subscribe(constant.SignalError, func(ctx context.Context, s Signal) error {
		return errors.New("boom")
	})
	bus.Subscribe(constant.SignalError, func(ctx context.Context, s Signal) error {
		called++
		return nil
	})

	bus.Publish(context.Background(), Signal{Kind: constant.SignalError})
	assert.Equal(t, 1, called)
}

type fakePublisher struct {
	routingKeys []string
	bodies      [][]byte
	err         error
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	p.bodies = append(p.bodies, body)
	return p.err
}

func TestSignalPublisher(t *testing.T) {
	pub := &fakePublisher{}
	handler := NewSignalPublisher(pub)

	err := handler(context.Background(), Signal{
		Kind:    constant.SignalComplete,
		Job:     entities.Job{ID: "job-1", State: constant.JobStateComplete},
		Message: map[string]any{"jobId": "job-1", "state": "COMPLETED"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"transcode.job.complete"}, pub.routingKeys)
	var msg dto.JobSignalMessage
	require.NoError(t, json.Unmarshal(pub.bodies[0], &msg))
	assert.Equal(t, constant.SignalComplete, msg.Kind)
	assert.Equal(t, "job-1", msg.Job.ID)
	assert.Equal(t, constant.JobStateComplete, msg.Job.State)
	assert.Equal(t, "COMPLETED", msg.Message["state"])

	pub.err = errors.New("channel closed")
	assert.Error(t, handler(context.Background(), Signal{Kind: constant.SignalProgress}))
}
