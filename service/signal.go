package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"transcode-notifier/constant"
	"transcode-notifier/dto"
	"transcode-notifier/entities"
)

// Signal tells the rest of the application that a job changed state.
type Signal struct {
	Kind    constant.SignalKind
	Job     entities.Job
	Message map[string]any
}

type SignalHandler func(ctx context.Context, signal Signal) error

// SignalBus delivers signals synchronously to in-process subscribers.
// Handler errors are logged and never reach the publisher.
type SignalBus interface {
	Subscribe(kind constant.SignalKind, handler SignalHandler)
	SubscribeAll(handler SignalHandler)
	Publish(ctx context.Context, signal Signal)
}

type signalBus struct {
	mu       sync.RWMutex
	handlers map[constant.SignalKind][]SignalHandler
}

func NewSignalBus() SignalBus {
	return &signalBus{handlers: make(map[constant.SignalKind][]SignalHandler)}
}

func (b *signalBus) Subscribe(kind constant.SignalKind, handler SignalHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

func (b *signalBus) SubscribeAll(handler SignalHandler) {
	for _, kind := range []constant.SignalKind{constant.SignalProgress, constant.SignalComplete, constant.SignalError} {
		b.Subscribe(kind, handler)
	}
}

func (b *signalBus) Publish(ctx context.Context, signal Signal) {
	b.mu.RLock()
	handlers := append([]SignalHandler(nil), b.handlers[signal.Kind]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, signal); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).
				Str("job_id", signal.Job.ID).
				Str("signal", string(signal.Kind)).
				Msg("signal handler failed")
		}
	}
}

func LogSignal(ctx context.Context, signal Signal) error {
	zerolog.Ctx(ctx).Info().
		Str("job_id", signal.Job.ID).
		Str("signal", string(signal.Kind)).
		Str("state", signal.Job.State.String()).
		Str("owner", signal.Job.OwnerKind+":"+signal.Job.OwnerKey).
		Msg("job signal")
	return nil
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// NewSignalPublisher forwards signals to publisher under the routing key
// "transcode.job.<kind>".
func NewSignalPublisher(publisher EventPublisher) SignalHandler {
	return func(ctx context.Context, signal Signal) error {
		body, err := json.Marshal(dto.JobSignalMessage{
			Kind:    signal.Kind,
			Job:     signal.Job,
			Message: signal.Message,
		})
		if err != nil {
			return err
		}
		return publisher.Publish(ctx, "transcode.job."+string(signal.Kind), body)
	}
}
