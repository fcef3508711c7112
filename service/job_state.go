package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"transcode-notifier/constant"
	"transcode-notifier/dto"
	"transcode-notifier/entities"
	"transcode-notifier/repository"
)

type JobStateService interface {
	Apply(ctx context.Context, event dto.JobEvent) error
}

type transition struct {
	state   constant.JobState
	message string
	signal  constant.SignalKind
}

var transitions = map[constant.EventState]transition{
	constant.EventStateProgressing: {state: constant.JobStateProgressing, message: "Progress", signal: constant.SignalProgress},
	constant.EventStateCompleted:   {state: constant.JobStateComplete, message: "Success", signal: constant.SignalComplete},
	constant.EventStateError:       {state: constant.JobStateError, signal: constant.SignalError},
}

type jobStateService struct {
	repo        repository.JobRepository
	signals     SignalBus
	forwardOnly bool
}

// NewJobStateService applies transcoder events to jobs. With forwardOnly set,
// a job in a terminal state ignores further events.
func NewJobStateService(repo repository.JobRepository, signals SignalBus, forwardOnly bool) JobStateService {
	return &jobStateService{
		repo:        repo,
		signals:     signals,
		forwardOnly: forwardOnly,
	}
}

func (s *jobStateService) Apply(ctx context.Context, event dto.JobEvent) error {
	logger := zerolog.Ctx(ctx).With().
		Str("job_id", event.JobID).
		Str("event_state", string(event.State)).
		Str("message_id", event.MessageID).
		Logger()

	t, ok := transitions[event.State]
	if !ok {
		logger.Info().Msg("ignoring event with unhandled state")
		return nil
	}

	message := t.message
	if event.State == constant.EventStateError {
		message = event.Pretty()
	}

	job, updated, err := s.repo.UpdateJob(ctx, event.JobID, func(job *entities.Job) (bool, error) {
		if event.MessageID != "" && job.LastMessageID == event.MessageID {
			logger.Info().Msg("event already applied")
			return false, nil
		}
		if s.forwardOnly && job.State.Terminal() {
			logger.Warn().Str("state", job.State.String()).Msg("job is in a terminal state")
			return false, nil
		}

		job.State = t.state
		job.Message = message
		job.LastMessageID = event.MessageID
		return true, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			logger.Error().Msg("event for unknown job")
		} else {
			logger.Error().Err(err).Msg("failed to update job")
		}
		return err
	}
	if !updated {
		return nil
	}

	logger.Info().Str("state", job.State.String()).Msg("job updated")
	s.signals.Publish(ctx, Signal{
		Kind:    t.signal,
		Job:     *job,
		Message: event.Payload,
	})

	return nil
}
