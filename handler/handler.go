package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"transcode-notifier/dto"
	"transcode-notifier/repository"
	"transcode-notifier/service"
)

type ServiceDependencies struct {
	TranscoderService service.TranscoderService
}

// TranscodeRequestHandler submits a queued transcode request. Malformed
// requests and duplicate job ids are logged and dropped.
func TranscodeRequestHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var req dto.TranscodeRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal transcode request")
		return nil
	}

	job, err := deps.TranscoderService.CreateJobAndEncode(ctx, req)
	if errors.Is(err, dto.ErrMalformedPayload) || errors.Is(err, repository.ErrJobExists) {
		zerolog.Ctx(ctx).Error().Err(err).Str("input_key", req.InputKey).Msg("dropping transcode request")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create transcoder job: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.ID).
		Str("owner", job.OwnerKind+":"+job.OwnerKey).
		Msg("transcode request submitted")

	return nil
}
