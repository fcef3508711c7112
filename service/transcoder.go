package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder/types"
	"github.com/rs/zerolog"
	"transcode-notifier/dto"
	"transcode-notifier/entities"
	"transcode-notifier/repository"
)

type ElasticTranscoderAPI interface {
	CreateJob(ctx context.Context, params *elastictranscoder.CreateJobInput, optFns ...func(*elastictranscoder.Options)) (*elastictranscoder.CreateJobOutput, error)
}

type TranscoderService interface {
	SubmitJob(ctx context.Context, req dto.TranscodeRequest) (string, error)
	AttachJobOwner(ctx context.Context, jobID string, owner entities.Owner) (*entities.Job, error)
	CreateJobAndEncode(ctx context.Context, req dto.TranscodeRequest) (*entities.Job, error)
}

type transcoderService struct {
	client     ElasticTranscoderAPI
	repo       repository.JobRepository
	pipelineID string
}

func NewTranscoderService(client ElasticTranscoderAPI, repo repository.JobRepository, pipelineID string) TranscoderService {
	return &transcoderService{
		client:     client,
		repo:       repo,
		pipelineID: pipelineID,
	}
}

func (s *transcoderService) SubmitJob(ctx context.Context, req dto.TranscodeRequest) (string, error) {
	if req.InputKey == "" {
		return "", fmt.Errorf("%w: inputKey is required", dto.ErrMalformedPayload)
	}
	if len(req.Outputs) == 0 {
		return "", fmt.Errorf("%w: at least one output is required", dto.ErrMalformedPayload)
	}

	input := &elastictranscoder.CreateJobInput{
		PipelineId:   aws.String(s.pipelineID),
		Input:        &types.JobInput{Key: aws.String(req.InputKey)},
		UserMetadata: req.UserMetadata,
	}
	if req.OutputKeyPrefix != "" {
		input.OutputKeyPrefix = aws.String(req.OutputKeyPrefix)
	}
	for _, o := range req.Outputs {
		output := types.CreateJobOutput{
			Key:      aws.String(o.Key),
			PresetId: aws.String(o.PresetId),
		}
		if o.ThumbnailPattern != "" {
			output.ThumbnailPattern = aws.String(o.ThumbnailPattern)
		}
		if o.SegmentDuration != "" {
			output.SegmentDuration = aws.String(o.SegmentDuration)
		}
		input.Outputs = append(input.Outputs, output)
	}
	for _, p := range req.Playlists {
		input.Playlists = append(input.Playlists, types.CreateJobPlaylist{
			Name:       aws.String(p.Name),
			Format:     aws.String(p.Format),
			OutputKeys: p.OutputKeys,
		})
	}

	out, err := s.client.CreateJob(ctx, input)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("input_key", req.InputKey).Msg("failed to create transcoder job")
		return "", err
	}
	if out.Job == nil || aws.ToString(out.Job.Id) == "" {
		return "", errors.New("transcoder returned no job id")
	}

	jobID := aws.ToString(out.Job.Id)
	zerolog.Ctx(ctx).Info().Str("job_id", jobID).Str("input_key", req.InputKey).Msg("transcoder job created")
	return jobID, nil
}

func (s *transcoderService) AttachJobOwner(ctx context.Context, jobID string, owner entities.Owner) (*entities.Job, error) {
	job := entities.NewJob(jobID, owner)
	if err := s.repo.CreateJob(ctx, job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("failed to create job")
		return nil, err
	}
	return job, nil
}

// CreateJobAndEncode submits req and records the returned job for its owner.
// The owner is resolved first so nothing is submitted for an ownerless request.
func (s *transcoderService) CreateJobAndEncode(ctx context.Context, req dto.TranscodeRequest) (*entities.Job, error) {
	owner, err := req.ResolveOwner()
	if err != nil {
		return nil, err
	}

	jobID, err := s.SubmitJob(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.AttachJobOwner(ctx, jobID, owner)
}
