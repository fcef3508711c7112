package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"transcode-notifier/config"
	"transcode-notifier/dto"
	"transcode-notifier/pkg/rabbitmq"
)

// submit enqueues a transcode request the same way a backend service would.
func submit(cfg *config.Config) *cobra.Command {
	var (
		lesson       string
		inputKey     string
		outputPrefix string
		outputs      []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "enqueue a transcode request for a lesson",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildTranscodeRequest(lesson, inputKey, outputPrefix, outputs)
			if err != nil {
				return err
			}
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}

			logger := zerolog.New(cmd.OutOrStdout()).With().Timestamp().Logger()
			ctx := logger.WithContext(cmd.Context())

			conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
			if err != nil {
				return err
			}
			defer conn.Close()

			publisher, err := rabbitmq.NewPublisher(ctx, conn, cfg.Queue.ExchangeName, cfg.Queue.Kind)
			if err != nil {
				return err
			}
			if err := publisher.Publish(ctx, cfg.Queue.RequestRoutingKey, body); err != nil {
				return fmt.Errorf("failed to publish transcode request: %w", err)
			}

			logger.Info().Str("lesson_id", lesson).Str("input_key", inputKey).Msg("transcode request published")
			return nil
		},
	}

	cmd.Flags().StringVar(&lesson, "lesson", "", "lesson id that owns the job")
	cmd.Flags().StringVar(&inputKey, "input", "", "input object key in the pipeline bucket")
	cmd.Flags().StringVar(&outputPrefix, "output-prefix", "", "prefix for every output key")
	cmd.Flags().StringSliceVar(&outputs, "output", nil, "output as key=presetId, repeatable")

	return cmd
}

func buildTranscodeRequest(lesson, inputKey, outputPrefix string, outputs []string) (dto.TranscodeRequest, error) {
	lessonID, err := uuid.Parse(lesson)
	if err != nil {
		return dto.TranscodeRequest{}, fmt.Errorf("invalid lesson id %q: %w", lesson, err)
	}
	if inputKey == "" {
		return dto.TranscodeRequest{}, errors.New("--input is required")
	}
	if len(outputs) == 0 {
		return dto.TranscodeRequest{}, errors.New("at least one --output is required")
	}

	req := dto.TranscodeRequest{
		LessonId:        lessonID,
		InputKey:        inputKey,
		OutputKeyPrefix: outputPrefix,
	}
	for _, o := range outputs {
		key, preset, ok := strings.Cut(o, "=")
		if !ok || key == "" || preset == "" {
			return dto.TranscodeRequest{}, fmt.Errorf("invalid --output %q, want key=presetId", o)
		}
		req.Outputs = append(req.Outputs, dto.TranscodeOutput{Key: key, PresetId: preset})
	}

	return req, nil
}
