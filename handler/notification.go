package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"transcode-notifier/constant"
	"transcode-notifier/dto"
	"transcode-notifier/pkg/sns"
	"transcode-notifier/repository"
	"transcode-notifier/service"
)

const (
	maxEnvelopeSize = 256 << 10

	unverifiedMessage = "Unable to verify authenticity of SNS notification."
)

type NotificationHandler struct {
	verifier      sns.Verifier
	jobs          service.JobStateService
	subscriptions service.SubscriptionService
}

func NewNotificationHandler(verifier sns.Verifier, jobs service.JobStateService, subscriptions service.SubscriptionService) *NotificationHandler {
	return &NotificationHandler{
		verifier:      verifier,
		jobs:          jobs,
		subscriptions: subscriptions,
	}
}

// Handle receives SNS deliveries for the transcoder topic. Every rejection is
// answered with a plain-text body.
func (h *NotificationHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEnvelopeSize))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	envelope, err := dto.DecodeEnvelope(body)
	if err != nil {
		logger.Warn().Err(err).Msg("rejecting notification")
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	messageType := constant.MessageType(c.GetHeader(constant.MessageTypeHeader))
	verified, err := h.verifier.Verify(ctx, messageType, envelope.Fields)
	if err != nil {
		logger.Warn().Err(err).Str("message_type", string(messageType)).Msg("rejecting notification")
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if !verified {
		logger.Warn().Str("message_id", envelope.MessageId).Msg("rejecting notification with bad signature")
		c.String(http.StatusBadRequest, unverifiedMessage)
		return
	}

	switch messageType {
	case constant.MessageTypeSubscriptionConfirmation, constant.MessageTypeUnsubscribeConfirmation:
		h.confirm(c, messageType, envelope)
		return
	}

	event, err := dto.DecodeJobEvent(envelope.MessageId, envelope.Message)
	if err != nil {
		logger.Error().Err(err).Str("message_id", envelope.MessageId).Str("message", envelope.Message).Msg("rejecting notification")
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	err = h.jobs.Apply(ctx, *event)
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		c.String(http.StatusNotFound, err.Error())
		return
	case err != nil:
		c.String(http.StatusInternalServerError, "failed to apply notification")
		return
	}

	c.String(http.StatusOK, "Done")
}

func (h *NotificationHandler) confirm(c *gin.Context, messageType constant.MessageType, envelope *dto.Envelope) {
	resp, err := h.subscriptions.Confirm(c.Request.Context(), messageType, envelope.TopicArn, envelope.SubscribeURL)
	if errors.Is(err, service.ErrMissingSubscribeURL) {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to confirm subscription")
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", resp)
}
