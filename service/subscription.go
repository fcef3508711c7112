package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"transcode-notifier/constant"
	"transcode-notifier/pkg/mailer"
)

const subscriptionMailSubject = "SNS Subscription Automatically Confirmed"

var ErrMissingSubscribeURL = errors.New("SubscribeURL is missing")

type SubscriptionService interface {
	Confirm(ctx context.Context, messageType constant.MessageType, topicArn, subscribeURL string) ([]byte, error)
}

type subscriptionService struct {
	mailer        mailer.Mailer
	client        *http.Client
	maxTries      uint
	retryInterval time.Duration
}

func NewSubscriptionService(m mailer.Mailer, client *http.Client, maxTries uint) SubscriptionService {
	if client == nil {
		client = http.DefaultClient
	}
	if maxTries == 0 {
		maxTries = 1
	}
	return &subscriptionService{
		mailer:        m,
		client:        client,
		maxTries:      maxTries,
		retryInterval: 500 * time.Millisecond,
	}
}

// Confirm tells the administrators about the confirmation, then visits
// subscribeURL and returns the response body.
func (s *subscriptionService) Confirm(ctx context.Context, messageType constant.MessageType, topicArn, subscribeURL string) ([]byte, error) {
	if subscribeURL == "" {
		return nil, ErrMissingSubscribeURL
	}

	logger := zerolog.Ctx(ctx).With().Str("topic_arn", topicArn).Str("message_type", string(messageType)).Logger()

	body := fmt.Sprintf("Automatically confirming subscription to topic: %s\n\n%s\n", topicArn, subscribeURL)
	if err := s.mailer.MailAdmins(ctx, subscriptionMailSubject, body); err != nil {
		logger.Error().Err(err).Msg("failed to mail admins")
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInterval
	bo.MaxInterval = 10 * s.retryInterval

	resp, err := backoff.Retry(ctx, func() ([]byte, error) {
		return s.visit(ctx, subscribeURL)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		logger.Error().Err(err).Msg("failed to confirm subscription")
		return nil, err
	}

	logger.Info().Msg("subscription confirmed")
	return resp, nil
}

func (s *subscriptionService) visit(ctx context.Context, subscribeURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subscribeURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("subscribe url returned status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, backoff.Permanent(fmt.Errorf("subscribe url returned status %d", resp.StatusCode))
	}

	return body, nil
}
