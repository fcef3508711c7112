package sns_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"transcode-notifier/constant"
	"transcode-notifier/pkg/sns"
	"transcode-notifier/pkg/sns/snstest"
)

func notificationFields() map[string]string {
	return map[string]string{
		"Type":      "Notification",
		"MessageId": "165545c9-2a5c-472c-8df2-7ff2be2b3b1b",
		"TopicArn":  "arn:aws:sns:eu-west-1:123456789012:transcoder",
		"Subject":   "Amazon Elastic Transcoder has finished transcoding job job-1.",
		"Message":   `{"state":"COMPLETED","jobId":"job-1","pipelineId":"p-1"}`,
		"Timestamp": "2024-05-01T12:00:00.000Z",
	}
}

func newVerifier() sns.Verifier {
	return sns.NewVerifier(sns.NewHTTPFetcher(http.DefaultClient), nil)
}

func TestVerify_ValidSignature(t *testing.T) {
	signer := snstest.NewSigner(t)
	v := newVerifier()

	tests := []struct {
		name        string
		messageType constant.MessageType
		fields      map[string]string
	}{
		{
			name:        "notification",
			messageType: constant.MessageTypeNotification,
			fields:      notificationFields(),
		},
		{
			name:        "notification without subject",
			messageType: constant.MessageTypeNotification,
			fields: func() map[string]string {
				f := notificationFields()
				delete(f, "Subject")
				return f
			}(),
		},
		{
			name:        "subscription confirmation",
			messageType: constant.MessageTypeSubscriptionConfirmation,
			fields: map[string]string{
				"Type":         "SubscriptionConfirmation",
				"MessageId":    "m-2",
				"Token":        "2336412f37fb687f5d51e6e241d09c8058",
				"TopicArn":     "arn:aws:sns:eu-west-1:123456789012:transcoder",
				"Message":      "You have chosen to subscribe to the topic",
				"SubscribeURL": "https://sns.eu-west-1.amazonaws.com/?Action=ConfirmSubscription",
				"Timestamp":    "2024-05-01T12:00:00.000Z",
			},
		},
		{
			name:        "signature version 2",
			messageType: constant.MessageTypeNotification,
			fields: func() map[string]string {
				f := notificationFields()
				f["SignatureVersion"] = "2"
				return f
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := signer.Sign(t, tt.messageType, tt.fields)
			ok, err := v.Verify(context.Background(), tt.messageType, fields)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestVerify_TamperingNeverVerifies(t *testing.T) {
	signer := snstest.NewSigner(t)
	other := snstest.NewSigner(t)
	v := newVerifier()

	tests := []struct {
		name   string
		mutate func(f map[string]string)
	}{
		{
			name: "message byte changed",
			mutate: func(f map[string]string) {
				m := []byte(f["Message"])
				m[2] ^= 0x01
				f["Message"] = string(m)
			},
		},
		{
			name: "timestamp changed",
			mutate: func(f map[string]string) {
				f["Timestamp"] = "2024-05-01T12:00:01.000Z"
			},
		},
		{
			name: "signature byte changed",
			mutate: func(f map[string]string) {
				sig, _ := base64.StdEncoding.DecodeString(f["Signature"])
				sig[10] ^= 0xff
				f["Signature"] = base64.StdEncoding.EncodeToString(sig)
			},
		},
		{
			name: "certificate substituted",
			mutate: func(f map[string]string) {
				f["SigningCertURL"] = other.CertURL()
			},
		},
		{
			name: "signed as version 1 but claims version 2",
			mutate: func(f map[string]string) {
				f["SignatureVersion"] = "2"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := signer.Sign(t, constant.MessageTypeNotification, notificationFields())
			tt.mutate(fields)

			ok, err := v.Verify(context.Background(), constant.MessageTypeNotification, fields)
			assert.False(t, ok)
			assert.NoError(t, err)
		})
	}
}

func TestVerify_WrongMessageTypeHeader(t *testing.T) {
	signer := snstest.NewSigner(t)
	v := newVerifier()

	fields := signer.Sign(t, constant.MessageTypeNotification, notificationFields())
	fields["SubscribeURL"] = "https://example.com"

	ok, err := v.Verify(context.Background(), constant.MessageTypeSubscriptionConfirmation, fields)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_Errors(t *testing.T) {
	signer := snstest.NewSigner(t)
	notFound := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(notFound.Close)
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a certificate"))
	}))
	t.Cleanup(garbage.Close)

	tests := []struct {
		name        string
		messageType constant.MessageType
		mutate      func(f map[string]string)
		unknownType bool
	}{
		{
			name:        "unknown message type",
			messageType: "Bogus",
			unknownType: true,
		},
		{
			name:        "missing message type",
			messageType: "",
			unknownType: true,
		},
		{
			name:        "missing signature",
			messageType: constant.MessageTypeNotification,
			mutate:      func(f map[string]string) { delete(f, "Signature") },
		},
		{
			name:        "signature is not base64",
			messageType: constant.MessageTypeNotification,
			mutate:      func(f map[string]string) { f["Signature"] = "!!not base64!!" },
		},
		{
			name:        "missing cert url",
			messageType: constant.MessageTypeNotification,
			mutate:      func(f map[string]string) { delete(f, "SigningCertURL") },
		},
		{
			name:        "cert url returns 404",
			messageType: constant.MessageTypeNotification,
			mutate:      func(f map[string]string) { f["SigningCertURL"] = notFound.URL },
		},
		{
			name:        "cert url returns garbage",
			messageType: constant.MessageTypeNotification,
			mutate:      func(f map[string]string) { f["SigningCertURL"] = garbage.URL },
		},
		{
			name:        "unsupported signature version",
			messageType: constant.MessageTypeNotification,
			mutate:      func(f map[string]string) { f["SignatureVersion"] = "3" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := signer.Sign(t, constant.MessageTypeNotification, notificationFields())
			if tt.mutate != nil {
				tt.mutate(fields)
			}

			ok, err := newVerifier().Verify(context.Background(), tt.messageType, fields)
			assert.False(t, ok)
			require.Error(t, err)
			if tt.unknownType {
				assert.ErrorIs(t, err, sns.ErrUnknownMessageType)
				return
			}
			var verr *sns.VerificationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestVerify_UnknownTypeDoesNotFetch(t *testing.T) {
	signer := snstest.NewSigner(t)
	fields := signer.Sign(t, constant.MessageTypeNotification, notificationFields())

	_, err := newVerifier().Verify(context.Background(), "Bogus", fields)
	require.ErrorIs(t, err, sns.ErrUnknownMessageType)
	assert.Equal(t, 0, signer.Fetches())
}

func TestVerify_FetchesEveryCallWithoutCache(t *testing.T) {
	signer := snstest.NewSigner(t)
	v := newVerifier()
	fields := signer.Sign(t, constant.MessageTypeNotification, notificationFields())

	for i := 0; i < 3; i++ {
		ok, err := v.Verify(context.Background(), constant.MessageTypeNotification, fields)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 3, signer.Fetches())
}

func TestVerify_HostPattern(t *testing.T) {
	signer := snstest.NewSigner(t)
	fields := signer.Sign(t, constant.MessageTypeNotification, notificationFields())
	fetcher := sns.NewHTTPFetcher(http.DefaultClient)

	strict := sns.NewVerifier(fetcher, regexp.MustCompile(`^sns\.[a-z0-9-]+\.amazonaws\.com$`))
	ok, err := strict.Verify(context.Background(), constant.MessageTypeNotification, fields)
	assert.False(t, ok)
	var verr *sns.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, signer.Fetches())

	fields["SigningCertURL"] = "https://sns.eu-west-1.amazonaws.com.evil.example/cert.pem"
	_, err = strict.Verify(context.Background(), constant.MessageTypeNotification, fields)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "not allowed")
}
