package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"transcode-notifier/constant"
	"transcode-notifier/entities"
)

var ErrMalformedPayload = errors.New("malformed payload")

// Envelope is the outer SNS push payload. Fields keeps every string-valued
// member as received so the signed canonical message can be rebuilt from it.
type Envelope struct {
	Type             string
	MessageId        string
	TopicArn         string
	Subject          string
	Message          string
	Timestamp        string
	SignatureVersion string
	Signature        string
	SigningCertURL   string
	SubscribeURL     string
	UnsubscribeURL   string
	Token            string

	Fields map[string]string
}

func DecodeEnvelope(body []byte) (*Envelope, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: envelope must be a JSON object", ErrMalformedPayload)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}

	return &Envelope{
		Type:             fields["Type"],
		MessageId:        fields["MessageId"],
		TopicArn:         fields["TopicArn"],
		Subject:          fields["Subject"],
		Message:          fields["Message"],
		Timestamp:        fields["Timestamp"],
		SignatureVersion: fields["SignatureVersion"],
		Signature:        fields["Signature"],
		SigningCertURL:   fields["SigningCertURL"],
		SubscribeURL:     fields["SubscribeURL"],
		UnsubscribeURL:   fields["UnsubscribeURL"],
		Token:            fields["Token"],
		Fields:           fields,
	}, nil
}

// JobEvent is the transcoder status event carried in a Notification's Message.
type JobEvent struct {
	JobID     string
	State     constant.EventState
	MessageID string
	Raw       []byte
	Payload   map[string]any
}

func DecodeJobEvent(messageID, message string) (*JobEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		return nil, fmt.Errorf("%w: message is not valid JSON: %s", ErrMalformedPayload, err.Error())
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: message must be a JSON object", ErrMalformedPayload)
	}

	jobID, _ := payload["jobId"].(string)
	if jobID == "" {
		return nil, fmt.Errorf("%w: message has no jobId", ErrMalformedPayload)
	}
	state, _ := payload["state"].(string)

	return &JobEvent{
		JobID:     jobID,
		State:     constant.EventState(state),
		MessageID: messageID,
		Raw:       []byte(message),
		Payload:   payload,
	}, nil
}

// Pretty returns the event indented by two spaces with key order preserved,
// or the raw text when it cannot be indented.
func (e *JobEvent) Pretty() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, e.Raw, "", "  "); err != nil {
		return string(e.Raw)
	}
	return buf.String()
}

type TranscodeOutput struct {
	Key              string `json:"key"`
	PresetId         string `json:"presetId"`
	ThumbnailPattern string `json:"thumbnailPattern,omitempty"`
	SegmentDuration  string `json:"segmentDuration,omitempty"`
}

type TranscodePlaylist struct {
	Name       string   `json:"name"`
	Format     string   `json:"format"`
	OutputKeys []string `json:"outputKeys"`
}

// TranscodeRequest asks for a transcoder job on behalf of an owner. LessonId
// takes precedence over Owner when both are set.
type TranscodeRequest struct {
	LessonId        uuid.UUID           `json:"lessonId"`
	Owner           *entities.OwnerRef  `json:"owner,omitempty"`
	InputKey        string              `json:"inputKey"`
	OutputKeyPrefix string              `json:"outputKeyPrefix,omitempty"`
	Outputs         []TranscodeOutput   `json:"outputs"`
	Playlists       []TranscodePlaylist `json:"playlists,omitempty"`
	UserMetadata    map[string]string   `json:"userMetadata,omitempty"`
}

func (r TranscodeRequest) ResolveOwner() (entities.Owner, error) {
	if r.LessonId != uuid.Nil {
		return entities.Lesson{Id: r.LessonId}, nil
	}
	if r.Owner != nil && r.Owner.Kind != "" && r.Owner.Key != "" {
		return *r.Owner, nil
	}
	return nil, fmt.Errorf("%w: transcode request has no owner", ErrMalformedPayload)
}

// JobSignalMessage is published to the job events exchange for every signal.
type JobSignalMessage struct {
	Kind    constant.SignalKind `json:"kind"`
	Job     entities.Job        `json:"job"`
	Message map[string]any      `json:"message"`
}
