package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"transcode-notifier/dto"
)

type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archiver stores signals as JSON objects under notifications/<job id>/.
type Archiver struct {
	storage ObjectPutter
	bucket  string
}

func NewArchiver(storage ObjectPutter, bucket string) *Archiver {
	return &Archiver{storage: storage, bucket: bucket}
}

func (a *Archiver) Handle(ctx context.Context, signal Signal) error {
	body, err := json.MarshalIndent(dto.JobSignalMessage{
		Kind:    signal.Kind,
		Job:     signal.Job,
		Message: signal.Message,
	}, "", "  ")
	if err != nil {
		return err
	}

	objectName := fmt.Sprintf("notifications/%s/%s-%s.json", signal.Job.ID, signal.Kind, uuid.NewString())
	_, err = a.storage.PutObject(ctx, a.bucket, objectName, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().Str("object", objectName).Msg("archived job signal")
	return nil
}
