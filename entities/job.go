package entities

import (
	"time"
	"transcode-notifier/constant"
)

type Job struct {
	ID            string            `json:"id" gorm:"type:varchar(100);primaryKey"`
	OwnerKind     string            `json:"owner_kind" gorm:"type:varchar(100);not null;index:idx_transcode_jobs_owner"`
	OwnerKey      string            `json:"owner_key" gorm:"type:varchar(100);not null;index:idx_transcode_jobs_owner"`
	State         constant.JobState `json:"state" gorm:"not null;default:0;index"`
	Message       string            `json:"message" gorm:"type:text;not null;default:''"`
	LastMessageID string            `json:"last_message_id" gorm:"type:varchar(100);not null;default:''"`
	CreatedAt     time.Time         `json:"created_at" gorm:"type:timestamptz;not null;autoCreateTime"`
	LastModified  time.Time         `json:"last_modified" gorm:"type:timestamptz;not null;autoUpdateTime"`
}

func (Job) TableName() string {
	return "transcode_jobs"
}

// NewJob returns a job in the Submitted state owned by owner.
func NewJob(id string, owner Owner) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:           id,
		OwnerKind:    owner.OwnerKind(),
		OwnerKey:     owner.OwnerKey(),
		State:        constant.JobStateSubmitted,
		CreatedAt:    now,
		LastModified: now,
	}
}
