package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"transcode-notifier/entities"
	"transcode-notifier/repository"
)

type JobHandler struct {
	repo repository.JobRepository
}

func NewJobHandler(repo repository.JobRepository) *JobHandler {
	return &JobHandler{repo: repo}
}

type jobResponse struct {
	ID           string    `json:"id"`
	OwnerKind    string    `json:"owner_kind"`
	OwnerKey     string    `json:"owner_key"`
	State        string    `json:"state"`
	StateCode    int       `json:"state_code"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

func newJobResponse(job *entities.Job) jobResponse {
	return jobResponse{
		ID:           job.ID,
		OwnerKind:    job.OwnerKind,
		OwnerKey:     job.OwnerKey,
		State:        job.State.String(),
		StateCode:    int(job.State),
		Message:      job.Message,
		CreatedAt:    job.CreatedAt,
		LastModified: job.LastModified,
	}
}

// GetJob handles GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.repo.FindJobById(c.Request.Context(), id)
	if errors.Is(err, repository.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("job_id", id).Msg("failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, newJobResponse(job))
}
