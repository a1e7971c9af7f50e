package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/video-gateway/internal/api/auth"
	"github.com/cuongbtq/video-gateway/internal/api/domain"
	"github.com/cuongbtq/video-gateway/internal/api/dto"
	"github.com/cuongbtq/video-gateway/internal/api/upstream"
	"github.com/cuongbtq/video-gateway/internal/api/validation"
)

const (
	statusPath       = "/api/transclation-status/"
	statusByUserPath = "/api/transclation-status-by-user-id/"
)

// CreateJob handles POST /process
// Queues a video translation job for the caller named by the token
func (h *JobHandler) CreateJob(c *gin.Context) {
	body, ok := bindBody(c, "video_url", "end_minute")
	if !ok {
		return
	}

	req, err := jobRequest(body)
	if err != nil {
		RespondError(c, err)
		return
	}

	identity, err := auth.DecodeIdentity(auth.TokenFromContext(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	req.UserID = identity.UserID

	requestID, err := h.submitter.Submit(c.Request.Context(), h.queue, req)
	if err != nil {
		RespondError(c, err)
		return
	}

	h.logger.Info("Job created",
		slog.String("queue", h.queue),
		slog.String("request_id", requestID),
		slog.Int("start_minute", req.StartMinute),
		slog.Int("end_minute", req.EndMinute),
	)

	c.JSON(http.StatusCreated, dto.SubmitJobResponse{
		Status:    domain.JobStatusProcessingStarted,
		RequestID: requestID,
	})
}

func jobRequest(body map[string]any) (domain.JobRequest, error) {
	videoURL, err := validation.URL(body, "video_url")
	if err != nil {
		return domain.JobRequest{}, err
	}

	start, err := validation.OptionalNonNegativeInt(body, "start_minute", 0)
	if err != nil {
		return domain.JobRequest{}, err
	}

	end, err := validation.NonNegativeInt(body, "end_minute")
	if err != nil {
		return domain.JobRequest{}, err
	}

	if end <= start {
		return domain.JobRequest{}, &domain.InvalidFieldError{
			Field:  "end_minute",
			Reason: "must be greater than start_minute",
		}
	}

	return domain.JobRequest{
		StartMinute: start,
		EndMinute:   end,
		VideoURL:    videoURL,
	}, nil
}

// GetStatus handles GET /translation_status
// Looks up one job by request_id and user_id
func (h *JobHandler) GetStatus(c *gin.Context) {
	query := c.Request.URL.Query()
	if err := validation.RequiredQuery(query, "request_id", "user_id"); err != nil {
		RespondError(c, err)
		return
	}

	proxyJSON(c, h.translation, upstream.RoleTranslation, http.MethodGet, statusPath, url.Values{
		"request_id": {query.Get("request_id")},
		"user_id":    {query.Get("user_id")},
	}, nil)
}

// ListByUser handles GET /translations_by_user
// Lists the jobs of the caller named by the token
func (h *JobHandler) ListByUser(c *gin.Context) {
	identity, err := auth.DecodeIdentity(auth.TokenFromContext(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	proxyJSON(c, h.translation, upstream.RoleTranslation, http.MethodGet, statusByUserPath, url.Values{
		"user_id": {fmt.Sprint(identity.UserID)},
	}, nil)
}
