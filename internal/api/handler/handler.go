package handler

import (
	"log/slog"

	"github.com/cuongbtq/video-gateway/internal/api/domain"
	"github.com/cuongbtq/video-gateway/internal/api/jobs"
	"github.com/cuongbtq/video-gateway/internal/api/upstream"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Accounts    *upstream.Service
	Translation *upstream.Service
	Interaction *upstream.Service
	Submitter   *jobs.Submitter

	// Queue receives submitted jobs, domain.VideoTranslationQueue when empty
	Queue string
}

// AccountHandler handles login and signup
type AccountHandler struct {
	logger   *slog.Logger
	accounts *upstream.Service
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(deps *Dependencies) *AccountHandler {
	return &AccountHandler{
		logger:   deps.Logger,
		accounts: deps.Accounts,
	}
}

// JobHandler handles video translation jobs and their status
type JobHandler struct {
	logger      *slog.Logger
	translation *upstream.Service
	submitter   *jobs.Submitter
	queue       string
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	queue := deps.Queue
	if queue == "" {
		queue = domain.VideoTranslationQueue
	}

	return &JobHandler{
		logger:      deps.Logger,
		translation: deps.Translation,
		submitter:   deps.Submitter,
		queue:       queue,
	}
}

// InteractionHandler handles the content interaction routes
type InteractionHandler struct {
	logger      *slog.Logger
	interaction *upstream.Service
}

// NewInteractionHandler creates a new InteractionHandler instance
func NewInteractionHandler(deps *Dependencies) *InteractionHandler {
	return &InteractionHandler{
		logger:      deps.Logger,
		interaction: deps.Interaction,
	}
}
