package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/flashstack/internal/apierr"
	"github.com/example/flashstack/internal/logger"
	"github.com/example/flashstack/internal/masterytest"
	"github.com/example/flashstack/internal/review"
	"github.com/example/flashstack/internal/sweep"
	"github.com/example/flashstack/pkg/models"
)

type Sweeper interface {
	Run(ctx context.Context, now time.Time) sweep.Summary
}

type ReviewService interface {
	Answer(ctx context.Context, userID, cardID int64, answer string) (*review.Outcome, error)
	Due(ctx context.Context, userID int64, limit int) ([]review.DueCard, error)
}

type TestService interface {
	Create(ctx context.Context, userID, stackID int64, count int) (*masterytest.Attempt, error)
	Submit(ctx context.Context, testID int64, answers map[int64]string, mode masterytest.Mode) (*masterytest.Result, error)
}

type StatsReader interface {
	GetUserStats(ctx context.Context, userID int64, dueBefore time.Time, masteryThreshold int) (*models.UserStats, error)
}

const defaultDueLimit = 20

// Handler serves the HTTP API
type Handler struct {
	log              *logger.Logger
	cronSecret       string
	sweeper          Sweeper
	reviews          ReviewService
	tests            TestService
	stats            StatsReader
	masteryThreshold int
	now              func() time.Time
}

// GET|POST /api/check-streaks
// Runs the hourly sweep. Requires "Authorization: Bearer <CRON_SECRET>" when a secret is configured.
func (h *Handler) CheckStreaks(c *gin.Context) {
	if !h.authorizedCron(c.GetHeader("Authorization")) {
		RespondError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("unauthorized")))
		return
	}
	RespondOK(c, h.sweeper.Run(c.Request.Context(), h.now()))
}

func (h *Handler) authorizedCron(header string) bool {
	if h.cronSecret == "" {
		return true
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

type answerRequest struct {
	UserID int64  `json:"userId" binding:"required"`
	CardID int64  `json:"cardId" binding:"required"`
	Answer string `json:"answer"`
}

// POST /api/reviews
func (h *Handler) SubmitReview(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	out, err := h.reviews.Answer(c.Request.Context(), req.UserID, req.CardID, req.Answer)
	if err != nil {
		h.logFailure("review failed", err)
		RespondError(c, err)
		return
	}
	RespondOK(c, out)
}

// GET /api/users/:id/due?limit=
func (h *Handler) DueCards(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit := defaultDueLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondError(c, apierr.BadRequest("invalid_limit", errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}
	due, err := h.reviews.Due(c.Request.Context(), userID, limit)
	if err != nil {
		h.logFailure("due cards failed", err)
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"cards": due})
}

// GET /api/users/:id/stats
func (h *Handler) UserStats(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.stats.GetUserStats(c.Request.Context(), userID, h.now(), h.masteryThreshold)
	if err != nil {
		h.logFailure("stats failed", err)
		RespondError(c, err)
		return
	}
	RespondOK(c, stats)
}

type createTestRequest struct {
	UserID int64 `json:"userId" binding:"required"`
	Count  int   `json:"count"`
}

// POST /api/stacks/:id/tests
func (h *Handler) CreateTest(c *gin.Context) {
	stackID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	attempt, err := h.tests.Create(c.Request.Context(), req.UserID, stackID, req.Count)
	if err != nil {
		h.logFailure("create test failed", err)
		RespondError(c, err)
		return
	}
	RespondOK(c, attempt)
}

type submitTestRequest struct {
	Answers map[int64]string `json:"answers" binding:"required"`
	Mode    masterytest.Mode `json:"mode"`
}

// POST /api/tests/:id/submit
func (h *Handler) SubmitTest(c *gin.Context) {
	testID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req submitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.BadRequest("invalid_request", err))
		return
	}
	res, err := h.tests.Submit(c.Request.Context(), testID, req.Answers, req.Mode)
	if err != nil {
		h.logFailure("submit test failed", err)
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		RespondError(c, apierr.BadRequest("invalid_id", errors.New("invalid "+name)))
		return 0, false
	}
	return id, true
}

func (h *Handler) logFailure(msg string, err error) {
	if toAPIError(err).Status >= http.StatusInternalServerError {
		h.log.Error(msg, "error", err)
	}
}
