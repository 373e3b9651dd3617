package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/catalog-ingest/cmd/ingest/models"
	"github.com/lyzr/catalog-ingest/common/logger"
	"github.com/lyzr/catalog-ingest/common/policy"
	rediscommon "github.com/lyzr/catalog-ingest/common/redis"
)

// HeaderArtifactVersion carries the committed version on a successful submit
const HeaderArtifactVersion = "X-Artifact-Version"

// Ingester records one submitted artifact
type Ingester interface {
	Submit(ctx context.Context, artifact *models.Artifact) (*models.Receipt, error)
}

// SubmitHandler handles artifact submissions
type SubmitHandler struct {
	ingester Ingester
	policy   *policy.Policy
	log      *logger.Logger
}

// NewSubmitHandler creates a new submit handler
func NewSubmitHandler(ingester Ingester, admission *policy.Policy, log *logger.Logger) *SubmitHandler {
	return &SubmitHandler{
		ingester: ingester,
		policy:   admission,
		log:      log,
	}
}

// Submit ingests one artifact
// POST /submit
func (h *SubmitHandler) Submit(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		c.Response().Header().Set(echo.HeaderAllow, http.MethodPost)
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed")
	}

	// Bind treats an empty body as an empty artifact.
	if c.Request().ContentLength == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	var artifact models.Artifact
	if err := c.Bind(&artifact); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	if h.policy != nil {
		if err := h.policy.Admit(&artifact); err != nil {
			if errors.Is(err, policy.ErrRejected) {
				h.log.WithContext(c.Request().Context()).Warn("submission rejected",
					"artifact_id", artifact.ID,
					"error", err,
				)
				return echo.NewHTTPError(http.StatusUnprocessableEntity, policy.ErrRejected.Error()).SetInternal(err)
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to evaluate policy").SetInternal(err)
		}
	}

	receipt, err := h.ingester.Submit(c.Request().Context(), &artifact)
	if err != nil {
		if errors.Is(err, rediscommon.ErrLockHeld) {
			return echo.NewHTTPError(http.StatusConflict, "artifact is being ingested by another submission").SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to ingest artifact").SetInternal(err)
	}

	c.Response().Header().Set(HeaderArtifactVersion, strconv.FormatInt(receipt.Version, 10))
	return c.NoContent(http.StatusCreated)
}
