package http

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mailprofiler/adapter/in/mailbox"
	"mailprofiler/adapter/out/export"
	"mailprofiler/core/domain"
	"mailprofiler/core/service/pipeline"
	"mailprofiler/pkg/apperr"
	"mailprofiler/pkg/response"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ResultsHandler serves the profile table of a completed run.
type ResultsHandler struct {
	result *pipeline.RunResult
	ingest *mailbox.Stats
}

// NewResultsHandler creates a results handler.
func NewResultsHandler(result *pipeline.RunResult, ingest *mailbox.Stats) *ResultsHandler {
	return &ResultsHandler{
		result: result,
		ingest: ingest,
	}
}

// Register registers result routes.
func (h *ResultsHandler) Register(router fiber.Router) {
	api := router.Group("/api")

	api.Get("/profiles", h.ListProfiles)
	api.Get("/profiles/:identity", h.GetProfile)
	api.Get("/report", h.Report)
	api.Get("/export.csv", h.ExportCSV)
}

// =============================================================================
// Handlers
// =============================================================================

// ListProfiles returns a page of consolidated profiles, optionally filtered
// by category and minimum message count.
func (h *ResultsHandler) ListProfiles(c *fiber.Ctx) error {
	profiles := h.result.Profiles

	if raw := c.Query("category"); raw != "" {
		category := domain.Category(strings.ToLower(strings.TrimSpace(raw)))
		if !category.Valid() {
			return apperr.BadRequest("unknown category: " + raw)
		}
		profiles = filterProfiles(profiles, func(p domain.ConsolidatedProfile) bool {
			return p.Category == category
		})
	}

	if min := c.QueryInt("min_messages", 0); min > 0 {
		profiles = filterProfiles(profiles, func(p domain.ConsolidatedProfile) bool {
			return p.Messages >= min
		})
	}

	params := response.GetPagination(c, defaultPageSize, maxPageSize)
	from, to, hasMore := params.Window(len(profiles))

	return response.OKWithMeta(c, profiles[from:to], &response.Meta{
		Total:    len(profiles),
		Page:     params.Page,
		PageSize: params.PageSize,
		HasMore:  hasMore,
	})
}

// GetProfile returns the profile for one correspondent identity.
func (h *ResultsHandler) GetProfile(c *fiber.Ctx) error {
	raw, err := url.PathUnescape(c.Params("identity"))
	if err != nil {
		return apperr.BadRequest("invalid identity encoding")
	}
	identity := domain.Identity(strings.ToLower(strings.TrimSpace(raw)))
	if identity == "" {
		return apperr.BadRequest("identity is required")
	}

	for i := range h.result.Profiles {
		if h.result.Profiles[i].Identity == identity {
			return response.OK(c, h.result.Profiles[i])
		}
	}
	return apperr.NotFound("profile " + string(identity))
}

// Report returns the run accounting: pipeline stats plus ingest counters.
func (h *ResultsHandler) Report(c *fiber.Ctx) error {
	body := fiber.Map{
		"run_id": h.result.RunID,
		"stats":  h.result.Stats,
	}
	if h.ingest != nil {
		body["ingest"] = h.ingest
	}
	return response.OK(c, body)
}

// ExportCSV streams the profile table as a CSV download.
func (h *ResultsHandler) ExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, h.result.Profiles); err != nil {
		return apperr.InternalWithError(err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="profiles.csv"`)
	return c.Send(buf.Bytes())
}

func filterProfiles(profiles []domain.ConsolidatedProfile, keep func(domain.ConsolidatedProfile) bool) []domain.ConsolidatedProfile {
	out := make([]domain.ConsolidatedProfile, 0, len(profiles))
	for _, p := range profiles {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
