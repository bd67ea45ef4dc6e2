package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hollis-dev/snip/internal/app/model"
	"github.com/hollis-dev/snip/internal/app/repository"
	"github.com/hollis-dev/snip/internal/app/service"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	BaseURL     string
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	baseURL     string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		linkService: deps.LinkService,
		baseURL:     strings.TrimRight(deps.BaseURL, "/"),
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		api.Post("/shorten", h.Shorten)

		links := api.Group("/links")
		{
			links.Get("/", h.ListLinks)
			links.Get("/:code", h.GetLink)
			links.Delete("/:code", h.DeactivateLink)
		}
	}
}

// ShortenRequest represents the request body for creating a link.
type ShortenRequest struct {
	URL        string     `json:"url"`
	CustomCode string     `json:"custom_code,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// LinkResponse is the wire form of a short link.
type LinkResponse struct {
	Code      string     `json:"code"`
	ShortURL  string     `json:"short_url"`
	Target    string     `json:"target"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (h *APIHandler) render(link *model.ShortLink) LinkResponse {
	return LinkResponse{
		Code:      link.Code,
		ShortURL:  h.baseURL + "/" + link.Code,
		Target:    link.Target,
		Active:    link.Active,
		ExpiresAt: link.ExpiresAt,
		CreatedAt: link.CreatedAt,
	}
}

// Shorten handles POST /api/shorten
func (h *APIHandler) Shorten(c *fiber.Ctx) error {
	var req ShortenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.linkService.Shorten(ctx, service.ShortenInput{
		Target:     req.URL,
		CustomCode: req.CustomCode,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		return h.shortenError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(h.render(link))
}

func (h *APIHandler) shortenError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidTarget),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrInvalidExpiry):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, repository.ErrCodeTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "code already taken",
		})
	case errors.Is(err, service.ErrCapacityExhausted):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "could not claim a free code, try again",
		})
	default:
		h.logger.Error("failed to shorten url", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to shorten url",
		})
	}
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed := c.QueryInt("offset"); parsed >= 0 {
			offset = parsed
		}
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	links, err := h.linkService.ListLinks(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = h.render(&links[i])
	}

	return c.JSON(fiber.Map{
		"links":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// GetLink handles GET /api/links/:code
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.linkService.GetLink(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrLinkNotFound) {
			h.logger.Error("failed to get link", zap.Error(err), zap.String("code", code))
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	}

	return c.JSON(h.render(link))
}

// DeactivateLink handles DELETE /api/links/:code
func (h *APIHandler) DeactivateLink(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := h.linkService.Deactivate(ctx, code); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to deactivate link", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to deactivate link",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
