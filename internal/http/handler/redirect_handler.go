package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hollis-dev/snip/internal/app/repository"
	"github.com/hollis-dev/snip/internal/app/service"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the redirect handler.
type RedirectDeps struct {
	Logger    *zap.Logger
	Resolver  *service.Resolver
	Publisher *service.AccessPublisher
}

// RedirectHandler serves the hot path: code in, 302 out.
type RedirectHandler struct {
	logger    *zap.Logger
	resolver  *service.Resolver
	publisher *service.AccessPublisher
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:    logger,
		resolver:  deps.Resolver,
		publisher: deps.Publisher,
	}
}

// Register wires redirect routes onto the provided router. The :code
// route is a catch-all, so this handler must be registered after the
// API routes.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/:code", h.Redirect)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "snip",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Redirect handles GET /:code and issues the redirect to the target.
func (h *RedirectHandler) Redirect(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing link code",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.resolver.Resolve(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLinkNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "short link not found",
			})
		case errors.Is(err, service.ErrLinkExpired):
			return c.Status(fiber.StatusGone).JSON(fiber.Map{
				"error": "link expired",
			})
		case errors.Is(err, service.ErrLinkInactive):
			return c.Status(fiber.StatusGone).JSON(fiber.Map{
				"error": "link is disabled",
			})
		default:
			h.logger.Error("failed to resolve link", zap.Error(err), zap.String("code", code))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal server error",
			})
		}
	}

	if h.publisher != nil {
		// Copy request values out before detaching; the fiber context
		// is recycled once the handler returns.
		ip := c.IP()
		userAgent := c.Get("User-Agent")
		referer := c.Get("Referer")
		go h.publishAccessEvent(code, ip, userAgent, referer)
	}

	h.logger.Debug("redirecting short link", zap.String("code", code), zap.String("target", link.Target))
	return c.Redirect(link.Target, fiber.StatusFound)
}

func (h *RedirectHandler) publishAccessEvent(code, ip, userAgent, referer string) {
	if err := h.publisher.Publish(code, ip, userAgent, referer); err != nil {
		h.logger.Error("failed to publish access event", zap.Error(err), zap.String("code", code))
	}
}
