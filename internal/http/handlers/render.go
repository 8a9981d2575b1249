package handlers

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/infra/logging"
	"jerseyprint/internal/infra/metrics"
	"jerseyprint/internal/layout"
	"jerseyprint/internal/render/raster"
	"jerseyprint/internal/render/vector"
)

// Render serves the download path of the artwork.
type Render struct {
	Raster  *raster.Compositor
	Vector  *vector.Exporter
	Metrics *metrics.Metrics
	Timeout time.Duration
}

type renderRequest struct {
	ImageURL  string `json:"imageUrl"`
	Name      string `json:"name"`
	Number    string `json:"number"`
	TextColor string `json:"textColor"`
	Guides    bool   `json:"guides"`
}

func (r renderRequest) customization() domain.Customization {
	return domain.Customization{Name: r.Name, Number: r.Number, TextColor: r.TextColor}
}

func parseRender(c *fiber.Ctx, needImage bool) (renderRequest, error) {
	var req renderRequest
	if err := c.BodyParser(&req); err != nil {
		return req, badRequest("Invalid request body")
	}
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if needImage {
		if req.ImageURL == "" {
			return req, badRequest("Invalid imageUrl: missing")
		}
		parsed, err := neturl.ParseRequestURI(req.ImageURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return req, badRequest("Invalid imageUrl: must be HTTP or HTTPS")
		}
	}
	return req, nil
}

func (h *Render) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.Timeout)
}

// PNG composites the customization onto imageUrl.
func (h *Render) PNG(c *fiber.Ctx) error {
	if h.Raster == nil {
		return toFiberError(c, fmt.Errorf("raster compositor: %w", domain.ErrNotConfigured))
	}
	req, err := parseRender(c, true)
	if err != nil {
		return err
	}
	ctx, cancel := h.context(c)
	defer cancel()

	started := time.Now()
	art, err := h.Raster.CompositeURL(ctx, req.ImageURL, req.customization())
	h.Metrics.ObserveRender(metrics.KindRasterBack, started, err)
	if err != nil {
		return toFiberError(c, err)
	}
	return sendArtifact(c, art)
}

// Template renders the transparent print template.
func (h *Render) Template(c *fiber.Ctx) error {
	if h.Vector == nil {
		return toFiberError(c, fmt.Errorf("vector exporter: %w", domain.ErrNotConfigured))
	}
	req, err := parseRender(c, false)
	if err != nil {
		return err
	}
	ctx, cancel := h.context(c)
	defer cancel()

	started := time.Now()
	art, err := h.Vector.Template(ctx, req.customization(), vector.Options{Guides: req.Guides})
	h.Metrics.ObserveRender(metrics.KindTemplateSVG, started, err)
	if err != nil {
		return toFiberError(c, err)
	}
	return sendArtifact(c, art)
}

// Composite renders the SVG composite over imageUrl.
func (h *Render) Composite(c *fiber.Ctx) error {
	if h.Vector == nil {
		return toFiberError(c, fmt.Errorf("vector exporter: %w", domain.ErrNotConfigured))
	}
	req, err := parseRender(c, true)
	if err != nil {
		return err
	}
	ctx, cancel := h.context(c)
	defer cancel()

	started := time.Now()
	art, err := h.Vector.Composite(ctx, req.ImageURL, req.customization(), vector.Options{Guides: req.Guides})
	h.Metrics.ObserveRender(metrics.KindCompositeSVG, started, err)
	if err != nil {
		return toFiberError(c, err)
	}
	return sendArtifact(c, art)
}

// Layout returns the anchors the renderers use for a canvas, for live previews.
func (h *Render) Layout(c *fiber.Ctx) error {
	mode, err := layout.ParseMode(c.Query("mode"))
	if err != nil {
		return toFiberError(c, err)
	}
	l, err := layout.Compute(c.QueryInt("width"), c.QueryInt("height"), mode)
	if err != nil {
		return toFiberError(c, err)
	}
	return c.JSON(l)
}

func sendArtifact(c *fiber.Ctx, art domain.Artifact) error {
	logging.Info("Artifact rendered", "filename", art.Filename, "bytes", len(art.Data), "request_id", requestID(c))
	c.Set(fiber.HeaderContentType, art.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+art.Filename+`"`)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(art.Data)
}
