package httpapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"chanfeed/internal/errs"
	"chanfeed/internal/publish"
)

type handlers struct {
	svc  Service
	opts Options
}

type addChannelRequest struct {
	URL string `json:"url"`
}

type runRequest struct {
	Days *int `json:"days"`
}

// listChannels handles GET /api/channels
func (h *handlers) listChannels(c fiber.Ctx) error {
	return c.JSON(h.svc.ListChannels())
}

// addChannel handles POST /api/channels
func (h *handlers) addChannel(c fiber.Ctx) error {
	var req addChannelRequest
	if err := decodeBody(c, &req); err != nil {
		return writeError(c, err, h.opts.Development)
	}

	ch, err := h.svc.AddChannel(c.Context(), req.URL)
	if err != nil {
		return writeError(c, err, h.opts.Development)
	}
	return c.Status(fiber.StatusCreated).JSON(ch)
}

// removeChannel handles DELETE /api/channels/:id
func (h *handlers) removeChannel(c fiber.Ctx) error {
	id := c.Params("id")
	if err := h.svc.RemoveChannel(id); err != nil {
		return writeError(c, err, h.opts.Development)
	}
	return c.JSON(fiber.Map{"success": true, "id": id})
}

// listVideos handles GET /api/videos
func (h *handlers) listVideos(c fiber.Ctx) error {
	videos, err := h.svc.Videos()
	if err != nil {
		return writeError(c, err, h.opts.Development)
	}
	return c.JSON(videos)
}

// fetch handles POST /api/fetch
func (h *handlers) fetch(c fiber.Ctx) error {
	return h.run(c, h.svc.FetchOnly)
}

// deploy handles POST /api/deploy
func (h *handlers) deploy(c fiber.Ctx) error {
	return h.run(c, h.svc.Publish)
}

func (h *handlers) run(c fiber.Ctx, fn func(context.Context, int) (*publish.Report, error)) error {
	var req runRequest
	if err := decodeBody(c, &req); err != nil {
		return writeError(c, err, h.opts.Development)
	}
	days := h.opts.DefaultDays
	if req.Days != nil {
		days = *req.Days
	}

	report, err := fn(c.Context(), days)
	if err != nil {
		if report != nil {
			return writeError(c, err, h.opts.Development, fiber.Map{"report": report})
		}
		return writeError(c, err, h.opts.Development)
	}
	return c.JSON(report)
}

// decodeBody unmarshals a JSON body. An empty body leaves v untouched.
func decodeBody(c fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", errs.ErrValidation, err)
	}
	return nil
}
