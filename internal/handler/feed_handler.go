package handler

import (
	"context"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"komentar/internal/domain"
	"komentar/internal/middleware"
	"komentar/internal/service/feed"
)

type FeedHandler struct {
	feedService feed.Service
}

func NewFeedHandler(feedService feed.Service) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// Window serves a one-shot derived window for clients that do not hold a
// stream open.
func (h *FeedHandler) Window(c *fiber.Ctx) error {
	contentItemID := c.Params("contentItemId")
	if contentItemID == "" {
		return middleware.BadRequest("Missing content item ID")
	}

	params := domain.DefaultWindow()
	if err := c.QueryParser(&params); err != nil {
		return middleware.BadRequest("Invalid pagination parameters")
	}

	snap, err := h.feedService.LoadWindow(c.Context(), contentItemID, params, middleware.GetIdentity(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(snap)
}

type streamCommand struct {
	Action string `json:"action"`
}

// Stream upgrades to a WebSocket and pushes a full window snapshot every
// time the session reconciles. The client sends {"action":"load_more"} to
// extend the window; everything else it sees arrives as snapshots.
func (h *FeedHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		contentItemID := conn.Params("contentItemId")
		viewer, _ := conn.Locals(middleware.IdentityContextKey).(domain.Identity)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		session, err := h.feedService.OpenSession(ctx, contentItemID, viewer)
		if err != nil {
			log.Printf("feed: open session for %s: %v", contentItemID, err)
			_ = conn.WriteJSON(domain.WindowSnapshot{
				ContentItemID: contentItemID,
				Roots:         []*domain.CommentNode{},
				Err:           "failed to open feed",
			})
			return
		}
		defer session.Close()

		go func() {
			defer cancel()
			for {
				var cmd streamCommand
				if err := conn.ReadJSON(&cmd); err != nil {
					return
				}
				if cmd.Action == "load_more" {
					session.LoadMore()
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-session.Snapshots():
				if !ok {
					return
				}
				if err := conn.WriteJSON(snap); err != nil {
					return
				}
			}
		}
	})
}

// UpgradeRequired gates the stream route to WebSocket upgrade requests.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
