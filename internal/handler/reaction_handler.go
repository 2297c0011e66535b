package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"komentar/internal/middleware"
	"komentar/internal/service/reaction"
)

type ReactionHandler struct {
	reactionService reaction.Service
}

func NewReactionHandler(reactionService reaction.Service) *ReactionHandler {
	return &ReactionHandler{reactionService: reactionService}
}

type toggleInput struct {
	Emoji string `json:"emoji"`
}

// Toggle flips the viewer's reaction for (comment, emoji) and reports the
// resulting presence. Counts visible to other viewers update through
// their feed streams.
func (h *ReactionHandler) Toggle(c *fiber.Ctx) error {
	commentID, err := uuid.Parse(c.Params("commentId"))
	if err != nil {
		return middleware.BadRequest("Invalid comment ID")
	}

	var input toggleInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	present, err := h.reactionService.Toggle(c.Context(), commentID, input.Emoji, middleware.GetIdentity(c))
	if err != nil {
		switch {
		case errors.Is(err, reaction.ErrInvalidEmoji):
			return middleware.BadRequest(err.Error())
		case errors.Is(err, reaction.ErrCommentNotFound):
			return middleware.NotFound(err.Error())
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"reacted": present})
}
