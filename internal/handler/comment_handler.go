package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"komentar/internal/domain"
	"komentar/internal/middleware"
	"komentar/internal/service/comment"
)

type CommentHandler struct {
	commentService comment.Service
}

func NewCommentHandler(commentService comment.Service) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// Create accepts the comment and returns it immediately. The comment
// becomes visible to viewers (including the author) through the feed
// stream once the change event is reconciled.
func (h *CommentHandler) Create(c *fiber.Ctx) error {
	contentItemID := c.Params("contentItemId")
	if contentItemID == "" {
		return middleware.BadRequest("Missing content item ID")
	}

	var input domain.CreateCommentInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	created, err := h.commentService.Submit(c.Context(), contentItemID, middleware.GetIdentity(c), input)
	if err != nil {
		return mapCommentError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *CommentHandler) Update(c *fiber.Ctx) error {
	commentID, err := uuid.Parse(c.Params("commentId"))
	if err != nil {
		return middleware.BadRequest("Invalid comment ID")
	}

	var input domain.UpdateCommentInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	updated, err := h.commentService.Edit(c.Context(), middleware.GetIdentity(c), commentID, input)
	if err != nil {
		return mapCommentError(err)
	}

	return c.Status(fiber.StatusOK).JSON(updated)
}

func (h *CommentHandler) Delete(c *fiber.Ctx) error {
	commentID, err := uuid.Parse(c.Params("commentId"))
	if err != nil {
		return middleware.BadRequest("Invalid comment ID")
	}

	if err := h.commentService.Delete(c.Context(), middleware.GetIdentity(c), commentID); err != nil {
		return mapCommentError(err)
	}

	return c.Status(fiber.StatusNoContent).SendString("")
}

func mapCommentError(err error) error {
	switch {
	case errors.Is(err, comment.ErrEmptyBody),
		errors.Is(err, comment.ErrParentNotFound),
		errors.Is(err, comment.ErrParentMismatch):
		return middleware.BadRequest(err.Error())
	case errors.Is(err, comment.ErrCommentNotFound):
		return middleware.NotFound(err.Error())
	case errors.Is(err, comment.ErrNotCommentAuthor):
		return middleware.Forbidden(err.Error())
	}
	return err
}
