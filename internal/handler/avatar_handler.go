package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"komentar/internal/middleware"
	"komentar/internal/service/avatar"
)

type AvatarHandler struct {
	avatarService avatar.Service
}

func NewAvatarHandler(avatarService avatar.Service) *AvatarHandler {
	return &AvatarHandler{avatarService: avatarService}
}

func (h *AvatarHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return middleware.BadRequest("Missing avatar file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return middleware.BadRequest("Unreadable avatar file")
	}
	defer file.Close()

	url, err := h.avatarService.Upload(
		c.Context(),
		fileHeader.Filename,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		switch {
		case errors.Is(err, avatar.ErrNotAnImage), errors.Is(err, avatar.ErrTooLarge):
			return middleware.BadRequest(err.Error())
		case errors.Is(err, avatar.ErrStorageUnavailable):
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"avatar_url": url})
}

// Remove deletes a previously uploaded avatar object. The object is
// addressed by its public URL, passed as the url query parameter.
func (h *AvatarHandler) Remove(c *fiber.Ctx) error {
	avatarURL := c.Query("url")
	if avatarURL == "" {
		return middleware.BadRequest("Missing avatar url")
	}

	if err := h.avatarService.Delete(c.Context(), avatarURL); err != nil {
		if errors.Is(err, avatar.ErrStorageUnavailable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
