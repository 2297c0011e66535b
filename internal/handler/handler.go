package handler

import "komentar/internal/service"

type Handlers struct {
	Comment  *CommentHandler
	Reaction *ReactionHandler
	Feed     *FeedHandler
	Avatar   *AvatarHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Comment:  NewCommentHandler(services.Comment),
		Reaction: NewReactionHandler(services.Reaction),
		Feed:     NewFeedHandler(services.Feed),
		Avatar:   NewAvatarHandler(services.Avatar),
	}
}
