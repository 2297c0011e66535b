package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"

	"komentar/internal/config"
	"komentar/internal/realtime"
	"komentar/internal/repository"
	"komentar/internal/service/avatar"
	"komentar/internal/service/comment"
	"komentar/internal/service/feed"
	"komentar/internal/service/identity"
	"komentar/internal/service/reaction"
)

type Services struct {
	Identity identity.Service
	Comment  comment.Service
	Reaction reaction.Service
	Feed     feed.Service
	Avatar   avatar.Service
}

func NewServices(repos *repository.Repositories, redisClient *redis.Client, minioClient *minio.Client, cfg *config.Config) *Services {
	channel := realtime.NewRedisChannel(redisClient)

	identityService := identity.NewService(cfg)
	commentService := comment.NewService(repos.Comment, channel, redisClient)
	reactionService := reaction.NewService(repos.Reaction, repos.Comment, channel, redisClient)
	feedService := feed.NewService(repos.Comment, reactionService, channel, redisClient, cfg)
	avatarService := avatar.NewService(minioClient, cfg)

	return &Services{
		Identity: identityService,
		Comment:  commentService,
		Reaction: reactionService,
		Feed:     feedService,
		Avatar:   avatarService,
	}
}
