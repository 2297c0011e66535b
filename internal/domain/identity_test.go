package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"komentar/internal/domain"
)

func TestIdentityKey(t *testing.T) {
	userID := uuid.New()
	auth := domain.NewAuthenticated(userID, "Alice", nil)
	assert.Equal(t, "user:"+userID.String(), auth.Key())

	anon := domain.NewAnonymous("anon-42")
	assert.Equal(t, "anon:anon-42", anon.Key())
	assert.Equal(t, domain.AnonymousDisplayName, anon.DisplayName)
}

func TestCanModify(t *testing.T) {
	authorID := uuid.New()
	authored := &domain.Comment{AuthorUserID: &authorID, AuthorKey: "user:" + authorID.String()}
	anonComment := &domain.Comment{AuthorKey: "anon:anon-42"}

	author := domain.NewAuthenticated(authorID, "Alice", nil)
	stranger := domain.NewAuthenticated(uuid.New(), "Bob", nil)
	sameDevice := domain.NewAnonymous("anon-42")

	assert.True(t, domain.CanModify(authored, author))
	assert.False(t, domain.CanModify(authored, stranger))
	assert.False(t, domain.CanModify(authored, sameDevice))

	// Anonymous-authored comments are immutable for every viewer,
	// including the very device that wrote them.
	assert.False(t, domain.CanModify(anonComment, author))
	assert.False(t, domain.CanModify(anonComment, stranger))
	assert.False(t, domain.CanModify(anonComment, sameDevice))

	assert.False(t, domain.CanModify(nil, author))
}
