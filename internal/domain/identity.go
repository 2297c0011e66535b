package domain

import "github.com/google/uuid"

type IdentityKind string

const (
	IdentityAuthenticated IdentityKind = "authenticated"
	IdentityAnonymous     IdentityKind = "anonymous"
)

const AnonymousDisplayName = "Anonymous"

// Identity is the author variant attached to comments and reactions.
// An anonymous identity carries only a client-persisted device id; it
// provides continuity between visits, not verified ownership, and must
// never gate anything security-sensitive.
type Identity struct {
	Kind        IdentityKind `json:"kind"`
	UserID      uuid.UUID    `json:"user_id,omitempty"`
	DeviceID    string       `json:"device_id,omitempty"`
	DisplayName string       `json:"display_name"`
	AvatarURL   *string      `json:"avatar_url,omitempty"`
}

func NewAuthenticated(userID uuid.UUID, displayName string, avatarURL *string) Identity {
	return Identity{
		Kind:        IdentityAuthenticated,
		UserID:      userID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}
}

func NewAnonymous(deviceID string) Identity {
	return Identity{
		Kind:        IdentityAnonymous,
		DeviceID:    deviceID,
		DisplayName: AnonymousDisplayName,
	}
}

func (i Identity) IsAuthenticated() bool {
	return i.Kind == IdentityAuthenticated
}

// Key is the stored author key: "user:<uuid>" for authenticated identities,
// "anon:<device-id>" otherwise.
func (i Identity) Key() string {
	if i.IsAuthenticated() {
		return "user:" + i.UserID.String()
	}
	return "anon:" + i.DeviceID
}

// CanModify reports whether identity may edit or delete the comment.
// Anonymous authorship cannot be re-verified, so anonymous comments are
// immutable for every viewer, including the device that wrote them.
func CanModify(c *Comment, identity Identity) bool {
	if c == nil || c.AuthorUserID == nil {
		return false
	}
	return identity.IsAuthenticated() && *c.AuthorUserID == identity.UserID
}
