package workflow

import (
	"testing"

	"knowledgehub/backend/pkg/models"

	"github.com/stretchr/testify/assert"
)

func user(id string, role models.GlobalRole) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", GlobalRole: role}
}

func membership(userID string, role models.MembershipRole) *models.Membership {
	return &models.Membership{UserID: userID, ContainerID: "c1", Role: role}
}

func TestCanRequest(t *testing.T) {
	a := NewAuthorizer(DefaultPermissions())
	doc := &models.Document{ID: "d1", OwnerID: "owner", Status: models.StatusDraft}

	assert.True(t, a.CanRequest(user("owner", models.RoleUser), doc))
	assert.True(t, a.CanRequest(user("someone", models.RoleAdmin), doc))
	assert.False(t, a.CanRequest(user("someone", models.RoleUser), doc))
	assert.False(t, a.CanRequest(user("someone", models.RoleAuditor), doc))
}

func TestCanReview(t *testing.T) {
	a := NewAuthorizer(DefaultPermissions())

	tests := []struct {
		name       string
		user       *models.User
		membership *models.Membership
		want       bool
	}{
		{"admin without membership", user("u1", models.RoleAdmin), nil, true},
		{"auditor without membership", user("u1", models.RoleAuditor), nil, true},
		{"plain user without membership", user("u1", models.RoleUser), nil, false},
		{"container owner", user("u1", models.RoleUser), membership("u1", models.MemberOwner), true},
		{"container reviewer", user("u1", models.RoleUser), membership("u1", models.MemberReviewer), true},
		{"container editor", user("u1", models.RoleUser), membership("u1", models.MemberEditor), false},
		{"container viewer", user("u1", models.RoleUser), membership("u1", models.MemberViewer), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.CanReview(tt.user, tt.membership))
		})
	}
}

func TestCanCancel(t *testing.T) {
	a := NewAuthorizer(DefaultPermissions())
	req := &models.PublicationRequest{ID: "r1", RequestedBy: "author", Status: models.RequestPending}

	assert.True(t, a.CanCancel(user("author", models.RoleUser), req))
	assert.True(t, a.CanCancel(user("root", models.RoleAdmin), req))
	assert.False(t, a.CanCancel(user("other", models.RoleUser), req))
	assert.False(t, a.CanCancel(user("other", models.RoleAuditor), req))
}

func TestCanArchive(t *testing.T) {
	a := NewAuthorizer(DefaultPermissions())
	published := &models.Document{ID: "d1", OwnerID: "owner", Status: models.StatusPublished}
	draft := &models.Document{ID: "d2", OwnerID: "owner", Status: models.StatusDraft}

	assert.True(t, a.CanArchive(user("u1", models.RoleAdmin), published, nil))
	assert.True(t, a.CanArchive(user("u1", models.RoleAuditor), published, nil))
	assert.True(t, a.CanArchive(user("u1", models.RoleUser), published, membership("u1", models.MemberOwner)))
	assert.False(t, a.CanArchive(user("u1", models.RoleUser), published, membership("u1", models.MemberReviewer)))
	assert.False(t, a.CanArchive(user("u1", models.RoleUser), published, nil))

	// never archivable unless published
	assert.False(t, a.CanArchive(user("u1", models.RoleAdmin), draft, nil))
}

func TestCanUnpublish(t *testing.T) {
	a := NewAuthorizer(DefaultPermissions())

	assert.True(t, a.CanUnpublish(user("u1", models.RoleAdmin)))
	assert.False(t, a.CanUnpublish(user("u1", models.RoleAuditor)))
	assert.False(t, a.CanUnpublish(user("u1", models.RoleUser)))
}

func TestCustomPermissions(t *testing.T) {
	// Deployment that lets auditors unpublish and nobody but admins review.
	a := NewAuthorizer(Permissions{
		ReviewGlobalRoles:    []models.GlobalRole{models.RoleAdmin},
		UnpublishGlobalRoles: []models.GlobalRole{models.RoleAdmin, models.RoleAuditor},
	})

	assert.False(t, a.CanReview(user("u1", models.RoleAuditor), nil))
	assert.False(t, a.CanReview(user("u1", models.RoleUser), membership("u1", models.MemberReviewer)))
	assert.True(t, a.CanUnpublish(user("u1", models.RoleAuditor)))
}
