package workflow

import (
	"knowledgehub/backend/pkg/models"
)

// Permissions maps workflow actions to the roles allowed to perform them.
// It is injected at construction time so deployments can customize it and
// tests can pin it down.
type Permissions struct {
	// ReviewGlobalRoles may review requests for any container. Auditor is
	// included so compliance staff can review without being added to every
	// container.
	ReviewGlobalRoles []models.GlobalRole
	// ReviewMemberRoles may review requests targeting their container.
	ReviewMemberRoles []models.MembershipRole
	// ArchiveGlobalRoles may archive any published document.
	ArchiveGlobalRoles []models.GlobalRole
	// ArchiveMemberRoles may archive published documents in their container.
	ArchiveMemberRoles []models.MembershipRole
	// UnpublishGlobalRoles may unpublish. Unpublishing detaches a document
	// from its container and has no delegated authority.
	UnpublishGlobalRoles []models.GlobalRole
}

// DefaultPermissions returns the standard role assignment.
func DefaultPermissions() Permissions {
	return Permissions{
		ReviewGlobalRoles:    []models.GlobalRole{models.RoleAdmin, models.RoleAuditor},
		ReviewMemberRoles:    []models.MembershipRole{models.MemberOwner, models.MemberReviewer},
		ArchiveGlobalRoles:   []models.GlobalRole{models.RoleAdmin, models.RoleAuditor},
		ArchiveMemberRoles:   []models.MembershipRole{models.MemberOwner},
		UnpublishGlobalRoles: []models.GlobalRole{models.RoleAdmin},
	}
}

// Authorizer answers whether a user may perform a workflow action. All
// methods are pure predicates over already-loaded rows; the caller loads the
// user and any container membership first. A nil membership means the user
// holds no role in the container.
type Authorizer struct {
	perms Permissions
}

// NewAuthorizer creates an Authorizer with the given permission assignment.
func NewAuthorizer(perms Permissions) *Authorizer {
	return &Authorizer{perms: perms}
}

// CanRequest reports whether the user may open a publication request for the
// document: admins and the document owner. The draft/changes_requested
// status precondition is enforced separately by the engine so that a wrong
// status surfaces as InvalidStateError rather than ForbiddenError.
func (a *Authorizer) CanRequest(user *models.User, doc *models.Document) bool {
	return user.GlobalRole == models.RoleAdmin || user.ID == doc.OwnerID
}

// CanReview reports whether the user may approve, reject or request changes
// for requests targeting the container of the given membership.
func (a *Authorizer) CanReview(user *models.User, membership *models.Membership) bool {
	if containsGlobal(a.perms.ReviewGlobalRoles, user.GlobalRole) {
		return true
	}
	return membership != nil && containsMember(a.perms.ReviewMemberRoles, membership.Role)
}

// CanCancel reports whether the user may cancel the request: the requester
// or an admin. The pending-only precondition is enforced by the engine.
func (a *Authorizer) CanCancel(user *models.User, req *models.PublicationRequest) bool {
	return user.ID == req.RequestedBy || user.GlobalRole == models.RoleAdmin
}

// CanArchive reports whether the user may archive the published document.
func (a *Authorizer) CanArchive(user *models.User, doc *models.Document, membership *models.Membership) bool {
	if doc.Status != models.StatusPublished {
		return false
	}
	if containsGlobal(a.perms.ArchiveGlobalRoles, user.GlobalRole) {
		return true
	}
	return membership != nil && containsMember(a.perms.ArchiveMemberRoles, membership.Role)
}

// CanUnpublish reports whether the user may unpublish a document.
func (a *Authorizer) CanUnpublish(user *models.User) bool {
	return containsGlobal(a.perms.UnpublishGlobalRoles, user.GlobalRole)
}

func containsGlobal(roles []models.GlobalRole, role models.GlobalRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsMember(roles []models.MembershipRole, role models.MembershipRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
