package auth

import (
	"errors"

	"github.com/atelierline/agency-backend/internal/contacts/domain"
)

// ErrUnauthorized is returned whenever an actor fails a guard predicate.
var ErrUnauthorized = errors.New("unauthorized")

// Actor is the caller identity every operation receives: the contact id
// and its role, as supplied by the auth middleware.
type Actor struct {
	ID   string
	Role domain.Role
}

// The guard predicates below are pure functions with no side effects:
// given a role and a resource's ownership they answer yes or no, nothing
// else.

// IsStaff reports whether the actor belongs to the agency team.
func IsStaff(a Actor) bool {
	return a.Role == domain.RoleStaff
}

// IsProjectOwner reports whether the actor exclusively owns the project.
func IsProjectOwner(a Actor, ownerID string) bool {
	return a.ID != "" && a.ID == ownerID
}

// CanSubmitBrief: briefs are authored by staff.
func CanSubmitBrief(a Actor) bool {
	return IsStaff(a)
}

// CanDecideBrief: approving or rejecting a brief, requesting a
// modification and validating delivery are owner-only actions.
func CanDecideBrief(a Actor, ownerID string) bool {
	return IsProjectOwner(a, ownerID)
}

// CanViewProject: the owner and any staff member may read a project.
func CanViewProject(a Actor, ownerID string) bool {
	return IsStaff(a) || IsProjectOwner(a, ownerID)
}

// CanCreateProject: projects are opened by staff when a contact begins
// onboarding.
func CanCreateProject(a Actor) bool {
	return IsStaff(a)
}

// CanRunCampaign: bulk outreach is an operator action.
func CanRunCampaign(a Actor) bool {
	return IsStaff(a)
}
