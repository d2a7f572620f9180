package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelierline/agency-backend/internal/contacts/domain"
)

var (
	staff    = Actor{ID: "s-1", Role: domain.RoleStaff}
	client   = Actor{ID: "c-1", Role: domain.RoleClient}
	prospect = Actor{ID: "p-1", Role: domain.RoleProspect}
)

func TestGuards(t *testing.T) {
	t.Run("brief submission is staff only", func(t *testing.T) {
		assert.True(t, CanSubmitBrief(staff))
		assert.False(t, CanSubmitBrief(client))
		assert.False(t, CanSubmitBrief(prospect))
	})

	t.Run("brief decisions belong to the exclusive owner", func(t *testing.T) {
		assert.True(t, CanDecideBrief(client, "c-1"))
		assert.False(t, CanDecideBrief(client, "c-2"))
		assert.False(t, CanDecideBrief(staff, "c-1"), "staff may not decide on the owner's behalf")
	})

	t.Run("owner or staff may view a project", func(t *testing.T) {
		assert.True(t, CanViewProject(client, "c-1"))
		assert.True(t, CanViewProject(staff, "c-1"))
		assert.False(t, CanViewProject(prospect, "c-1"))
	})

	t.Run("project creation and campaigns are operator actions", func(t *testing.T) {
		assert.True(t, CanCreateProject(staff))
		assert.False(t, CanCreateProject(client))
		assert.True(t, CanRunCampaign(staff))
		assert.False(t, CanRunCampaign(prospect))
	})

	t.Run("an anonymous actor owns nothing", func(t *testing.T) {
		anon := Actor{}
		assert.False(t, IsProjectOwner(anon, ""))
		assert.False(t, CanViewProject(anon, ""))
	})
}
