package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighestRole(t *testing.T) {
	assert.Equal(t, RoleStateAdmin, HighestRole([]string{RoleTeamMember, RoleStateAdmin, RoleCityAdmin}))
	assert.Equal(t, RoleSuperAdmin, HighestRole([]string{RoleNationalAdmin, RoleSuperAdmin}))
	assert.Equal(t, "", HighestRole([]string{"not_a_role"}))
	assert.Equal(t, "", HighestRole(nil))
}

func TestRoleClasses(t *testing.T) {
	cases := []struct {
		roles        []string
		unrestricted bool
		geographic   bool
		admin        bool
	}{
		{[]string{RoleSuperAdmin}, true, false, true},
		{[]string{RoleNationalAdmin, RoleCityAdmin}, true, false, true},
		{[]string{RoleCountyAdmin}, false, true, true},
		{[]string{RoleChapterAdmin, RoleOrganizer}, false, true, true},
		{[]string{RoleOrganizer}, false, false, false},
		{[]string{}, false, false, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.unrestricted, IsUnrestricted(c.roles), "unrestricted %v", c.roles)
		assert.Equal(t, c.geographic, IsGeographicAdmin(c.roles), "geographic %v", c.roles)
		assert.Equal(t, c.admin, IsAdmin(c.roles), "admin %v", c.roles)
	}
}

func TestSections(t *testing.T) {
	assert.True(t, CanAccess([]string{RoleSuperAdmin}, SectionBilling))
	assert.False(t, CanAccess([]string{RoleStateAdmin}, SectionBilling))
	assert.True(t, CanAccess([]string{RoleTeamMember, RoleCommunications}, SectionEmail))
	assert.False(t, CanAccess([]string{RoleTeamMember}, SectionFiles))

	assert.Equal(t, []string{SectionVolunteers, SectionMessaging}, Sections([]string{RoleOrganizer}))
	assert.Empty(t, Sections([]string{"unknown"}))
}
