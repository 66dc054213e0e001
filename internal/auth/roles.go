// Package auth maps a team member's flat role list to section access and
// to the kind of chapter scope the roles grant.
package auth

// Role names as stored on team members
const (
	RoleSuperAdmin           = "super_admin"
	RoleNationalAdmin        = "national_admin"
	RoleStateAdmin           = "state_admin"
	RoleCountyAdmin          = "county_admin"
	RoleCityAdmin            = "city_admin"
	RoleChapterAdmin         = "chapter_admin"
	RoleOrganizer            = "organizer"
	RoleVolunteerCoordinator = "volunteer_coordinator"
	RoleCommunications       = "communications"
	RoleTeamMember           = "team_member"
)

// Sections of the application gated by role
const (
	SectionMembers    = "members"
	SectionChapters   = "chapters"
	SectionEmail      = "email"
	SectionPolls      = "polls"
	SectionVolunteers = "volunteers"
	SectionFiles      = "files"
	SectionMessaging  = "messaging"
	SectionAdmins     = "admins"
	SectionBilling    = "billing"
)

// rank orders known roles; higher wins
var rank = map[string]int{
	RoleSuperAdmin:           100,
	RoleNationalAdmin:        90,
	RoleStateAdmin:           80,
	RoleCountyAdmin:          70,
	RoleCityAdmin:            60,
	RoleChapterAdmin:         50,
	RoleCommunications:       30,
	RoleVolunteerCoordinator: 30,
	RoleOrganizer:            20,
	RoleTeamMember:           10,
}

var allSections = []string{
	SectionMembers, SectionChapters, SectionEmail, SectionPolls, SectionVolunteers,
	SectionFiles, SectionMessaging, SectionAdmins, SectionBilling,
}

var sectionsByRole = map[string][]string{
	RoleSuperAdmin:           allSections,
	RoleNationalAdmin:        {SectionMembers, SectionChapters, SectionEmail, SectionPolls, SectionVolunteers, SectionFiles, SectionMessaging, SectionAdmins},
	RoleStateAdmin:           {SectionMembers, SectionChapters, SectionEmail, SectionPolls, SectionVolunteers, SectionFiles, SectionMessaging},
	RoleCountyAdmin:          {SectionMembers, SectionChapters, SectionEmail, SectionPolls, SectionVolunteers, SectionFiles, SectionMessaging},
	RoleCityAdmin:            {SectionMembers, SectionChapters, SectionEmail, SectionPolls, SectionVolunteers, SectionFiles, SectionMessaging},
	RoleChapterAdmin:         {SectionMembers, SectionEmail, SectionPolls, SectionVolunteers, SectionFiles, SectionMessaging},
	RoleCommunications:       {SectionEmail, SectionPolls, SectionFiles, SectionMessaging},
	RoleVolunteerCoordinator: {SectionVolunteers, SectionFiles, SectionMessaging},
	RoleOrganizer:            {SectionVolunteers, SectionMessaging},
	RoleTeamMember:           {SectionMessaging},
}

// HighestRole returns the highest-ranked known role, or "" when none is known
func HighestRole(roles []string) string {
	best, bestRank := "", 0
	for _, r := range roles {
		if n, ok := rank[r]; ok && n > bestRank {
			best, bestRank = r, n
		}
	}
	return best
}

// IsUnrestricted reports whether the roles see every chapter
func IsUnrestricted(roles []string) bool {
	switch HighestRole(roles) {
	case RoleSuperAdmin, RoleNationalAdmin:
		return true
	}
	return false
}

// IsGeographicAdmin reports whether the highest role covers a chapter and its descendants
func IsGeographicAdmin(roles []string) bool {
	switch HighestRole(roles) {
	case RoleStateAdmin, RoleCountyAdmin, RoleCityAdmin, RoleChapterAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether any admin role is held
func IsAdmin(roles []string) bool {
	return IsUnrestricted(roles) || IsGeographicAdmin(roles)
}

// CanAccess reports whether any held role grants section
func CanAccess(roles []string, section string) bool {
	for _, r := range roles {
		for _, s := range sectionsByRole[r] {
			if s == section {
				return true
			}
		}
	}
	return false
}

// Sections returns the sections the roles grant, in a stable order
func Sections(roles []string) []string {
	out := make([]string, 0, len(allSections))
	for _, s := range allSections {
		if CanAccess(roles, s) {
			out = append(out, s)
		}
	}
	return out
}
