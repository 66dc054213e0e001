package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/chapterhub/internal/auth"
	"github.com/nikhil/chapterhub/internal/models"
)

// fakeTree: national -> state -> {county-a, county-b}; county-a -> city
type fakeTree map[string][]string

func (f fakeTree) Descendants(_ context.Context, id string) ([]string, error) {
	if _, ok := f[id]; !ok {
		return nil, nil
	}
	out := []string{id}
	for _, child := range f[id] {
		sub, _ := f.Descendants(context.Background(), child)
		out = append(out, sub...)
	}
	return out, nil
}

var tree = fakeTree{
	"national": {"state"},
	"state":    {"county-a", "county-b"},
	"county-a": {"city"},
	"county-b": {},
	"city":     {},
}

func member(chapter string, roles ...string) models.TeamMember {
	m := models.TeamMember{ID: "tm", Roles: roles}
	if chapter != "" {
		m.ChapterID = &chapter
	}
	return m
}

func TestResolveUnrestricted(t *testing.T) {
	ctx := context.Background()

	s, err := Resolve(ctx, tree, member("", auth.RoleNationalAdmin), "")
	require.NoError(t, err)
	assert.True(t, s.Unrestricted)
	assert.True(t, s.Includes("anything"))
	_, ok := s.Concrete()
	assert.False(t, ok)

	s, err = Resolve(ctx, tree, member("", auth.RoleSuperAdmin), "county-a")
	require.NoError(t, err)
	assert.False(t, s.Unrestricted)
	assert.ElementsMatch(t, []string{"county-a", "city"}, s.ChapterIDs)
	root, ok := s.Concrete()
	assert.True(t, ok)
	assert.Equal(t, "county-a", root)

	_, err = Resolve(ctx, tree, member("", auth.RoleSuperAdmin), "missing")
	assert.ErrorIs(t, err, ErrNoJurisdiction)
}

func TestResolveGeographicAdmin(t *testing.T) {
	ctx := context.Background()
	admin := member("state", auth.RoleStateAdmin)

	s, err := Resolve(ctx, tree, admin, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"state", "county-a", "county-b", "city"}, s.ChapterIDs)
	assert.False(t, s.Includes("national"))

	s, err = Resolve(ctx, tree, admin, "county-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"county-a", "city"}, s.ChapterIDs)

	_, err = Resolve(ctx, tree, member("county-b", auth.RoleCountyAdmin), "county-a")
	assert.ErrorIs(t, err, ErrNoJurisdiction)

	s, err = Resolve(ctx, tree, member("", auth.RoleCityAdmin), "")
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestResolveRankAndFile(t *testing.T) {
	ctx := context.Background()
	tm := member("county-a", auth.RoleOrganizer)

	s, err := Resolve(ctx, tree, tm, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"county-a"}, s.ChapterIDs)
	assert.False(t, s.Includes("city"))

	s, err = Resolve(ctx, tree, tm, "county-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"county-a"}, s.ChapterIDs)

	_, err = Resolve(ctx, tree, tm, "city")
	assert.ErrorIs(t, err, ErrNoJurisdiction)

	s, err = Resolve(ctx, tree, member("", auth.RoleTeamMember), "")
	require.NoError(t, err)
	assert.True(t, s.Empty())
}
