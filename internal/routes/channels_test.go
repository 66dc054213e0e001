package routes_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/chapterhub/internal/models"
)

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(user{}, http.MethodGet, "/channels", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(user{token: signToken(t, "no-such-user")}, http.MethodGet, "/channels", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(user{token: "not-a-jwt"}, http.MethodGet, "/channels", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateChannel(t *testing.T) {
	env := newTestEnv(t)

	t.Run("team member is refused", func(t *testing.T) {
		rec := env.do(env.alice, http.MethodPost, "/channels", map[string]string{"name": "general"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unrestricted scope must select a chapter", func(t *testing.T) {
		rec := env.do(env.superAdmin, http.MethodPost, "/channels", map[string]string{"name": "general"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(env.superAdmin, http.MethodPost, "/channels", map[string]string{"name": "county"}, env.county.ID)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var ch models.Channel
		decode(t, rec, &ch)
		assert.Equal(t, env.county.ID, ch.ChapterID)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		rec := env.do(env.stateAdmin, http.MethodPost, "/channels", map[string]string{"name": "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("creator becomes admin", func(t *testing.T) {
		ch := env.createChannel("  general  ")
		assert.Equal(t, "general", ch.Name)
		assert.Equal(t, env.state.ID, ch.ChapterID)

		m, err := env.store.GetMembership(context.Background(), ch.ID, env.stateAdmin.teamMember.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ChannelRoleAdmin, m.Role)
	})
}

func TestChannelScope(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChannel("general")

	rec := env.do(env.outsider, http.MethodGet, "/channels/"+ch.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(env.outsider, http.MethodPost, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(env.alice, http.MethodGet, "/channels/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var list struct {
		Channels []models.ChannelSummary `json:"channels"`
	}
	rec = env.do(env.outsider, http.MethodGet, "/channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Empty(t, list.Channels)

	rec = env.do(env.alice, http.MethodGet, "/channels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list.Channels, 1)
	assert.Equal(t, ch.ID, list.Channels[0].ID)
	assert.False(t, list.Channels[0].IsMember)
	assert.Equal(t, 1, list.Channels[0].MemberCount)

	// a selected chapter outside the caller's jurisdiction
	rec = env.do(env.stateAdmin, http.MethodGet, "/channels", nil, env.otherState.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJoinAndLeave(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChannel("general")

	env.join(env.alice, ch.ID)
	rec := env.do(env.alice, http.MethodPost, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "second join")

	rec = env.do(env.alice, http.MethodGet, "/channels/"+ch.ID+"/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members struct {
		Members []models.ChannelMemberProfile `json:"members"`
	}
	decode(t, rec, &members)
	assert.Len(t, members.Members, 2)

	rec = env.do(env.bob, http.MethodGet, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "non-member listing members")

	rec = env.do(env.alice, http.MethodDelete, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(env.alice, http.MethodDelete, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "leaving twice")
}

func TestLastAdminIsKept(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChannel("general")
	adminID := env.stateAdmin.teamMember.ID

	rec := env.do(env.stateAdmin, http.MethodDelete, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := env.store.GetMembership(context.Background(), ch.ID, adminID)
	require.NoError(t, err, "membership must survive")

	env.join(env.alice, ch.ID)
	rec = env.do(env.stateAdmin, http.MethodPatch, "/channels/"+ch.ID+"/members/"+adminID, map[string]string{"role": "member"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "demoting the last admin")

	rec = env.do(env.alice, http.MethodPatch, "/channels/"+ch.ID+"/members/"+adminID, map[string]string{"role": "member"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "non-admin changing roles")

	rec = env.do(env.stateAdmin, http.MethodPatch, "/channels/"+ch.ID+"/members/"+env.alice.teamMember.ID, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(env.stateAdmin, http.MethodDelete, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "another admin remains")
}

func TestArchivedChannel(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChannel("general")
	env.join(env.alice, ch.ID)

	rec := env.do(env.alice, http.MethodPatch, "/channels/"+ch.ID, map[string]bool{"is_archived": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(env.stateAdmin, http.MethodPatch, "/channels/"+ch.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(env.stateAdmin, http.MethodPatch, "/channels/"+ch.ID, map[string]bool{"is_archived": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(env.alice, http.MethodPost, "/channels/"+ch.ID+"/messages", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(env.bob, http.MethodPost, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the last admin may leave an archived channel
	rec = env.do(env.stateAdmin, http.MethodDelete, "/channels/"+ch.ID+"/members", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// unarchiving an adminless channel makes the caller its admin
	rec = env.do(env.stateAdmin, http.MethodPatch, "/channels/"+ch.ID, map[string]bool{"is_archived": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m, err := env.store.GetMembership(context.Background(), ch.ID, env.stateAdmin.teamMember.ID)
	require.NoError(t, err)
	assert.True(t, m.IsAdmin())
}

func TestNotificationSetting(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChannel("general")

	rec := env.do(env.alice, http.MethodGet, "/channels/"+ch.ID+"/notifications", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.join(env.alice, ch.ID)
	rec = env.do(env.alice, http.MethodPut, "/channels/"+ch.ID+"/notifications", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(env.alice, http.MethodGet, "/channels/"+ch.ID+"/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]bool
	decode(t, rec, &got)
	assert.False(t, got["enabled"])

	rec = env.do(env.alice, http.MethodPut, "/channels/"+ch.ID+"/notifications", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
