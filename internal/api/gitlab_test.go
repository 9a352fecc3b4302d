package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

func TestDomainFetches_UseEndpointPaths(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/groups":
			assert.Equal(t, "false", r.URL.Query().Get("top_level_only"))
			writeJSON(w, `[{"id":1,"name":"Root","full_path":"root","web_url":"u","parent_id":null},{"id":2,"name":"Sub","full_path":"root/sub","web_url":"u","parent_id":1}]`)
		case "/api/v4/groups/1/projects":
			assert.Equal(t, "true", r.URL.Query().Get("include_subgroups"))
			writeJSON(w, `[{"id":100,"name":"api","web_url":"u","namespace":{"id":2,"full_path":"root/sub"}}]`)
		case "/api/v4/groups/1/epics":
			writeJSON(w, `[{"id":10,"iid":1,"title":"Epic","group_id":1,"labels":["Type::Feature"],"state":"opened"}]`)
		case "/api/v4/projects/100/issues":
			writeJSON(w, `[{"id":1000,"iid":7,"title":"Bug","project_id":100,"state":"opened","labels":[],"assignees":[{"name":"Alice","username":"alice"}],"epic_iid":1,"epic":{"id":10,"iid":1,"group_id":1},"milestone":{"title":"v1"}}]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}), ClientConfig{})
	ctx := context.Background()

	var pages []int
	groups, err := client.FetchAllGroups(ctx, func(page int) { pages = append(pages, page) })
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Nil(t, groups[0].ParentID)
	require.NotNil(t, groups[1].ParentID)
	assert.Equal(t, int64(1), *groups[1].ParentID)
	assert.Equal(t, []int{1}, pages)

	projects, err := client.FetchProjectsForGroup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Project{{ID: 100, Name: "api", WebURL: "u", Namespace: models.Namespace{ID: 2, FullPath: "root/sub"}}}, projects)

	epics, err := client.FetchEpicsForGroup(ctx, 1)
	require.NoError(t, err)
	require.Len(t, epics, 1)
	assert.Equal(t, int64(1), epics[0].GroupID)

	issues, err := client.FetchIssuesForProject(ctx, 100)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.NotNil(t, issues[0].EpicIID)
	assert.Equal(t, int64(1), *issues[0].EpicIID)
	assert.Equal(t, "alice", issues[0].Assignees[0].Username)
	assert.Equal(t, "v1", issues[0].Milestone.Title)
}

func TestFetchEpicsForGroup_ForbiddenYieldsEmpty(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}), ClientConfig{})

	epics, err := client.FetchEpicsForGroup(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, epics)
}

func TestFetchEpicsForGroup_PropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), ClientConfig{})

	_, err := client.FetchEpicsForGroup(context.Background(), 1)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
}

func TestFetchIssuesForProject_ForbiddenPropagates(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}), ClientConfig{})

	_, err := client.FetchIssuesForProject(context.Background(), 1)
	assert.True(t, IsStatus(err, http.StatusForbidden))
}
