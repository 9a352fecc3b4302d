package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunfischtoast/gitlab-visualizer/config"
	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
	"github.com/thunfischtoast/gitlab-visualizer/internal/render"
)

const goodToken = "glpat-good"

func fakeGitLab(t *testing.T) *httptest.Server {
	t.Helper()

	routes := map[string]string{
		"/api/v4/user":               `{"id":1,"username":"ada"}`,
		"/api/v4/groups":             `[{"id":1,"name":"acme","full_path":"acme","parent_id":null},{"id":2,"name":"tools","full_path":"acme/tools","parent_id":1}]`,
		"/api/v4/groups/1/projects":  `[{"id":10,"name":"app","namespace":{"id":1}},{"id":20,"name":"cli","namespace":{"id":2}}]`,
		"/api/v4/groups/2/projects":  `[{"id":20,"name":"cli","namespace":{"id":2}}]`,
		"/api/v4/groups/1/epics":     `[{"id":5,"iid":1,"group_id":1,"title":"Launch","labels":["Priority::High"]}]`,
		"/api/v4/groups/2/epics":     `[]`,
		"/api/v4/projects/10/issues": `[{"id":100,"iid":1,"project_id":10,"title":"Write docs","description":"Explain the token scopes.","state":"opened","labels":["docs"],"assignees":[{"name":"Ada","username":"ada"}]},{"id":101,"iid":2,"project_id":10,"title":"Old bug","state":"closed","labels":["bug"]}]`,
		"/api/v4/projects/20/issues": `[{"id":200,"iid":1,"project_id":20,"title":"Flag parsing","state":"opened","epic_iid":1,"labels":["Priority::High"]}]`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("PRIVATE-TOKEN") != goodToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

type cli struct {
	t          *testing.T
	configPath string
}

func newCLI(t *testing.T) *cli {
	t.Setenv(config.EnvGitLabToken, "")
	t.Setenv(config.EnvGitLabURL, "")
	return &cli{t: t, configPath: filepath.Join(t.TempDir(), "config.json")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(append([]string{"--config", c.configPath}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "glv %v", args)
	return out
}

func TestCLI_ConnectSyncShow(t *testing.T) {
	server := fakeGitLab(t)
	c := newCLI(t)

	out := c.mustRun("connect", "--url", server.URL+"/", "--token", goodToken)
	assert.Equal(t, fmt.Sprintf("Connected to %s as ada\n", server.URL), out)

	out = c.mustRun("sync")
	assert.Contains(t, out, "Synced 2 groups, 2 projects, 1 epics and 3 issues")

	out = c.mustRun("show", "--offline", "--format", "json")
	var doc render.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 2, doc.IssueCount, "closed issues are hidden by default")
	require.NotNil(t, doc.FetchedAt)
	require.Len(t, doc.Groups, 1)

	// the subgroup project issue sits under the parent group's epic
	require.Len(t, doc.Groups[0].Subgroups, 1)
	cliProject := doc.Groups[0].Subgroups[0].Projects[0]
	require.Len(t, cliProject.Epics, 1)
	require.NotNil(t, cliProject.Epics[0].Epic)
	assert.Equal(t, "Launch", cliProject.Epics[0].Epic.Title)
}

func TestCLI_ShowFilters(t *testing.T) {
	server := fakeGitLab(t)
	c := newCLI(t)
	c.mustRun("connect", "--url", server.URL, "--token", goodToken)

	// show fetches when there is no cache yet
	out := c.mustRun("show", "--status", "all", "--label", "bug")
	assert.Contains(t, out, "#2 Old bug [closed]")
	assert.NotContains(t, out, "Write docs")
	assert.Contains(t, out, "1 issues")

	out = c.mustRun("show", "--offline", "--search", "scopes")
	assert.Contains(t, out, "Write docs")
	assert.Contains(t, out, "Explain the token scopes.")
	assert.NotContains(t, out, "Flag parsing")

	out = c.mustRun("show", "--offline", "--scoped", "Priority=High", "--format", "yaml")
	assert.Contains(t, out, "title: Flag parsing")
	assert.NotContains(t, out, "title: Write docs")

	out = c.mustRun("show", "--offline", "--collapsed")
	assert.Contains(t, out, "app (1 issue)")
	assert.NotContains(t, out, "Write docs")

	_, err := c.run("show", "--offline", "--scoped", "Priority")
	assert.ErrorContains(t, err, "want Key=Value")
	_, err = c.run("show", "--offline", "--sort", "age")
	assert.ErrorContains(t, err, "invalid --sort")
}

func TestCLI_Options(t *testing.T) {
	server := fakeGitLab(t)
	c := newCLI(t)
	c.mustRun("connect", "--url", server.URL, "--token", goodToken)
	c.mustRun("sync")

	out := c.mustRun("options", "--offline")
	assert.Contains(t, out, "Labels: bug, docs\n")
	assert.Contains(t, out, "  Priority: High\n")
	assert.Contains(t, out, "Assignees: Ada (@ada)\n")

	out = c.mustRun("options", "--offline", "--scoped-keys", "Type")
	assert.Contains(t, out, "Labels: Priority::High, bug, docs\n")
}

func TestCLI_ConnectRejectsBadToken(t *testing.T) {
	server := fakeGitLab(t)
	c := newCLI(t)
	c.mustRun("connect", "--url", server.URL, "--token", goodToken)

	_, err := c.run("connect", "--url", server.URL, "--token", "glpat-bad")
	require.ErrorContains(t, err, "failed to verify connection")

	// the previous connection still works
	out := c.mustRun("sync")
	assert.Contains(t, out, "Synced 2 groups")
}

func TestCLI_GroupSelection(t *testing.T) {
	server := fakeGitLab(t)
	c := newCLI(t)
	c.mustRun("connect", "--url", server.URL, "--token", goodToken)
	c.mustRun("sync")

	assert.Equal(t, "Selected 1 groups\n", c.mustRun("groups", "select", "2"))

	out := c.mustRun("groups", "list")
	assert.Contains(t, out, "[ ] 1        acme\n")
	assert.Contains(t, out, "[x] 2        acme/tools\n")

	// selecting drops the cache
	_, err := c.run("show", "--offline")
	assert.ErrorContains(t, err, "no fresh cached data")

	out = c.mustRun("sync")
	assert.Contains(t, out, "Synced 2 groups, 1 projects, 1 epics and 1 issues", "ancestors come along for their epics")

	c.mustRun("groups", "clear")
	out = c.mustRun("groups", "list", "--format", "json")
	assert.NotContains(t, out, `"selected": true`)

	_, err = c.run("groups", "select", "acme")
	assert.ErrorContains(t, err, "invalid group id")
}

func TestCLI_Export(t *testing.T) {
	server := fakeGitLab(t)
	c := newCLI(t)
	c.mustRun("connect", "--url", server.URL, "--token", goodToken)

	path := filepath.Join(t.TempDir(), "export.json")
	out := c.mustRun("export", path)
	assert.Equal(t, fmt.Sprintf("Exported 3 issues to %s\n", path), out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snapshot models.Snapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, models.SnapshotVersion, snapshot.Version)
	assert.Len(t, snapshot.Groups, 2)

	_, err = c.run("export", path, "--format", "text")
	assert.ErrorContains(t, err, "json and yaml only")
}

func TestCLI_ClearAndDisconnect(t *testing.T) {
	server := fakeGitLab(t)
	c := newCLI(t)
	c.mustRun("connect", "--url", server.URL, "--token", goodToken)
	c.mustRun("sync")

	assert.Equal(t, "Cleared cached data\n", c.mustRun("clear"))
	_, err := c.run("show", "--offline")
	assert.ErrorContains(t, err, "no fresh cached data")

	assert.Equal(t, "Disconnected\n", c.mustRun("disconnect"))
	_, err = c.run("sync")
	assert.ErrorContains(t, err, "not connected")
}

func TestCLI_Theme(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, "Theme: dark\n", c.mustRun("theme", "dark"))
	assert.Equal(t, "Theme: dark\n", c.mustRun("theme"))
	assert.Equal(t, "Theme: light\n", c.mustRun("theme", "toggle"))

	_, err := c.run("theme", "sepia")
	assert.Error(t, err)
}

func TestCLI_Init(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("init")
	assert.Equal(t, fmt.Sprintf("Configuration at %s\n", c.configPath), out)
	_, err := os.Stat(c.configPath)
	assert.NoError(t, err)
}

func TestCLI_EnvironmentConnection(t *testing.T) {
	server := fakeGitLab(t)
	c := newCLI(t)
	t.Setenv(config.EnvGitLabURL, server.URL)
	t.Setenv(config.EnvGitLabToken, goodToken)

	out := c.mustRun("sync")
	assert.Contains(t, out, "Synced 2 groups")
}
