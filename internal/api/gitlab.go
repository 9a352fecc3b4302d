package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thunfischtoast/gitlab-visualizer/internal/models"
)

// CurrentUser is the subset of /user used to validate a connection
type CurrentUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// ValidateConnection fetches the current user and returns the username
func (c *GitLabClient) ValidateConnection(ctx context.Context) (string, error) {
	var user CurrentUser
	if err := c.Get(ctx, "/user", &user); err != nil {
		return "", fmt.Errorf("failed to validate connection: %w", err)
	}
	return user.Username, nil
}

// FetchAllGroups gets every group visible to the user, subgroups included
func (c *GitLabClient) FetchAllGroups(ctx context.Context, onPage func(page int)) ([]models.Group, error) {
	return FetchAllPages[models.Group](ctx, c, "/groups?top_level_only=false", onPage)
}

// FetchProjectsForGroup gets the projects of a group and all its subgroups
func (c *GitLabClient) FetchProjectsForGroup(ctx context.Context, groupID int64) ([]models.Project, error) {
	return FetchAllPages[models.Project](ctx, c, fmt.Sprintf("/groups/%d/projects?include_subgroups=true", groupID), nil)
}

// FetchEpicsForGroup gets the epics of a group. Epics are a paid-tier
// feature, so a 403 yields an empty list instead of an error.
func (c *GitLabClient) FetchEpicsForGroup(ctx context.Context, groupID int64) ([]models.Epic, error) {
	epics, err := FetchAllPages[models.Epic](ctx, c, fmt.Sprintf("/groups/%d/epics", groupID), nil)
	if err != nil {
		if IsStatus(err, http.StatusForbidden) {
			return []models.Epic{}, nil
		}
		return nil, err
	}
	return epics, nil
}

// FetchIssuesForProject gets all issues of a project
func (c *GitLabClient) FetchIssuesForProject(ctx context.Context, projectID int64) ([]models.Issue, error) {
	return FetchAllPages[models.Issue](ctx, c, fmt.Sprintf("/projects/%d/issues", projectID), nil)
}
