package models

import (
	"time"
)

// Group represents a GitLab group or subgroup
type Group struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	FullPath string `json:"full_path" yaml:"full_path"`
	WebURL   string `json:"web_url" yaml:"web_url"`
	ParentID *int64 `json:"parent_id" yaml:"parent_id"`
}

// IsRootOf reports whether the group has no parent inside the given set of fetched groups
func (g Group) IsRootOf(known map[int64]bool) bool {
	return g.ParentID == nil || !known[*g.ParentID]
}

// Namespace is the owner of a project; for group projects it is the group
type Namespace struct {
	ID       int64  `json:"id" yaml:"id"`
	FullPath string `json:"full_path" yaml:"full_path"`
}

// Project represents a GitLab project
type Project struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	WebURL    string    `json:"web_url" yaml:"web_url"`
	Namespace Namespace `json:"namespace" yaml:"namespace"`
}

// Epic represents a GitLab group epic. IID is unique only within GroupID.
type Epic struct {
	ID          int64    `json:"id" yaml:"id"`
	IID         int64    `json:"iid" yaml:"iid"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	WebURL      string   `json:"web_url" yaml:"web_url"`
	GroupID     int64    `json:"group_id" yaml:"group_id"`
	Labels      []string `json:"labels" yaml:"labels"`
	State       string   `json:"state" yaml:"state"`
}

// EpicRef is the epic reference GitLab embeds in issue payloads
type EpicRef struct {
	ID      int64 `json:"id" yaml:"id"`
	IID     int64 `json:"iid" yaml:"iid"`
	GroupID int64 `json:"group_id" yaml:"group_id"`
}

// Assignee represents a GitLab user assigned to an issue
type Assignee struct {
	Name      string `json:"name" yaml:"name"`
	Username  string `json:"username" yaml:"username"`
	AvatarURL string `json:"avatar_url" yaml:"avatar_url"`
}

// Milestone represents the milestone an issue is scheduled in
type Milestone struct {
	Title string `json:"title" yaml:"title"`
}

// Issue states as reported by GitLab
const (
	StateOpened = "opened"
	StateClosed = "closed"
)

// Issue represents a GitLab issue. IID is unique only within ProjectID.
type Issue struct {
	ID          int64      `json:"id" yaml:"id"`
	IID         int64      `json:"iid" yaml:"iid"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	WebURL      string     `json:"web_url" yaml:"web_url"`
	ProjectID   int64      `json:"project_id" yaml:"project_id"`
	State       string     `json:"state" yaml:"state"`
	Labels      []string   `json:"labels" yaml:"labels"`
	Assignees   []Assignee `json:"assignees" yaml:"assignees"`
	EpicIID     *int64     `json:"epic_iid" yaml:"epic_iid"`
	Epic        *EpicRef   `json:"epic,omitempty" yaml:"epic,omitempty"`
	Milestone   *Milestone `json:"milestone" yaml:"milestone"`
}

// HasLabel reports whether the issue carries the exact label
func (i Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// TreeEpic groups the issues of one project under an epic. A nil Epic is the
// bucket of issues without an epic.
type TreeEpic struct {
	Epic   *Epic   `json:"epic" yaml:"epic"`
	Issues []Issue `json:"issues" yaml:"issues"`
}

// TreeProject is a project with its epic buckets
type TreeProject struct {
	Project Project    `json:"project" yaml:"project"`
	Epics   []TreeEpic `json:"epics" yaml:"epics"`
}

// TreeGroup is a group with its direct subgroups and projects
type TreeGroup struct {
	Group     Group         `json:"group" yaml:"group"`
	Subgroups []TreeGroup   `json:"subgroups" yaml:"subgroups"`
	Projects  []TreeProject `json:"projects" yaml:"projects"`
}

// SnapshotVersion is bumped whenever the persisted snapshot layout changes
const SnapshotVersion = 1

// Snapshot is the flat result of one aggregation cycle as persisted in the cache
type Snapshot struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Groups    []Group   `json:"groups"`
	Projects  []Project `json:"projects"`
	Epics     []Epic    `json:"epics"`
	Issues    []Issue   `json:"issues"`
}
