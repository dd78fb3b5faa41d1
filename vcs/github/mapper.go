package github

import "github.com/jonwraymond/reposcore/vcs"

// Upstream wire shapes. Only the consumed fields are declared.
type searchResponse struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []repository `json:"items"`
}

type repository struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	HTMLURL         string   `json:"html_url"`
	StargazersCount int64    `json:"stargazers_count"`
	ForksCount      int64    `json:"forks_count"`
	UpdatedAt       string   `json:"updated_at"`
	CreatedAt       string   `json:"created_at"`
	Language        *string  `json:"language"`
	Description     *string  `json:"description"`
	Owner           owner    `json:"owner"`
	License         *license `json:"license"`
}

type owner struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type license struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	SPDXID  string `json:"spdx_id"`
	NodeID  string `json:"node_id"`
	HTMLURL string `json:"html_url"`
}

func toResult(r searchResponse) *vcs.SearchResult {
	items := make([]vcs.Repository, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, toRepository(it))
	}
	return &vcs.SearchResult{
		TotalCount:        r.TotalCount,
		IncompleteResults: r.IncompleteResults,
		Items:             items,
	}
}

func toRepository(r repository) vcs.Repository {
	repo := vcs.Repository{
		ID:          r.ID,
		Name:        r.Name,
		FullName:    r.FullName,
		HTMLURL:     r.HTMLURL,
		Stars:       r.StargazersCount,
		Forks:       r.ForksCount,
		UpdatedAt:   r.UpdatedAt,
		CreatedAt:   r.CreatedAt,
		Language:    r.Language,
		Description: r.Description,
		Owner: vcs.Owner{
			Login:     r.Owner.Login,
			ID:        r.Owner.ID,
			AvatarURL: r.Owner.AvatarURL,
			HTMLURL:   r.Owner.HTMLURL,
		},
	}
	if r.License != nil {
		repo.License = &vcs.License{
			Key:     r.License.Key,
			Name:    r.License.Name,
			URL:     r.License.URL,
			SPDXID:  r.License.SPDXID,
			NodeID:  r.License.NodeID,
			HTMLURL: r.License.HTMLURL,
		}
	}
	return repo
}
