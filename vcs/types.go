package vcs

import (
	"fmt"
	"strings"
)

// Kind identifies an upstream provider.
type Kind string

const (
	KindGitHub Kind = "github"
	KindGitLab Kind = "gitlab"
)

// Precedence is the order in which Registry.Default looks for a provider.
var Precedence = []Kind{KindGitHub, KindGitLab}

// ParseKind parses a provider name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Precedence {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// SearchParams is a structured repository query. Zero values mean unset.
type SearchParams struct {
	Language    string `json:"language,omitempty"`
	CreatedFrom string `json:"createdFrom,omitempty"` // YYYY-MM-DD
	PerPage     int    `json:"perPage,omitempty"`
	Page        int    `json:"page,omitempty"`
	Sort        string `json:"sort,omitempty"`
	Order       string `json:"order,omitempty"`
}

// Owner is the account owning a repository.
type Owner struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatarUrl"`
	HTMLURL   string `json:"htmlUrl"`
}

// License is a repository's detected license.
type License struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	SPDXID  string `json:"spdxId,omitempty"`
	NodeID  string `json:"nodeId,omitempty"`
	HTMLURL string `json:"htmlUrl,omitempty"`
}

// Repository is the provider-independent repository shape. Values are not
// modified after mapping.
type Repository struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	FullName    string   `json:"fullName"`
	HTMLURL     string   `json:"htmlUrl"`
	Stars       int64    `json:"stars"`
	Forks       int64    `json:"forks"`
	UpdatedAt   string   `json:"updatedAt"`
	CreatedAt   string   `json:"createdAt"`
	Language    *string  `json:"language"`
	Description *string  `json:"description"`
	Owner       Owner    `json:"owner"`
	License     *License `json:"license"`
}

// SearchResult is one page of canonical search results.
type SearchResult struct {
	TotalCount        int          `json:"totalCount"`
	IncompleteResults bool         `json:"incompleteResults"`
	Items             []Repository `json:"items"`
}
