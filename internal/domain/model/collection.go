// Package model defines the core data types shared by the console's services, API client and HTTP layer.
package model

import (
	"encoding/json"
	"net/url"

	domainauth "github.com/target/media-console/internal/domain/auth"
)

// PaginationStyle names how a collection endpoint expects paging parameters.
type PaginationStyle string

const (
	// PaginationSkipLimit sends skip/limit query parameters.
	PaginationSkipLimit PaginationStyle = "skip_limit"
	// PaginationPage sends page/page_size query parameters.
	PaginationPage PaginationStyle = "page"
)

// Collection describes one tenant-scoped CRUD resource of the external API.
type Collection struct {
	// Name is the short identifier used in console routes (/api/{name}).
	Name string
	// Path is the API path relative to the base URL, without a trailing slash.
	Path string
	// Pagination selects the query parameter shape for List.
	Pagination PaginationStyle
	// ReadRole and WriteRole gate access through the console.
	ReadRole  domainauth.Role
	WriteRole domainauth.Role
}

// Known collections. Reports is the only page-based endpoint.
//
//nolint:gochecknoglobals // static read-only registry of API collections
var collections = map[string]Collection{
	"brands":    {Name: "brands", Path: "/api/v1/brands", Pagination: PaginationSkipLimit, ReadRole: domainauth.RoleViewer, WriteRole: domainauth.RoleEditor},
	"feeds":     {Name: "feeds", Path: "/api/v1/feeds", Pagination: PaginationSkipLimit, ReadRole: domainauth.RoleViewer, WriteRole: domainauth.RoleEditor},
	"jobs":      {Name: "jobs", Path: "/api/v1/jobs", Pagination: PaginationSkipLimit, ReadRole: domainauth.RoleViewer, WriteRole: domainauth.RoleEditor},
	"reports":   {Name: "reports", Path: "/api/v1/reports", Pagination: PaginationPage, ReadRole: domainauth.RoleViewer, WriteRole: domainauth.RoleEditor},
	"lists":     {Name: "lists", Path: "/api/v1/lists", Pagination: PaginationSkipLimit, ReadRole: domainauth.RoleViewer, WriteRole: domainauth.RoleEditor},
	"users":     {Name: "users", Path: "/api/v1/users", Pagination: PaginationSkipLimit, ReadRole: domainauth.RoleAdmin, WriteRole: domainauth.RoleAdmin},
	"summaries": {Name: "summaries", Path: "/api/v1/summaries", Pagination: PaginationSkipLimit, ReadRole: domainauth.RoleViewer, WriteRole: domainauth.RoleEditor},
}

// LookupCollection returns the collection registered under name.
func LookupCollection(name string) (Collection, bool) {
	c, ok := collections[name]
	return c, ok
}

// CollectionNames returns every registered collection name in a stable order.
func CollectionNames() []string {
	return []string{"brands", "feeds", "jobs", "reports", "lists", "users", "summaries"}
}

// ListQuery groups parameters for listing a collection.
type ListQuery struct {
	Skip    int
	Limit   int
	Filters url.Values
}

// ListResult is a page of raw items plus the window it covers, always expressed as skip/limit.
type ListResult struct {
	Items []json.RawMessage `json:"items"`
	Total int               `json:"total"`
	Skip  int               `json:"skip"`
	Limit int               `json:"limit"`
}
