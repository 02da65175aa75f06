// internal/models/query_types.go
package models

type DataSource string

const (
	DataSourceInternalDB  DataSource = "internal_db"
	DataSourceSearchIndex DataSource = "search_index"
)

type MatchSource string

const (
	MatchSourceExternal MatchSource = "external"
	MatchSourceLocal    MatchSource = "local"
)
