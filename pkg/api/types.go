package api

import (
	"github.com/ssargent/muninn/pkg/archive"
	"github.com/ssargent/muninn/pkg/evt"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ParseResponse is the payload returned for a parsed log upload.
type ParseResponse struct {
	Strategy   string                   `json:"strategy"`
	Warning    string                   `json:"warning,omitempty"`
	Expected   int                      `json:"expected_records"`
	Candidates int                      `json:"candidates"`
	Skipped    int                      `json:"skipped"`
	Truncated  int                      `json:"truncated"`
	Records    []archive.ArchivedRecord `json:"records"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port           int
	Bind           string
	APIKey         string
	MaxUploadBytes int64 // 0 means the default upload cap
}

// Archiver is the subset of the record archive the API depends on. A nil
// Archiver disables the archive routes.
type Archiver interface {
	Store(result *evt.ParseResult) error
	Records(source string) ([]archive.ArchivedRecord, error)
	Query(source string, filter archive.Filter) ([]archive.ArchivedRecord, error)
	Sources() ([]string, error)
}
