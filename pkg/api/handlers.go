package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ssargent/muninn/pkg/archive"
	"github.com/ssargent/muninn/pkg/evt"
)

// defaultMaxUploadBytes caps uploaded log files when the config leaves the
// limit unset.
const defaultMaxUploadBytes = 64 << 20

// Server holds the API server state
type Server struct {
	archive Archiver
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(archiver Archiver, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		archive: archiver,
		config:  config,
		metrics: metrics,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.RecordHealthCheck(true)
	}
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleParse decodes an uploaded legacy event log and returns its records.
// The request body is the raw log file. With ?archive=<source>, the decoded
// records are also stored in the archive under that source name.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	maxBytes := s.config.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("Upload exceeds %d bytes", maxBytes), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		sendError(w, "Request body is empty", http.StatusBadRequest)
		return
	}

	source := r.URL.Query().Get("archive")
	if source != "" && s.archive == nil {
		sendError(w, "Archiving is not enabled on this server", http.StatusBadRequest)
		return
	}

	name := source
	if name == "" {
		name = "upload"
	}

	result, err := evt.Parse(name, body)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordParse("none", false, 0, 0, time.Since(start))
		}
		var structural *evt.StructuralError
		if errors.As(err, &structural) {
			sendError(w, fmt.Sprintf("Not a recognizable event log: %v", structural.Err), http.StatusUnprocessableEntity)
			return
		}
		sendError(w, fmt.Sprintf("Failed to parse log: %v", err), http.StatusInternalServerError)
		return
	}

	if source != "" {
		if err := s.archive.Store(result); err != nil {
			if s.metrics != nil {
				s.metrics.RecordArchiveOperation("store", false)
			}
			sendError(w, fmt.Sprintf("Failed to archive records: %v", err), http.StatusInternalServerError)
			return
		}
		if s.metrics != nil {
			s.metrics.RecordArchiveOperation("store", true)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordParse(result.Report.Strategy.String(), true,
			result.Stats.Decoded, result.Stats.Skipped, time.Since(start))
	}

	sendSuccess(w, newParseResponse(result))
}

// handleListSources lists the source names present in the archive.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.archive.Sources()
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordArchiveOperation("sources", false)
		}
		sendError(w, fmt.Sprintf("Failed to list sources: %v", err), http.StatusInternalServerError)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordArchiveOperation("sources", true)
	}
	if sources == nil {
		sources = []string{}
	}
	sendSuccess(w, sources)
}

// handleArchiveRecords returns archived records for ?source=, optionally
// filtered by exact match with ?field= and ?value=.
func (s *Server) handleArchiveRecords(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		sendError(w, "Query parameter 'source' is required", http.StatusBadRequest)
		return
	}

	field := r.URL.Query().Get("field")
	value := r.URL.Query().Get("value")
	if field == "" && value != "" {
		sendError(w, "Query parameter 'value' requires 'field'", http.StatusBadRequest)
		return
	}

	records, err := s.archive.Query(source, archive.Filter{Field: field, Equals: value})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordArchiveOperation("query", false)
		}
		sendError(w, fmt.Sprintf("Failed to query archive: %v", err), http.StatusBadRequest)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordArchiveOperation("query", true)
	}
	if records == nil {
		records = []archive.ArchivedRecord{}
	}
	sendSuccess(w, records)
}

func newParseResponse(result *evt.ParseResult) ParseResponse {
	resp := ParseResponse{
		Strategy:   result.Report.Strategy.String(),
		Warning:    result.Report.Warning(),
		Expected:   result.Header.ExpectedRecords(),
		Candidates: result.Stats.Candidates,
		Skipped:    result.Stats.Skipped,
		Truncated:  result.Stats.Truncated,
		Records:    make([]archive.ArchivedRecord, 0, len(result.Records)),
	}
	for _, rec := range result.Records {
		resp.Records = append(resp.Records, archive.NewArchivedRecord(rec))
	}
	return resp
}
