package apiserver

import (
	"net/http"

	"github.com/moolen/bonvoyage/internal/api"
	"github.com/moolen/bonvoyage/internal/metrics"
	"github.com/moolen/bonvoyage/internal/trip"
)

// handleFormError re-renders the form with the user's input and the error
// message, using the same status the JSON API would return.
func (s *Server) handleFormError(w http.ResponseWriter, form formValues, err error) {
	apiErr := api.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		s.logger.Error("Plan failed: %v", err)
	}
	s.renderPage(w, apiErr.StatusCode, "form.html", formView{Form: form, Error: apiErr.Message})
}

// handleAPIError writes err as a JSON error response.
func (s *Server) handleAPIError(w http.ResponseWriter, err error) {
	apiErr := api.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		s.logger.Error("Plan failed: %v", err)
	}
	api.Respond(w, apiErr.StatusCode, apiErr.GetResponse())
}

// recordRejected counts input that failed parsing and never reached the
// pipeline. Runs that did start are counted by the executor.
func (s *Server) recordRejected(err error) {
	if trip.IsValidationError(err) {
		s.metrics.ObserveRun(metrics.OutcomeInvalid)
	}
}
