package apiserver

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/moolen/bonvoyage/internal/api"
	"github.com/moolen/bonvoyage/internal/pipeline"
	"github.com/moolen/bonvoyage/internal/trip"
)

// maxBodyBytes bounds form and JSON submissions.
const maxBodyBytes = 64 << 10

// formValues are the raw trip fields shared by the form and the JSON API.
type formValues struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
	Interests     string `json:"interests"`
}

func formFromRequest(r *http.Request) formValues {
	return formValues{
		Origin:        r.PostFormValue("origin"),
		Destination:   r.PostFormValue("destination"),
		DepartureDate: r.PostFormValue("departure_date"),
		ReturnDate:    r.PostFormValue("return_date"),
		Interests:     r.PostFormValue("interests"),
	}
}

// planResponse is the JSON API result.
type planResponse struct {
	ID          string                 `json:"id"`
	FileName    string                 `json:"file_name"`
	Itinerary   string                 `json:"itinerary"`
	Stages      []pipeline.StageResult `json:"stages"`
	DownloadURL string                 `json:"download_url"`
	DurationMS  int64                  `json:"duration_ms"`
}

func downloadURL(id string) string {
	return fmt.Sprintf("/plans/%s/download", id)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, "form.html", formView{})
}

// handleSubmit runs the pipeline for a form submission and renders the itinerary.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.handleFormError(w, formValues{}, api.NewInvalidRequestError("Could not read the form: %v", err))
		return
	}

	form := formFromRequest(r)
	req, err := trip.Parse(form.Origin, form.Destination, form.DepartureDate, form.ReturnDate, form.Interests, s.now())
	if err != nil {
		s.recordRejected(err)
		s.handleFormError(w, form, err)
		return
	}

	s.logger.Info("Planning %s", req)
	result, err := s.planner.Plan(r.Context(), req)
	if err != nil {
		s.handleFormError(w, form, err)
		return
	}

	stored := s.plans.Add(req.FileName(), result.Final.Text, s.now())
	s.renderPage(w, http.StatusOK, "result.html", resultView{
		Origin:      req.Origin(),
		Destination: req.Destination(),
		DateFrom:    req.DateFrom(),
		DateTo:      req.DateTo(),
		DownloadURL: downloadURL(stored.ID),
		Itinerary:   renderMarkdown(result.Final.Text),
	})
}

// handleDownload returns a stored itinerary as a text attachment, byte for byte.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	stored, ok := s.plans.Get(id)
	if !ok {
		api.WriteError(w, api.NewNotFoundError("Travel plan %q not found or expired", id))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": stored.FileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(stored.Text))
}

// handleCreatePlan is the JSON form of handleSubmit.
func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var form formValues
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		s.handleAPIError(w, api.NewInvalidRequestError("Invalid JSON body: %v", err))
		return
	}

	req, err := trip.Parse(form.Origin, form.Destination, form.DepartureDate, form.ReturnDate, form.Interests, s.now())
	if err != nil {
		s.recordRejected(err)
		s.handleAPIError(w, err)
		return
	}

	s.logger.Info("Planning %s", req)
	result, err := s.planner.Plan(r.Context(), req)
	if err != nil {
		s.handleAPIError(w, err)
		return
	}

	stored := s.plans.Add(req.FileName(), result.Final.Text, s.now())
	api.Respond(w, http.StatusOK, planResponse{
		ID:          stored.ID,
		FileName:    stored.FileName,
		Itinerary:   result.Final.Text,
		Stages:      result.Stages,
		DownloadURL: downloadURL(stored.ID),
		DurationMS:  result.Duration.Milliseconds(),
	})
}
