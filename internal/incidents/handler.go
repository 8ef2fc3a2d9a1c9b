package incidents

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bissquit/incident-tracker/internal/domain"
	"github.com/bissquit/incident-tracker/internal/pkg/ctxlog"
	"github.com/bissquit/incident-tracker/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes limits the size of accepted request bodies.
const maxBodyBytes = 1 << 20

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: "Incident not found"},
	{Error: ErrNoData, Status: http.StatusBadRequest, Message: "No JSON data provided"},
	{Error: ErrInvalidJSON, Status: http.StatusBadRequest, Message: "Invalid JSON"},
	{
		Error:   ErrInvalidSeverity,
		Status:  http.StatusBadRequest,
		Message: "Invalid severity",
		Detail:  "Severity must be one of: " + domain.Join(domain.Severities()),
	},
	{
		Error:   ErrInvalidStatus,
		Status:  http.StatusBadRequest,
		Message: "Invalid status",
		Detail:  "Status must be one of: " + domain.Join(domain.Statuses()),
	},
}

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service *Service
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers incident routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Post("/", h.CreateIncident)
		r.Get("/{id}", h.GetIncident)
		r.Patch("/{id}", h.UpdateIncident)
		r.Delete("/{id}", h.DeleteIncident)
	})
}

// ListIncidentsResponse is the body of GET /incidents.
type ListIncidentsResponse struct {
	Incidents []domain.Incident `json:"incidents"`
	Total     int               `json:"total"`
}

// DeleteIncidentResponse is the body of DELETE /incidents/{id}.
type DeleteIncidentResponse struct {
	Message         string           `json:"message"`
	DeletedIncident *domain.Incident `json:"deleted_incident"`
}

// CreateIncident handles POST /incidents.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(w, r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var input *CreateIncidentInput
	if p != nil {
		input = &CreateIncidentInput{
			Title:       p.requiredString("title"),
			Description: p.requiredString("description"),
			ReportedBy:  p.requiredString("reported_by"),
		}
		if v, ok := p.optionalString("severity"); ok {
			severity := domain.Severity(v)
			input.Severity = &severity
		}
	}

	incident, err := h.service.CreateIncident(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, incident)
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	var filter IncidentFilter

	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.Status(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("severity"); v != "" {
		severity := domain.Severity(v)
		filter.Severity = &severity
	}

	incidents, err := h.service.ListIncidents(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if incidents == nil {
		incidents = make([]domain.Incident, 0)
	}

	httputil.JSON(w, http.StatusOK, ListIncidentsResponse{
		Incidents: incidents,
		Total:     len(incidents),
	})
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	incident, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// UpdateIncident handles PATCH /incidents/{id}.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	// A body that fails to decode is reported only once the id is known.
	var input *UpdateIncidentInput
	p, err := decodePayload(w, r)
	switch {
	case err != nil:
		input = &UpdateIncidentInput{PayloadErr: err}
	case p != nil:
		input = &UpdateIncidentInput{}
		if v, ok := p.optionalString("status"); ok {
			status := domain.Status(v)
			input.Status = &status
		}
	}

	ctx := ctxlog.With(r.Context(), "incident_id", id)
	incident, err := h.service.UpdateIncident(ctx, id, input)
	if err != nil {
		h.handleServiceError(w, r.WithContext(ctx), err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// DeleteIncident handles DELETE /incidents/{id}.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	ctx := ctxlog.With(r.Context(), "incident_id", id)
	deleted, err := h.service.DeleteIncident(ctx, id)
	if err != nil {
		h.handleServiceError(w, r.WithContext(ctx), err)
		return
	}

	httputil.JSON(w, http.StatusOK, DeleteIncidentResponse{
		Message:         "Incident deleted successfully",
		DeletedIncident: deleted,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *MissingFieldsError
	if errors.As(err, &missing) {
		httputil.ErrorJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error:   "Missing required field(s)",
			Missing: missing.Fields,
		})
		return
	}
	httputil.HandleError(r.Context(), w, err, errorMappings)
}

// parseID reads the {id} path parameter. Ids that cannot exist are
// reported as not found.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrIncidentNotFound
	}
	return id, nil
}

// payload is a decoded JSON object body.
type payload map[string]json.RawMessage

// decodePayload reads a JSON object from the request body.
// An empty body, null and {} all yield a nil payload. The body must hold
// exactly one JSON value.
func decodePayload(w http.ResponseWriter, r *http.Request) (payload, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	var p payload
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, ErrInvalidJSON
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return nil, ErrInvalidJSON
	}
	if len(p) == 0 {
		return nil, nil
	}
	return p, nil
}

// requiredString returns the string value of key, or "" when the key is
// absent or does not hold a JSON string.
func (p payload) requiredString(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// optionalString reports whether key is present. Values that are not JSON
// strings are returned verbatim so that enum validation rejects them.
func (p payload) optionalString(key string) (string, bool) {
	raw, ok := p[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw), true
	}
	return s, true
}
