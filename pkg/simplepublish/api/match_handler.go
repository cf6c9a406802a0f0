package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/match"
)

// MatchRequest asks for the best candidates for a job. Exactly one of
// Requirements, Job or JobContentID describes the job. Candidates default
// to the configured catalog.
type MatchRequest struct {
	Requirements *match.Requirements      `json:"requirements,omitempty"`
	Job          *simplepublish.JobFields `json:"job,omitempty"`
	JobContentID string                   `json:"jobContentId,omitempty"`
	Candidates   []match.Candidate        `json:"candidates,omitempty"`
	TopK         int                      `json:"topK,omitempty"`
}

// MatchResponse is the ranked result
type MatchResponse struct {
	Requirements match.Requirements `json:"requirements"`
	Results      []match.MatchScore `json:"results"`
}

// Match ranks candidates against a job
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.requestFailed(w, r, fmt.Errorf("invalid match request: %w", err))
		return
	}

	requirements, err := h.requirements(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	candidates := req.Candidates
	if len(candidates) == 0 {
		candidates = h.catalog
	}

	render.JSON(w, r, MatchResponse{
		Requirements: requirements,
		Results:      match.Rank(requirements, candidates, req.TopK),
	})
}

func (h *Handler) requirements(r *http.Request, req MatchRequest) (match.Requirements, error) {
	switch {
	case req.Requirements != nil:
		return *req.Requirements, nil

	case req.Job != nil:
		return match.RequirementsFromJob(req.Job)

	case req.JobContentID != "":
		if h.content == nil {
			return match.Requirements{}, simplepublish.ErrObjectNotFound
		}
		data, err := h.content.Fetch(r.Context(), req.JobContentID)
		if err != nil {
			return match.Requirements{}, err
		}
		doc, err := simplepublish.ParseManifest(data)
		if err != nil {
			return match.Requirements{}, &simplepublish.FieldError{Field: "jobContentId", Reason: "does not reference a manifest"}
		}
		job, ok := doc.Fields.(*simplepublish.JobFields)
		if !ok {
			return match.Requirements{}, &simplepublish.FieldError{Field: "jobContentId", Reason: "does not reference a job"}
		}
		return match.RequirementsFromJob(job)

	default:
		return match.Requirements{}, &simplepublish.FieldError{Field: "requirements", Reason: "one of requirements, job or jobContentId is required"}
	}
}
