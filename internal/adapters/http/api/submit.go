package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aragon/ownership-token-framework/internal/domain/submission"
)

const maxBodyBytes = 64 << 10

type newsletterRequest struct {
	Email string `json:"email"`
}

// SubmitHandler forwards the newsletter and token request forms.
type SubmitHandler struct {
	deps SubmitDependencies
	errs *errorWriter
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies, errs *errorWriter) *SubmitHandler {
	return &SubmitHandler{deps: deps, errs: errs}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// HandleNewsletter handles POST /newsletter.
func (h *SubmitHandler) HandleNewsletter(w http.ResponseWriter, r *http.Request) {
	var body newsletterRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.errs.write(w, r, err)
		return
	}
	res, err := h.deps.Subscribe(r.Context(), body.Email)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSubmitToken handles POST /submit-token.
func (h *SubmitHandler) HandleSubmitToken(w http.ResponseWriter, r *http.Request) {
	var body submission.Request
	if err := decodeBody(w, r, &body); err != nil {
		h.errs.write(w, r, err)
		return
	}
	res, err := h.deps.SubmitRequest(r.Context(), body)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
