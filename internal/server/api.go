package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shippingbox/internal/box"
	"shippingbox/internal/rate"
)

// createBoxRequest mirrors box.Form. Weight may arrive as a JSON number or
// as the text typed into the field.
type createBoxRequest struct {
	ReceiverName       string          `json:"receiverName"`
	Weight             json.RawMessage `json:"weight"`
	BoxColor           string          `json:"boxColor"`
	DestinationCountry string          `json:"destinationCountry"`
}

func (req createBoxRequest) form() (box.Form, error) {
	f := box.Form{
		ReceiverName:       req.ReceiverName,
		BoxColor:           req.BoxColor,
		DestinationCountry: req.DestinationCountry,
	}
	raw := bytes.TrimSpace(req.Weight)
	switch {
	case len(raw) == 0 || string(raw) == "null":
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &f.Weight); err != nil {
			return box.Form{}, err
		}
	default:
		f.Weight = string(raw)
	}
	return f, nil
}

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rate.Rates())
}

func (s *Server) handleListBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.ctrl.GetAllBoxes(r.Context())
	if err != nil {
		s.log.Error("list boxes", zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "storage_error", "failed to retrieve boxes")
		return
	}
	if boxes == nil {
		boxes = []box.Box{}
	}
	writeJSON(w, http.StatusOK, boxes)
}

func (s *Server) handleGetBox(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "id required")
		return
	}
	b, ok, err := s.ctrl.GetBoxByID(r.Context(), id)
	if err != nil {
		s.log.Error("get box", zap.String("id", id), zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "storage_error", "failed to retrieve boxes")
		return
	}
	if !ok {
		writeErrorJSON(w, http.StatusNotFound, "resource_not_found", "box not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBox(w http.ResponseWriter, r *http.Request) {
	var req createBoxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	f, err := req.form()
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	v := box.Validate(f)
	if !v.OK() {
		writeValidationJSON(w, v.Errors)
		return
	}

	b, err := s.cache.Save(r.Context(), v.Input)
	switch {
	case errors.Is(err, rate.ErrUnknownCountry):
		writeValidationJSON(w, box.FieldErrors{box.FieldDestinationCountry: "Destination country is not supported"})
		return
	case errors.Is(err, rate.ErrOutOfRange):
		writeValidationJSON(w, box.FieldErrors{box.FieldWeight: "Weight is too large"})
		return
	case err != nil:
		writeErrorJSON(w, http.StatusInternalServerError, "storage_error", msgSaveFail)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type draftWeightRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePutDraftWeight(w http.ResponseWriter, r *http.Request) {
	var req draftWeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	sess := s.session(r)
	key, dirty := draftKey(sess)
	if dirty {
		s.saveSession(w, r, sess)
	}
	writeJSON(w, http.StatusOK, s.drafts.SetWeight(key, req.Value))
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	key, dirty := draftKey(sess)
	if dirty {
		s.saveSession(w, r, sess)
	}
	writeJSON(w, http.StatusOK, s.drafts.Get(key))
}
