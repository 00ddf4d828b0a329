package http

import (
	"net/http"

	"github.com/secmon-lab/cogsmith/pkg/usecase"
)

func (s *Server) generateStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req usecase.GenerateInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	out, err := s.uc.Plugin.GenerateStep(ctx, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, out)
}

type validateRequest struct {
	Code string `json:"code"`
}

func (s *Server) validatePlugin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.uc.Plugin.ValidatePlugin(req.Code)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

type parseRequest struct {
	Text       string `json:"text"`
	ExpectCode bool   `json:"expectCode"`
}

func (s *Server) parseResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req parseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, s.uc.Plugin.ParseResponse(req.Text, req.ExpectCode))
}
