package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/interfaces"
	"github.com/secmon-lab/cogsmith/pkg/domain/model/auth"
	"github.com/secmon-lab/cogsmith/pkg/service/completion"
	"github.com/secmon-lab/cogsmith/pkg/usecase"
	"github.com/secmon-lab/cogsmith/pkg/utils/errutil"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"github.com/secmon-lab/cogsmith/pkg/utils/safe"
)

const maxRequestBody = 1 << 20

// statusOf maps the use case error taxonomy to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrSessionNotFound), errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrSessionNotActive), errors.Is(err, usecase.ErrFollowUpRequired):
		return http.StatusConflict
	case errors.Is(err, completion.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// publicMessage returns the text shown to the client for err at status
func publicMessage(err error, status int) string {
	switch status {
	case http.StatusUnauthorized:
		return usecase.ErrUnauthenticated.Error()
	case http.StatusForbidden:
		return usecase.ErrAccessDenied.Error()
	case http.StatusNotFound:
		return usecase.ErrSessionNotFound.Error()
	case http.StatusConflict:
		if errors.Is(err, usecase.ErrFollowUpRequired) {
			return usecase.ErrFollowUpRequired.Error()
		}
		return usecase.ErrSessionNotActive.Error()
	case http.StatusBadGateway:
		return completion.ErrGeneration.Error()
	default:
		return err.Error()
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusOf(err)
	switch {
	case status == http.StatusBadRequest, status == http.StatusInternalServerError:
		errutil.HandleHTTP(ctx, w, err, status)
	case status == http.StatusBadGateway:
		_ = errutil.Handle(ctx, err, "generation failed")
		writeJSON(ctx, w, status, errorResponse{Error: publicMessage(err, status)})
	default:
		logging.From(ctx).Info("request rejected", "status", status, "error", err.Error())
		writeJSON(ctx, w, status, errorResponse{Error: publicMessage(err, status)})
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	defer safe.Close(r.Context(), body)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return goerr.Wrap(errors.Join(usecase.ErrValidation, err), "invalid request body")
	}
	return nil
}

func callerID(r *http.Request) string {
	if user := auth.UserFromContext(r.Context()); user != nil {
		return user.ID()
	}
	return ""
}
