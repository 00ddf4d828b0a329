package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
	"github.com/secmon-lab/cogsmith/pkg/usecase"
)

func sessionIDParam(r *http.Request) model.SessionID {
	return model.SessionID(chi.URLParam(r, "sessionID"))
}

func stepParam(r *http.Request) (types.StepID, error) {
	step, err := types.ParseStepID(chi.URLParam(r, "step"))
	if err != nil {
		return "", goerr.Wrap(errors.Join(usecase.ErrValidation, err), "invalid step in path")
	}
	return step, nil
}

type createSessionRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	BypassReason string `json:"bypassReason"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	var opts []usecase.CreateOption
	if req.BypassReason != "" {
		opts = append(opts, usecase.WithGateBypass(req.BypassReason))
	}

	session, err := s.uc.Session.CreateSession(ctx, callerID(r), req.Name, req.Description, opts...)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, session)
}

type sessionsResponse struct {
	Sessions []*model.Session `json:"sessions"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := s.uc.Session.ListSessions(ctx, callerID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, sessionsResponse{Sessions: sessions})
}

func (s *Server) listIncomplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := s.uc.FollowUp.ListIncomplete(ctx, callerID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, report)
}

func (s *Server) adminListIncomplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := s.uc.FollowUp.ListIncompleteAsAdmin(ctx, callerID(r), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, report)
}

func (s *Server) gateState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := s.uc.FollowUp.Gate(ctx, callerID(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, state)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.uc.Session.GetSession(ctx, callerID(r), sessionIDParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, session)
}

func (s *Server) appendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req usecase.MessageInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	msg, err := s.uc.Session.AppendMessage(ctx, callerID(r), sessionIDParam(r), req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, msg)
}

type messagesRequest struct {
	Messages []model.Message `json:"messages"`
}

func (s *Server) replaceMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req messagesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	msgs, err := s.uc.Session.ReplaceMessages(ctx, callerID(r), sessionIDParam(r), req.Messages)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, messagesRequest{Messages: msgs})
}

type stepUpdateRequest struct {
	Status      types.StepStatus `json:"status"`
	Progress    int              `json:"progress"`
	StartTime   *time.Time       `json:"startTime"`
	EndTime     *time.Time       `json:"endTime"`
	CurrentStep int              `json:"currentStep"`
}

func (s *Server) updatePipelineStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	step, err := stepParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req stepUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := s.uc.Session.UpdatePipelineStep(ctx, callerID(r), sessionIDParam(r), model.StepUpdate{
		StepID:      step,
		Status:      req.Status,
		Progress:    req.Progress,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		CurrentStep: req.CurrentStep,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, session)
}

type runStepRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) runStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	step, err := stepParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req runStepRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.uc.Pipeline.RunStep(ctx, callerID(r), sessionIDParam(r), step, req.Prompt)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

type completeRequest struct {
	Code           string                `json:"code"`
	PluginMetadata *model.PluginMetadata `json:"pluginMetadata"`
}

func (s *Server) completeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := s.uc.Session.CompleteSession(ctx, callerID(r), sessionIDParam(r), req.Code, req.PluginMetadata)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, session)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) abandonSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := s.uc.Session.AbandonSession(ctx, callerID(r), sessionIDParam(r), req.Reason)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, session)
}

func (s *Server) resumeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.uc.Session.ResumeSession(ctx, callerID(r), sessionIDParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, session)
}

func (s *Server) enforceFollowUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := s.uc.Session.EnforceFollowUp(ctx, callerID(r), sessionIDParam(r), req.Reason)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, session)
}

func (s *Server) disableFollowUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.uc.Session.DisableFollowUp(ctx, callerID(r), sessionIDParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, session)
}

func (s *Server) generateReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reminder, err := s.uc.FollowUp.GenerateReminder(ctx, callerID(r), sessionIDParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, reminder)
}

type versionsResponse struct {
	Versions []*model.CodeVersion `json:"versions"`
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versions, err := s.uc.CodeVersion.ListVersions(ctx, callerID(r), sessionIDParam(r))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, versionsResponse{Versions: versions})
}

type saveVersionRequest struct {
	Code         string `json:"code"`
	Instructions string `json:"instructions"`
	Prompt       string `json:"prompt"`
}

func (s *Server) saveVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req saveVersionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	v, err := s.uc.CodeVersion.SaveVersion(ctx, callerID(r), sessionIDParam(r), req.Code, req.Instructions, req.Prompt)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, v)
}
