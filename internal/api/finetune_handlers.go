package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neooriginal/FSCS/internal/apperr"
	"github.com/neooriginal/FSCS/internal/finetune"
	"github.com/neooriginal/FSCS/internal/session"
	"github.com/neooriginal/FSCS/internal/userdata"
)

type previewResponse struct {
	*finetune.Preview
	UserID string `json:"userId"`
}

func (s *Server) checkFiles(w http.ResponseWriter, r *http.Request) {
	cred := credentialFrom(r.Context())
	preview, err := s.tuning.Preview(cred, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Preview: preview, UserID: session.UserID(cred)})
}

type uploadRequest struct {
	Files      []json.RawMessage `json:"files"`
	CloneNames map[string]string `json:"cloneNames"`
}

type uploadedFile struct {
	Name    string `json:"name"`
	Data    string `json:"data"`
	Content string `json:"content"`
}

// parseUpload accepts a data URL string or a {name, data|content} object.
// ok is false for entries that carry nothing usable.
func parseUpload(raw json.RawMessage) (userdata.Upload, bool) {
	var data string
	if err := json.Unmarshal(raw, &data); err == nil {
		if !strings.Contains(data, ";base64,") {
			return userdata.Upload{}, false
		}
		return userdata.Upload{Data: data}, true
	}

	var f uploadedFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return userdata.Upload{}, false
	}
	if f.Data == "" {
		f.Data = f.Content
	}
	if f.Data == "" {
		return userdata.Upload{}, false
	}
	return userdata.Upload{Name: f.Name, Data: f.Data}, true
}

func (s *Server) uploadFiles(w http.ResponseWriter, r *http.Request) {
	var body uploadRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(body.Files) == 0 {
		s.writeError(w, r, apperr.WithCode(apperr.Validation, "missing_files", "No files provided"))
		return
	}

	cred := credentialFrom(r.Context())
	userKey := session.UserKey(cred)
	saved := 0
	for i, raw := range body.Files {
		up, ok := parseUpload(raw)
		if !ok {
			s.logger.Warn("skipping invalid upload", "user_id", session.UserID(cred), "index", i)
			continue
		}
		up.CloneName = body.CloneNames[up.Name]
		if _, err := s.files.Save(userKey, up); err != nil {
			s.logger.Warn("failed to save upload", "user_id", session.UserID(cred), "index", i, "error", err)
			continue
		}
		saved++
	}
	if saved == 0 {
		s.writeError(w, r, apperr.WithCode(apperr.Validation, "invalid_files", "None of the provided files could be stored"))
		return
	}

	preview, err := s.tuning.Preview(cred, body.CloneNames)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Preview: preview, UserID: session.UserID(cred)})
}

type submitRequest struct {
	FinetuningPrompt string            `json:"finetuningPrompt"`
	CloneNames       map[string]string `json:"cloneNames"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.FinetuningPrompt) == "" {
		s.writeError(w, r, apperr.WithCode(apperr.Validation, "missing_prompt", "finetuningPrompt is required"))
		return
	}

	cred := credentialFrom(r.Context())
	id, err := s.tuning.Submit(r.Context(), cred, body.FinetuningPrompt, body.CloneNames)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"jobId":  id,
		"userId": session.UserID(cred),
	})
}

type userModel struct {
	finetune.FineTunedModel
	UserID string `json:"userId"`
}

func (s *Server) fineTunedModels(w http.ResponseWriter, r *http.Request) {
	cred := credentialFrom(r.Context())
	models, err := s.tuning.ListFineTunedModels(r.Context(), cred)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	userID := session.UserID(cred)
	out := make([]userModel, len(models))
	for i, m := range models {
		out[i] = userModel{FineTunedModel: m, UserID: userID}
	}
	writeJSON(w, http.StatusOK, out)
}

type jobStatusResponse struct {
	*finetune.JobStatus
	UserID string `json:"userId"`
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	cred := credentialFrom(r.Context())
	st, err := s.tuning.JobStatus(r.Context(), cred, chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobStatusResponse{JobStatus: st, UserID: session.UserID(cred)})
}

type askRequest struct {
	Model       string `json:"model"`
	UserMessage string `json:"userMessage"`
}

func (s *Server) askAI(w http.ResponseWriter, r *http.Request) {
	var body askRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.UserMessage) == "" {
		s.writeError(w, r, apperr.WithCode(apperr.Validation, "missing_message", "Message is required"))
		return
	}

	cred := credentialFrom(r.Context())
	resp, err := s.chat.Ask(r.Context(), cred, body.UserMessage, body.Model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := map[string]string{"response": resp.Reply, "userId": session.UserID(cred)}
	if resp.Note != "" {
		out["note"] = resp.Note
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteUserData(w http.ResponseWriter, r *http.Request) {
	cred := credentialFrom(r.Context())
	userKey := session.UserKey(cred)
	userID := session.UserID(cred)

	removed, err := s.files.DeleteAll(userKey)
	if err != nil {
		s.logger.Error("failed to delete user files", "user_id", userID, "error", err)
	}
	if s.store.Delete(userKey) {
		removed = true
	}

	msg := "User data deleted successfully"
	if !removed {
		msg = "No user data found or error deleting data"
	}
	s.logger.Info("user data deletion", "user_id", userID, "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": removed,
		"message": msg,
		"userId":  userID,
	})
}
