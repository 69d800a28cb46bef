package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/stackpad/internal/api"
	"github.com/dmitrijs2005/stackpad/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, api.ErrorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if !decode(w, r, &creds) {
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password are required"))
		return
	}

	if _, err := h.users.Register(r.Context(), creds.Username, creds.Password); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			writeError(w, http.StatusConflict, err)
			return
		}
		h.logger.Error(r.Context(), "register failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if !decode(w, r, &creds) {
		return
	}

	pair, err := h.users.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		h.logger.Error(r.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := h.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrRefreshTokenExpired) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		h.logger.Error(r.Context(), "refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) pushEvents(w http.ResponseWriter, r *http.Request) {
	var req api.PushEventsRequest
	if !decode(w, r, &req) {
		return
	}

	accepted, err := h.events.Push(r.Context(), userID(r.Context()), req.Events)
	if err != nil {
		h.logger.Error(r.Context(), "event ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}
	writeJSON(w, http.StatusOK, api.PushEventsResponse{Accepted: accepted})
}

func (h *Handler) pullEvents(w http.ResponseWriter, r *http.Request) {
	cursor, err := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid cursor"))
		return
	}

	evs, next, err := h.events.Pull(r.Context(), userID(r.Context()), cursor)
	if err != nil {
		h.logger.Error(r.Context(), "event pull failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}
	writeJSON(w, http.StatusOK, api.PullEventsResponse{Events: evs, Cursor: next})
}

func (h *Handler) uploadTarget(w http.ResponseWriter, r *http.Request) {
	var req api.UploadTargetRequest
	if !decode(w, r, &req) {
		return
	}

	key, uploadURL, err := h.storage.GetPresignedPutURL(r.Context(), userID(r.Context()))
	if err != nil {
		h.logger.Error(r.Context(), "presign put failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}
	writeJSON(w, http.StatusOK, api.UploadTargetResponse{UploadURL: uploadURL, StorageKey: key})
}

func (h *Handler) downloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, errors.New("key is required"))
		return
	}

	downloadURL, err := h.storage.GetPresignedGetURL(r.Context(), key)
	if err != nil {
		h.logger.Error(r.Context(), "presign get failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}
	writeJSON(w, http.StatusOK, api.DownloadURLResponse{DownloadURL: downloadURL})
}
