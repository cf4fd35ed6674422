// Package httpapi exposes the JSON HTTP surface: authentication, person
// records, and document attachments. Handlers stay thin; all crypto and
// storage decisions live in the services they call.
package httpapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/logging"
	"github.com/dmitrijs2005/kinkeeper/internal/server/auth"
	"github.com/dmitrijs2005/kinkeeper/internal/server/services"
)

type Handler struct {
	credentials *services.CredentialService
	persons     *services.PersonService
	documents   *services.DocumentService
	logger      logging.Logger
	jwtSecret   []byte
}

func NewHandler(cs *services.CredentialService, ps *services.PersonService, ds *services.DocumentService, l logging.Logger, secretKey string) *Handler {
	return &Handler{
		credentials: cs,
		persons:     ps,
		documents:   ds,
		logger:      l.With("module", "httpapi"),
		jwtSecret:   []byte(secretKey),
	}
}

// Routes builds the router. Three tiers: public auth routes, routes that
// need only a valid token, and record routes that additionally need the
// caller's encryption key.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.ping)

		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)

			r.Post("/auth/password", h.changePassword)
			r.Delete("/persons/{id}", h.deletePerson)
			r.Get("/persons/{id}/documents", h.listDocuments)
			r.Post("/documents/{id}/uploaded", h.markDocumentUploaded)
			r.Delete("/documents/{id}", h.deleteDocument)

			r.Group(func(r chi.Router) {
				r.Use(h.encryptionKeyMiddleware)

				r.Post("/persons", h.createPerson)
				r.Get("/persons", h.listPersons)
				r.Get("/persons/{id}", h.getPerson)
				r.Put("/persons/{id}", h.updatePerson)
				r.Post("/persons/{id}/documents", h.createDocument)
				r.Get("/documents/{id}/download", h.downloadDocument)
			})
		})
	})

	return r
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// --- auth ---

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeBadRequest(w, "email and password are required")
		return
	}

	user, userKey, err := h.credentials.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	pair, _, err := h.credentials.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, authResponse{
		UserID:        user.ID,
		AccessToken:   pair.AccessToken,
		RefreshToken:  pair.RefreshToken,
		EncryptionKey: hex.EncodeToString(userKey),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	pair, userKey, err := h.credentials.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	userID, err := h.userIDFromAccessToken(pair.AccessToken)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{
		UserID:        userID,
		AccessToken:   pair.AccessToken,
		RefreshToken:  pair.RefreshToken,
		EncryptionKey: hex.EncodeToString(userKey),
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	pair, err := h.credentials.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		h.writeBadRequest(w, "new password is required")
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	if err := h.credentials.ResetPassword(r.Context(), userID, req.NewPassword); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- persons ---

func (h *Handler) createPerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	userKey, _ := UserKeyFromContext(r.Context())

	id, err := h.persons.Create(r.Context(), userID, userKey, personInputFromRequest(&req))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) getPerson(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	userKey, _ := UserKeyFromContext(r.Context())

	view, err := h.persons.Get(r.Context(), userID, userKey, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, personResponseFromView(view))
}

func (h *Handler) listPersons(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	userKey, _ := UserKeyFromContext(r.Context())

	views, err := h.persons.List(r.Context(), userID, userKey)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	out := make([]*personResponse, 0, len(views))
	for _, v := range views {
		out = append(out, personResponseFromView(v))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	userKey, _ := UserKeyFromContext(r.Context())

	if err := h.persons.Update(r.Context(), userID, userKey, chi.URLParam(r, "id"), personInputFromRequest(&req)); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deletePerson(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := h.persons.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- documents ---

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	if req.FileName == "" {
		h.writeBadRequest(w, "file name is required")
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	userKey, _ := UserKeyFromContext(r.Context())

	up, err := h.documents.CreateUpload(r.Context(), userID, userKey, chi.URLParam(r, "id"), req.FileName)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, documentUploadResponse{
		DocumentID: up.DocumentID,
		URL:        up.URL,
		DataKey:    hex.EncodeToString(up.DataKey),
	})
}

func (h *Handler) markDocumentUploaded(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := h.documents.MarkUploaded(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) downloadDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	userKey, _ := UserKeyFromContext(r.Context())

	down, err := h.documents.GetDownload(r.Context(), userID, userKey, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, documentDownloadResponse{
		FileName: down.FileName,
		URL:      down.URL,
		DataKey:  hex.EncodeToString(down.DataKey),
	})
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	docs, err := h.documents.ListByPerson(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	out := make([]*documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, &documentResponse{ID: d.ID, FileName: d.FileName, UploadStatus: d.UploadStatus})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := h.documents.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func (h *Handler) userIDFromAccessToken(token string) (string, error) {
	id, err := auth.GetUserIDFromToken(token, h.jwtSecret)
	if err != nil {
		return "", common.ErrorInternal
	}
	return id, nil
}

func personInputFromRequest(req *personRequest) *services.PersonInput {
	return &services.PersonInput{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Nickname:   req.Nickname,
		BirthDate:  req.BirthDate,
		DeathDate:  req.DeathDate,
		Notes:      req.Notes,
		Address:    req.Address,
		Phone:      req.Phone,
	}
}

func personResponseFromView(v *services.PersonView) *personResponse {
	return &personResponse{
		ID:         v.ID,
		FirstName:  v.FirstName,
		MiddleName: v.MiddleName,
		LastName:   v.LastName,
		Nickname:   v.Nickname,
		BirthDate:  v.BirthDate,
		DeathDate:  v.DeathDate,
		Notes:      v.Notes,
		Address:    v.Address,
		Phone:      v.Phone,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error(context.Background(), "error encoding response", "error", err)
	}
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// writeError maps service errors onto HTTP statuses. Authentication
// failures are uniform: the body never hints whether the account exists.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, common.ErrEncryptionKeyRequired):
		status, msg = http.StatusBadRequest, "encryption key required"
	case errors.Is(err, common.ErrorAlreadyExists):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, common.ErrDecryptionFailed):
		status, msg = http.StatusConflict, "decryption failed"
	case errors.Is(err, common.ErrorNotFound):
		status, msg = http.StatusNotFound, "not found"
	default:
		h.logger.Error(ctx, "internal error", "error", err)
		status, msg = http.StatusInternalServerError, "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
