package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"movie-app/internal/domain"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	res, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusCreated, "User registered successfully", res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	res, err := h.users.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "User logged in", slog.String("userID", res.User.ID))
	h.respondOK(w, r, http.StatusOK, "Login successful", res)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"user": user})
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	user, err := h.users.UpdateMe(r.Context(), UserID(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "Profile updated successfully", data{"user": user})
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	query := qp.str("search")
	opts := qp.listOptions()
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.users.Search(r.Context(), query, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"users": res.Items, "pagination": res.Pagination})
}

func (h *Handler) UserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Profile(r.Context(), mux.Vars(r)["id"], UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", profile)
}

func (h *Handler) TopReviewers(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	limit := qp.positiveInt("limit")
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	reviewers, err := h.reviews.TopReviewers(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"topReviewers": reviewers})
}
