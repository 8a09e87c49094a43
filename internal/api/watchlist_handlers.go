package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"movie-app/internal/domain"
	"movie-app/internal/service"
)

// MyWatchlist lists the caller's own watchlist, private entries included.
func (h *Handler) MyWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	h.listWatchlist(w, r, userID, userID)
}

// UserWatchlist lists another user's watchlist. Only public entries are shown unless
// the caller is the owner.
func (h *Handler) UserWatchlist(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["id"]
	if _, err := h.users.GetActive(r.Context(), ownerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.listWatchlist(w, r, ownerID, UserID(r.Context()))
}

func (h *Handler) listWatchlist(w http.ResponseWriter, r *http.Request, ownerID, viewerID string) {
	qp := newQueryParser(r.URL.Query())
	filter := service.WatchlistFilter{
		Status:   domain.WatchStatus(qp.str("status")),
		Priority: domain.Priority(qp.str("priority")),
	}
	opts := qp.listOptions()
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.watchlist.List(r.Context(), ownerID, viewerID, filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"watchlist": res.Items, "pagination": res.Pagination})
}

// DueReminders lists entries across all users whose reminder has come due. Admin only.
func (h *Handler) DueReminders(w http.ResponseWriter, r *http.Request) {
	entries, err := h.watchlist.DueReminders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"reminders": entries})
}

func (h *Handler) WatchlistStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.watchlist.Stats(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"stats": stats})
}

func (h *Handler) CheckWatchlist(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := pathInt64(mux.Vars(r)["tmdbId"])
	if !ok {
		h.writeError(w, r, domain.NewValidationError("tmdbId", "must be a positive integer"))
		return
	}
	res, err := h.watchlist.Check(r.Context(), UserID(r.Context()), tmdbID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", res)
}

func (h *Handler) PopularWatchlist(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	limit := qp.positiveInt("limit")
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	movies, err := h.watchlist.Popular(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"movies": movies})
}

func (h *Handler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req domain.AddToWatchlistRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	entry, err := h.watchlist.Add(r.Context(), UserID(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusCreated, "Movie added to watchlist", data{"watchlistItem": entry})
}

func (h *Handler) UpdateWatchlistItem(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateWatchlistRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	entry, err := h.watchlist.Update(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "Watchlist item updated", data{"watchlistItem": entry})
}

func (h *Handler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	if err := h.watchlist.Remove(r.Context(), UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "Movie removed from watchlist", nil)
}

// MarkWatched accepts an empty body or {"rating": n}.
func (h *Handler) MarkWatched(w http.ResponseWriter, r *http.Request) {
	var req domain.MarkWatchedRequest
	if !h.decodeJSON(w, r, &req, true) {
		return
	}
	entry, err := h.watchlist.MarkWatched(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "Movie marked as watched", data{"watchlistItem": entry})
}
