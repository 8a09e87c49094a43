package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"movie-app/internal/domain"
	"movie-app/internal/service"
)

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	filter := service.ReviewFilter{
		MovieID:   qp.str("movieId"),
		UserID:    qp.str("userId"),
		MinRating: qp.float("minRating"),
		MaxRating: qp.float("maxRating"),
	}
	h.listReviews(w, r, qp, filter)
}

// MovieReviews lists the approved reviews of one movie.
func (h *Handler) MovieReviews(w http.ResponseWriter, r *http.Request) {
	movieID := mux.Vars(r)["movieId"]
	if _, err := h.movies.Get(r.Context(), movieID); err != nil {
		h.writeError(w, r, err)
		return
	}
	qp := newQueryParser(r.URL.Query())
	filter := service.ReviewFilter{
		MovieID:   movieID,
		MinRating: qp.float("minRating"),
		MaxRating: qp.float("maxRating"),
	}
	h.listReviews(w, r, qp, filter)
}

// UserReviews lists the approved reviews written by one user.
func (h *Handler) UserReviews(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		userID = mux.Vars(r)["id"]
	}
	if _, err := h.users.GetActive(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.listReviews(w, r, newQueryParser(r.URL.Query()), service.ReviewFilter{UserID: userID})
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request, qp *queryParser, filter service.ReviewFilter) {
	opts := qp.listOptions()
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.reviews.List(r.Context(), filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"reviews": res.Items, "pagination": res.Pagination})
}

func (h *Handler) RecentReviews(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	limit := qp.positiveInt("limit")
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	reviews, err := h.reviews.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"reviews": reviews})
}

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.Get(r.Context(), UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"review": review})
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req domain.CreateReviewRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	review, err := h.reviews.Create(ctx, UserID(ctx), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "Review created successfully", slog.String("reviewID", review.ID), slog.String("movieID", review.MovieID))
	h.respondOK(w, r, http.StatusCreated, "Review created successfully", data{"review": review})
}

func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req domain.UpdateReviewRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	review, err := h.reviews.Update(ctx, UserID(ctx), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "Review updated successfully", data{"review": review})
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.reviews.Delete(ctx, UserID(ctx), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "Review deleted successfully", nil)
}

func (h *Handler) ToggleHelpful(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.reviews.ToggleHelpful(ctx, UserID(ctx), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", res)
}

// ModerateReview is admin only.
func (h *Handler) ModerateReview(w http.ResponseWriter, r *http.Request) {
	var req domain.ModerateReviewRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	review, err := h.reviews.Moderate(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "Review status updated", data{"review": review})
}
