package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"movie-app/internal/domain"
	"movie-app/internal/service"
)

func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	filter := service.MovieFilter{
		Genre:  qp.str("genre"),
		Year:   qp.positiveInt("year"),
		Search: qp.str("search"),
	}
	opts := qp.listOptions()
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.movies.List(r.Context(), filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"movies": res.Items, "pagination": res.Pagination})
}

func (h *Handler) TrendingMovies(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	limit := qp.positiveInt("limit")
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	movies, err := h.movies.Trending(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"movies": movies})
}

func (h *Handler) TopRatedMovies(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	limit := qp.positiveInt("limit")
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	movies, err := h.movies.TopRated(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"movies": movies})
}

func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := h.movies.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"movie": movie})
}

func (h *Handler) GetMovieByTMDBID(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := pathInt64(mux.Vars(r)["tmdbId"])
	if !ok {
		h.respondError(w, r, http.StatusNotFound, "Movie not found")
		return
	}
	movie, err := h.movies.GetByTMDBID(r.Context(), tmdbID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "", data{"movie": movie})
}

// UpsertMovie answers 201 when the movie was created and 200 when an existing one
// with the same TMDB id was updated.
func (h *Handler) UpsertMovie(w http.ResponseWriter, r *http.Request) {
	var req domain.UpsertMovieRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	movie, created, err := h.movies.Upsert(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if created {
		h.respondOK(w, r, http.StatusCreated, "Movie created successfully", data{"movie": movie})
		return
	}
	h.respondOK(w, r, http.StatusOK, "Movie updated successfully", data{"movie": movie})
}

func (h *Handler) SyncMovie(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := pathInt64(mux.Vars(r)["tmdbId"])
	if !ok {
		h.writeError(w, r, domain.NewValidationError("tmdbId", "must be a positive integer"))
		return
	}
	movie, created, err := h.movies.SyncFromTMDB(r.Context(), tmdbID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondOK(w, r, status, "Movie synced from TMDB", data{"movie": movie})
}

func (h *Handler) SyncPopularMovies(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r.URL.Query())
	pages := qp.positiveInt("pages")
	if err := qp.err(); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.movies.SyncPopular(r.Context(), pages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondOK(w, r, http.StatusOK, "Popular movies synced", data{"sync": res})
}
