package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vrsandeep/serieswatch/internal/catalog"
	"github.com/vrsandeep/serieswatch/internal/models"
	"github.com/vrsandeep/serieswatch/internal/store"
)

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListTracked(w http.ResponseWriter, r *http.Request) {
	tracked, err := s.tracker.ListTracked(r.Context(), userFromContext(r.Context()))
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to retrieve tracked series")
		return
	}
	if tracked == nil {
		tracked = []*models.TrackedSeries{}
	}
	RespondWithJSON(w, r, http.StatusOK, tracked)
}

func (s *Server) handleFollowSeries(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := idParam(r, "seriesID")
	if !ok {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid series ID")
		return
	}
	var payload struct {
		Region string `json:"region"`
	}
	// An empty body follows in the default region.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}

	ts, err := s.tracker.Follow(r.Context(), userFromContext(r.Context()), seriesID, payload.Region, false)
	if errors.Is(err, store.ErrNotFound) {
		RespondWithError(w, r, http.StatusNotFound, "Series not found")
		return
	}
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to follow series")
		return
	}
	RespondWithJSON(w, r, http.StatusOK, ts)
}

func (s *Server) handleUnfollowSeries(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := idParam(r, "seriesID")
	if !ok {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid series ID")
		return
	}
	removed, err := s.tracker.Unfollow(r.Context(), userFromContext(r.Context()), seriesID)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to unfollow series")
		return
	}
	if !removed {
		RespondWithError(w, r, http.StatusNotFound, "Series is not followed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReleases(w http.ResponseWriter, r *http.Request) {
	includeDismissed, _ := strconv.ParseBool(r.URL.Query().Get("dismissed"))
	releases, err := s.tracker.ListReleases(r.Context(), userFromContext(r.Context()), includeDismissed)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to retrieve releases")
		return
	}
	if releases == nil {
		releases = []*models.NewRelease{}
	}
	RespondWithJSON(w, r, http.StatusOK, releases)
}

func (s *Server) handleDismissRelease(w http.ResponseWriter, r *http.Request) {
	releaseID, ok := idParam(r, "releaseID")
	if !ok {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid release ID")
		return
	}
	found, err := s.tracker.DismissRelease(r.Context(), userFromContext(r.Context()), releaseID)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to dismiss release")
		return
	}
	if !found {
		RespondWithError(w, r, http.StatusNotFound, "Release not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleManualCheck(w http.ResponseWriter, r *http.Request) {
	trackedID, ok := idParam(r, "trackedID")
	if !ok {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid tracked series ID")
		return
	}
	if _, err := s.store.GetTrackedSeries(r.Context(), trackedID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, r, http.StatusNotFound, "Tracked series not found")
			return
		}
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to load tracked series")
		return
	}

	releases, err := s.tracker.ManualCheck(r.Context(), trackedID)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to check series")
		return
	}
	RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"created":  len(releases),
		"releases": releases,
	})
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	type region struct {
		Code   string `json:"code"`
		Domain string `json:"domain"`
	}
	codes := catalog.Regions()
	regions := make([]region, 0, len(codes))
	for _, code := range codes {
		domain, _ := catalog.Domain(code)
		regions = append(regions, region{Code: code, Domain: domain})
	}
	RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"default": catalog.NormalizeRegion(s.app.Config.Catalog.Region),
		"regions": regions,
	})
}
