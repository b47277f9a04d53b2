package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/wonny/prisme/backend/internal/audit"
	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/storage"
	"github.com/wonny/prisme/backend/internal/universe"
	"github.com/wonny/prisme/backend/pkg/logger"
)

// UniverseResolver resolves the configured universe
type UniverseResolver interface {
	Resolve(path string) (contracts.Universe, error)
}

// ArtifactLister lists stored artifact keys
type ArtifactLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// EtlHandler serves the ETL status endpoints
// ⭐ SSOT: ETL status API handlers live in this struct only
type EtlHandler struct {
	resolver   UniverseResolver
	configPath string
	runs       audit.RunReader
	artifacts  ArtifactLister
	logger     *logger.Logger
}

// NewEtlHandler creates a new ETL status handler
func NewEtlHandler(
	resolver UniverseResolver,
	configPath string,
	runs audit.RunReader,
	artifacts ArtifactLister,
	log *logger.Logger,
) *EtlHandler {
	return &EtlHandler{
		resolver:   resolver,
		configPath: configPath,
		runs:       runs,
		artifacts:  artifacts,
		logger:     log.WithModule("api"),
	}
}

// UniverseResponse is the resolved universe with its fingerprint
type UniverseResponse struct {
	Source      string                 `json:"source"`
	Count       int                    `json:"count"`
	Hash        string                 `json:"hash"`
	Instruments []contracts.Instrument `json:"instruments"`
}

// GetUniverse returns the universe the next run would process
// GET /api/universe
func (h *EtlHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	u, err := h.resolver.Resolve(h.configPath)
	if err != nil {
		var cfgErr *universe.ConfigError
		if errors.As(err, &cfgErr) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to resolve universe")
		respondError(w, http.StatusInternalServerError, "Failed to resolve universe")
		return
	}

	hash, err := universe.Hash(u)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash universe")
		respondError(w, http.StatusInternalServerError, "Failed to resolve universe")
		return
	}

	respondJSON(w, http.StatusOK, UniverseResponse{
		Source:      u.Source,
		Count:       u.Count(),
		Hash:        hash,
		Instruments: u.Instruments,
	})
}

// GetLatestRun returns the latest recorded run summary
// GET /api/runs/latest
func (h *EtlHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runs.LatestRun(r.Context())
	if errors.Is(err, audit.ErrNoRun) {
		respondError(w, http.StatusNotFound, "No run recorded yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest run")
		return
	}

	respondJSON(w, http.StatusOK, struct {
		*contracts.RunSummary
		Counts contracts.RunCounts `json:"counts"`
	}{summary, summary.Counts()})
}

// ArtifactEntry is one stored artifact of an instrument
type ArtifactEntry struct {
	Facet contracts.Facet `json:"facet"`
	Key   string          `json:"key"`
}

// ArtifactsResponse lists a tier's artifacts grouped by instrument
type ArtifactsResponse struct {
	Tier        contracts.Tier             `json:"tier"`
	Count       int                        `json:"count"`
	Instruments map[string][]ArtifactEntry `json:"instruments"`
	Unknown     []string                   `json:"unknown,omitempty"`
}

// ListArtifacts lists the artifacts of one tier
// GET /api/artifacts/{tier}
func (h *EtlHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	tier := contracts.Tier(mux.Vars(r)["tier"])
	if !tier.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown tier (expected raw, interim or processed)")
		return
	}

	keys, err := h.artifacts.List(r.Context(), storage.TierPrefix(tier))
	if err != nil {
		h.logger.WithError(err).WithField("tier", tier).Error("Failed to list artifacts")
		respondError(w, http.StatusInternalServerError, "Failed to list artifacts")
		return
	}
	sort.Strings(keys)

	resp := ArtifactsResponse{
		Tier:        tier,
		Instruments: make(map[string][]ArtifactEntry),
	}
	for _, key := range keys {
		parsed, ok := storage.ParseKey(key)
		if !ok || parsed.Tier != tier {
			resp.Unknown = append(resp.Unknown, key)
			continue
		}
		resp.Instruments[parsed.Name] = append(resp.Instruments[parsed.Name], ArtifactEntry{
			Facet: parsed.Facet,
			Key:   key,
		})
		resp.Count++
	}

	respondJSON(w, http.StatusOK, resp)
}
