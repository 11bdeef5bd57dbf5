// Package handler is the thin HTTP layer over the registry service. It
// delegates to the service without embedding business logic so transport
// concerns stay isolated.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"badgemint/internal/identity/models"
	"badgemint/internal/platform/middleware"
	id "badgemint/pkg/domain"
	dErrors "badgemint/pkg/domain-errors"
)

// Service defines the registry operations the handler exposes.
type Service interface {
	Initialize(ctx context.Context, cfg models.Config) error
	Mint(ctx context.Context, req models.MintRequest) (id.TokenID, error)
	Update(ctx context.Context, req models.UpdateRequest) error
	TokenData(ctx context.Context, tokenID id.TokenID) (models.IdentityRecord, error)
	UserToken(ctx context.Context, holder id.HolderID) (id.TokenID, error)
	HasIdentity(ctx context.Context, holder id.HolderID) (bool, error)
	Nonce(ctx context.Context, holder id.HolderID) (uint64, error)
	MintFee(ctx context.Context) (models.FeeAmount, error)
	RenderBadge(ctx context.Context, tokenID id.TokenID) (string, error)
	ListTokens(ctx context.Context, holder id.HolderID) ([]id.TokenID, error)
	SetMintFee(ctx context.Context, caller id.HolderID, fee models.FeeAmount) error
	SetAccessControl(ctx context.Context, caller, accessControl id.HolderID) error
	SetTreasury(ctx context.Context, caller, treasury id.HolderID) error
}

// Handler handles registry endpoints.
type Handler struct {
	logger    *slog.Logger
	registry  Service
	validator middleware.TokenValidator
}

// New creates a registry Handler.
func New(registry Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		validator: validator,
	}
}

// Register mounts all registry routes. Routes that the protocol gates on a
// proven caller sit behind RequireAuth; reads are public.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.RequestTime)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.ClientMetadata)
		r.Use(middleware.ContentTypeJSON)

		r.Post("/initialize", h.handleInitialize)

		r.Get("/tokens/{tokenID}", h.handleGetToken)
		r.Get("/tokens/{tokenID}/badge", h.handleGetBadge)
		r.Get("/holders/{holder}/token", h.handleGetHolderToken)
		r.Get("/holders/{holder}/tokens", h.handleListTokens)
		r.Get("/holders/{holder}/identity", h.handleHasIdentity)
		r.Get("/holders/{holder}/nonce", h.handleGetNonce)
		r.Get("/config/mint-fee", h.handleGetMintFee)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator, h.logger))
			r.Post("/tokens", h.handleMint)
			r.Put("/tokens/{tokenID}", h.handleUpdate)
			r.Put("/config/mint-fee", h.handleSetMintFee)
			r.Put("/config/access-control", h.handleSetAccessControl)
			r.Put("/config/treasury", h.handleSetTreasury)
		})
	})
}

type initializeRequest struct {
	Admin         string `json:"admin"`
	AccessControl string `json:"access_control"`
	Treasury      string `json:"treasury"`
	MintFee       string `json:"mint_fee"`
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cfg, err := buildConfig(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.registry.Initialize(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildConfig(req initializeRequest) (models.Config, error) {
	admin, err := id.ParseHolderID(req.Admin)
	if err != nil {
		return models.Config{}, dErrors.New(dErrors.CodeBadRequest, "invalid admin")
	}
	accessControl, err := id.ParseHolderID(req.AccessControl)
	if err != nil {
		return models.Config{}, dErrors.New(dErrors.CodeBadRequest, "invalid access_control")
	}
	treasury, err := id.ParseHolderID(req.Treasury)
	if err != nil {
		return models.Config{}, dErrors.New(dErrors.CodeBadRequest, "invalid treasury")
	}
	fee := models.FeeAmount{}
	if req.MintFee != "" {
		fee, err = models.ParseFee(req.MintFee)
		if err != nil {
			return models.Config{}, err
		}
	}
	return models.Config{
		Admin:         admin,
		AccessControl: accessControl,
		Treasury:      treasury,
		MintFee:       fee,
	}, nil
}

type mintRequest struct {
	Caller        string  `json:"caller"`
	Signature     string  `json:"signature,omitempty"`
	Username      string  `json:"username"`
	Contributions uint32  `json:"contributions"`
	ProofData     string  `json:"proof_data,omitempty"`
	Referrer      *string `json:"referrer,omitempty"`
	Nonce         uint64  `json:"nonce"`
}

type mintResponse struct {
	TokenID id.TokenID `json:"token_id"`
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	caller, err := id.ParseHolderID(req.Caller)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid caller"))
		return
	}

	signature, err := decodeBase64(req.Signature)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "signature must be base64"))
		return
	}
	proofData, err := decodeBase64(req.ProofData)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "proof_data must be base64"))
		return
	}

	mintReq := models.MintRequest{
		Caller:        caller,
		Signature:     signature,
		Username:      req.Username,
		Contributions: req.Contributions,
		ProofData:     proofData,
		Nonce:         req.Nonce,
	}
	if req.Referrer != nil {
		referrer, err := id.ParseHolderID(*req.Referrer)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid referrer"))
			return
		}
		mintReq.Referrer = &referrer
	}

	tokenID, err := h.registry.Mint(r.Context(), mintReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mintResponse{TokenID: tokenID})
}

type updateRequest struct {
	Caller        string `json:"caller"`
	Username      string `json:"username"`
	Contributions uint32 `json:"contributions"`
	ProofData     string `json:"proof_data,omitempty"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	caller, err := id.ParseHolderID(req.Caller)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid caller"))
		return
	}
	proofData, err := decodeBase64(req.ProofData)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "proof_data must be base64"))
		return
	}
	if req.Username == "" {
		writeError(w, dErrors.New(dErrors.CodeEmptyUsername, "username cannot be empty"))
		return
	}

	err = h.registry.Update(r.Context(), models.UpdateRequest{
		Caller:        caller,
		TokenID:       tokenID,
		Username:      req.Username,
		Contributions: req.Contributions,
		ProofData:     proofData,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tokenResponse struct {
	TokenID       id.TokenID `json:"token_id"`
	Username      string     `json:"username"`
	Contributions uint32     `json:"contributions"`
	Tier          string     `json:"tier"`
	MintedAt      time.Time  `json:"minted_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ProofData     string     `json:"proof_data,omitempty"`
}

func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}
	rec, err := h.registry.TokenData(r.Context(), tokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		TokenID:       tokenID,
		Username:      rec.Username,
		Contributions: rec.Contributions,
		Tier:          rec.Tier.String(),
		MintedAt:      rec.MintedAt,
		UpdatedAt:     rec.UpdatedAt,
		ProofData:     base64.StdEncoding.EncodeToString(rec.ProofData),
	})
}

func (h *Handler) handleGetBadge(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid token id"))
		return
	}
	svg, err := h.registry.RenderBadge(r.Context(), tokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}

func (h *Handler) handleGetHolderToken(w http.ResponseWriter, r *http.Request) {
	holder, err := id.ParseHolderID(chi.URLParam(r, "holder"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid holder"))
		return
	}
	tokenID, err := h.registry.UserToken(r.Context(), holder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]id.TokenID{"token_id": tokenID})
}

func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	holder, err := id.ParseHolderID(chi.URLParam(r, "holder"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid holder"))
		return
	}
	tokens, err := h.registry.ListTokens(r.Context(), holder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]id.TokenID{"token_ids": tokens})
}

func (h *Handler) handleHasIdentity(w http.ResponseWriter, r *http.Request) {
	holder, err := id.ParseHolderID(chi.URLParam(r, "holder"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid holder"))
		return
	}
	has, err := h.registry.HasIdentity(r.Context(), holder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has_identity": has})
}

func (h *Handler) handleGetNonce(w http.ResponseWriter, r *http.Request) {
	holder, err := id.ParseHolderID(chi.URLParam(r, "holder"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid holder"))
		return
	}
	nonce, err := h.registry.Nonce(r.Context(), holder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"nonce": nonce})
}

func (h *Handler) handleGetMintFee(w http.ResponseWriter, r *http.Request) {
	fee, err := h.registry.MintFee(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mint_fee": fee.String()})
}

type setMintFeeRequest struct {
	Caller  string `json:"caller"`
	MintFee string `json:"mint_fee"`
}

func (h *Handler) handleSetMintFee(w http.ResponseWriter, r *http.Request) {
	var req setMintFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	caller, err := id.ParseHolderID(req.Caller)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid caller"))
		return
	}
	fee, err := models.ParseFee(req.MintFee)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.registry.SetMintFee(r.Context(), caller, fee); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setIdentityRequest struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

func (h *Handler) handleSetAccessControl(w http.ResponseWriter, r *http.Request) {
	h.handleSetConfigIdentity(w, r, h.registry.SetAccessControl)
}

func (h *Handler) handleSetTreasury(w http.ResponseWriter, r *http.Request) {
	h.handleSetConfigIdentity(w, r, h.registry.SetTreasury)
}

func (h *Handler) handleSetConfigIdentity(w http.ResponseWriter, r *http.Request, apply func(context.Context, id.HolderID, id.HolderID) error) {
	var req setIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	caller, err := id.ParseHolderID(req.Caller)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid caller"))
		return
	}
	value, err := id.ParseHolderID(req.Value)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid value"))
		return
	}
	if err := apply(r.Context(), caller, value); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": string(code)})
}
