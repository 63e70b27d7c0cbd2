package handler

import (
	"ton-dice-backend/internal/adapter/http/dto"
	"ton-dice-backend/internal/service"
	"ton-dice-backend/pkg/apperror"
	"ton-dice-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// FairnessHandler exposes offline verification of past rolls. The endpoint
// is public: anyone holding a revealed seed can recheck an outcome without
// an account.
type FairnessHandler struct {
	fairness *service.FairnessEngine
}

// NewFairnessHandler creates a new FairnessHandler.
func NewFairnessHandler(fairness *service.FairnessEngine) *FairnessHandler {
	return &FairnessHandler{fairness: fairness}
}

// Verify handles GET /api/v1/fairness/verify. It recomputes the roll for a
// revealed seed, client seed, and nonce; optionally checks the seed against
// a published commitment and reports the win outcome for a target.
func (h *FairnessHandler) Verify(c *gin.Context) {
	var q dto.VerifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	roll, err := h.fairness.ComputeRoll(q.ServerSeed, q.ClientSeed, q.Nonce)
	if err != nil {
		response.Error(c, apperror.Validation("server seed is not valid hex"))
		return
	}

	seedHash, err := h.fairness.HashServerSeed(q.ServerSeed)
	if err != nil {
		response.Error(c, apperror.Validation("server seed is not valid hex"))
		return
	}

	resp := dto.VerifyResponse{Roll: roll, SeedHash: seedHash}
	if q.Expected != "" {
		matches := h.fairness.VerifyServerSeed(q.ServerSeed, q.Expected)
		resp.HashMatches = &matches
	}
	if q.Target != 0 {
		win := roll < q.Target
		resp.Win = &win
	}
	response.OK(c, resp)
}
