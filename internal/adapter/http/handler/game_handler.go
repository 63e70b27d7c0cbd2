package handler

import (
	"strconv"

	"ton-dice-backend/internal/adapter/http/dto"
	"ton-dice-backend/internal/adapter/http/middleware"
	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/pkg/apperror"
	"ton-dice-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// GameHandler handles betting and seed lifecycle endpoints.
type GameHandler struct {
	gameSvc ports.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameSvc ports.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

// PlaceBet handles POST /api/v1/bets. The staged bet replaces any
// earlier one that has not been rolled yet.
func (h *GameHandler) PlaceBet(c *gin.Context) {
	var req dto.PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	accountID := c.GetString(middleware.CtxAccountID)
	preview, err := h.gameSvc.PlaceBet(c.Request.Context(), ports.PlaceBetRequest{
		AccountID: accountID,
		Target:    req.Target,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, preview)
}

// Roll handles POST /api/v1/bets/roll: settles the pending bet.
func (h *GameHandler) Roll(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountID)

	result, err := h.gameSvc.Roll(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Reveal handles POST /api/v1/seeds/reveal: discloses the current server
// seed and commits to a fresh one.
func (h *GameHandler) Reveal(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountID)

	proof, err := h.gameSvc.RevealAndRotate(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, proof)
}

// ListBets handles GET /api/v1/bets.
func (h *GameHandler) ListBets(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountID)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	bets, err := h.gameSvc.RecentBets(c.Request.Context(), accountID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"bets": bets})
}
