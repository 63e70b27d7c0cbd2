package handler

import (
	"net/http"

	"ton-dice-backend/internal/adapter/http/dto"
	"ton-dice-backend/internal/adapter/http/middleware"
	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/pkg/apperror"
	"ton-dice-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles player session and account endpoints.
type AccountHandler struct {
	gameSvc   ports.GameService
	ledgerSvc ports.LedgerService
	tokenSvc  ports.TokenService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(gameSvc ports.GameService, ledgerSvc ports.LedgerService, tokenSvc ports.TokenService) *AccountHandler {
	return &AccountHandler{gameSvc: gameSvc, ledgerSvc: ledgerSvc, tokenSvc: tokenSvc}
}

// Connect handles POST /api/v1/accounts/connect. It provisions the account
// on first contact and returns a session token.
func (h *AccountHandler) Connect(c *gin.Context) {
	var req dto.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	account, err := h.gameSvc.EnsureAccount(c.Request.Context(), req.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, expiry, err := h.tokenSvc.Generate(account.ID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.ConnectResponse{
		AccountID:      account.ID,
		Balance:        account.Balance,
		ServerSeedHash: account.ServerSeedHash,
		ClientSeed:     account.ClientSeed,
		Nonce:          account.Nonce,
		Token:          token,
		TokenExpiry:    expiry.Unix(),
	})
}

// Me handles GET /api/v1/accounts/me.
func (h *AccountHandler) Me(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountID)

	summary, err := h.gameSvc.Summary(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// UpdateClientSeed handles PUT /api/v1/accounts/client-seed.
func (h *AccountHandler) UpdateClientSeed(c *gin.Context) {
	var req dto.ClientSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	accountID := c.GetString(middleware.CtxAccountID)
	if err := h.gameSvc.SetClientSeed(c.Request.Context(), accountID, req.ClientSeed); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"client_seed": req.ClientSeed})
}

// Audit handles GET /api/v1/accounts/audit: the journal-vs-balance
// consistency report for the authenticated account.
func (h *AccountHandler) Audit(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountID)

	report, err := h.ledgerSvc.Audit(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// HealthCheck handles GET /health with deep dependency checks.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
