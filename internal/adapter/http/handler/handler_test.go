package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ton-dice-backend/internal/adapter/http/dto"
	"ton-dice-backend/internal/adapter/http/middleware"
	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/internal/core/ports/mocks"
	"ton-dice-backend/internal/service"
	"ton-dice-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAccount() *domain.Account {
	return &domain.Account{
		ID:             "player-1",
		Balance:        1000,
		ServerSeedHash: "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925",
		ClientSeed:     "abc",
		Nonce:          3,
	}
}

// --- Account Handler Tests ---

func TestConnect_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	mockToken := mocks.NewMockTokenService(ctrl)
	h := NewAccountHandler(mockGame, nil, mockToken)

	expiry := time.Now().Add(24 * time.Hour)
	mockGame.EXPECT().EnsureAccount(gomock.Any(), "player-1").Return(testAccount(), nil)
	mockToken.EXPECT().Generate("player-1").Return("jwt-token-123", expiry, nil)

	body, _ := json.Marshal(dto.ConnectRequest{AccountID: "player-1"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/accounts/connect", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Connect(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "player-1", data["account_id"])
	assert.Equal(t, float64(1000), data["balance"])
	assert.Equal(t, "jwt-token-123", data["token"])
	assert.Equal(t, float64(3), data["nonce"])
}

func TestConnect_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	mockToken := mocks.NewMockTokenService(ctrl)
	h := NewAccountHandler(mockGame, nil, mockToken)

	// Empty body => binding error
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Connect(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnect_RejectsUnsafeAccountID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	mockToken := mocks.NewMockTokenService(ctrl)
	h := NewAccountHandler(mockGame, nil, mockToken)

	body, _ := json.Marshal(dto.ConnectRequest{AccountID: "<script>alert(1)</script>"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Connect(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnect_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	mockToken := mocks.NewMockTokenService(ctrl)
	h := NewAccountHandler(mockGame, nil, mockToken)

	mockGame.EXPECT().EnsureAccount(gomock.Any(), "player-1").Return(nil, errors.New("db down"))

	body, _ := json.Marshal(dto.ConnectRequest{AccountID: "player-1"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Connect(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMe_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewAccountHandler(mockGame, nil, nil)

	mockGame.EXPECT().Summary(gomock.Any(), "player-1").Return(&ports.AccountSummary{
		Account: testAccount(),
		Stats:   &domain.BetStats{TotalBets: 10, TotalWins: 4},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.CtxAccountID, "player-1")

	h.Me(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	stats := data["stats"].(map[string]interface{})
	assert.Equal(t, float64(10), stats["total_bets"])
}

func TestUpdateClientSeed_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewAccountHandler(mockGame, nil, nil)

	mockGame.EXPECT().SetClientSeed(gomock.Any(), "player-1", "lucky7").Return(nil)

	body, _ := json.Marshal(dto.ClientSeedRequest{ClientSeed: "lucky7"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxAccountID, "player-1")

	h.UpdateClientSeed(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "lucky7", data["client_seed"])
}

func TestUpdateClientSeed_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewAccountHandler(mockGame, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxAccountID, "player-1")

	h.UpdateClientSeed(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAudit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewAccountHandler(nil, mockLedger, nil)

	mockLedger.EXPECT().Audit(gomock.Any(), "player-1").Return(&ports.AuditReport{
		AccountID:       "player-1",
		StoredBalance:   1000,
		ComputedBalance: 1000,
		Consistent:      true,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.CtxAccountID, "player-1")

	h.Audit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["consistent"])
}

// --- Game Handler Tests ---

func TestPlaceBet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewGameHandler(mockGame)

	mockGame.EXPECT().PlaceBet(gomock.Any(), ports.PlaceBetRequest{
		AccountID: "player-1",
		Target:    50,
		Amount:    100,
	}).Return(&ports.BetPreview{
		Target:          50,
		Amount:          100,
		EdgeBps:         100,
		PotentialPayout: 198,
		ServerSeedHash:  "commitment",
	}, nil)

	body, _ := json.Marshal(dto.PlaceBetRequest{Target: 50, Amount: 100})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxAccountID, "player-1")

	h.PlaceBet(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(198), data["potential_payout"])
}

func TestPlaceBet_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewGameHandler(mockGame)

	// Target out of range is rejected before the service is reached.
	body, _ := json.Marshal(map[string]interface{}{"target": 100, "amount": 10})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxAccountID, "player-1")

	h.PlaceBet(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceBet_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewGameHandler(mockGame)

	mockGame.EXPECT().PlaceBet(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	body, _ := json.Marshal(dto.PlaceBetRequest{Target: 50, Amount: 999999})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxAccountID, "player-1")

	h.PlaceBet(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestRoll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewGameHandler(mockGame)

	mockGame.EXPECT().Roll(gomock.Any(), "player-1").Return(&ports.RollResult{
		Roll:       42,
		Win:        true,
		Payout:     198,
		NewBalance: 1098,
		Nonce:      0,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(middleware.CtxAccountID, "player-1")

	h.Roll(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(42), data["roll"])
	assert.Equal(t, true, data["win"])
	assert.Equal(t, float64(1098), data["new_balance"])
}

func TestRoll_NoPendingBet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewGameHandler(mockGame)

	mockGame.EXPECT().Roll(gomock.Any(), "player-1").Return(nil, apperror.ErrNoPendingBet())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(middleware.CtxAccountID, "player-1")

	h.Roll(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReveal_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewGameHandler(mockGame)

	mockGame.EXPECT().RevealAndRotate(gomock.Any(), "player-1").Return(&ports.ProofResult{
		RevealedSeed: "deadbeef",
		RevealedHash: "old-hash",
		NewHash:      "new-hash",
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(middleware.CtxAccountID, "player-1")

	h.Reveal(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "deadbeef", data["revealed_seed"])
	assert.Equal(t, "new-hash", data["new_hash"])
}

func TestListBets_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewGameHandler(mockGame)

	mockGame.EXPECT().RecentBets(gomock.Any(), "player-1", 5).Return([]domain.BetRecord{
		{AccountID: "player-1", Nonce: 2, Target: 50, Amount: 100, Roll: 42, Win: true, Payout: 198},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=5", nil)
	c.Set(middleware.CtxAccountID, "player-1")

	h.ListBets(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	bets := data["bets"].([]interface{})
	assert.Len(t, bets, 1)
}

func TestListBets_DefaultLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGame := mocks.NewMockGameService(ctrl)
	h := NewGameHandler(mockGame)

	mockGame.EXPECT().RecentBets(gomock.Any(), "player-1", 20).Return(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.CtxAccountID, "player-1")

	h.ListBets(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Fairness Handler Tests ---

const zeroSeedHex = "0000000000000000000000000000000000000000000000000000000000000000"

func TestVerify_Success(t *testing.T) {
	h := NewFairnessHandler(service.NewFairnessEngine("any-secret"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet,
		"/?server_seed="+zeroSeedHex+"&client_seed=abc&nonce=0", nil)

	h.Verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(42), data["roll"])
	assert.Equal(t, "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925", data["seed_hash"])
	assert.NotContains(t, data, "hash_matches")
	assert.NotContains(t, data, "win")
}

func TestVerify_WithCommitmentAndTarget(t *testing.T) {
	h := NewFairnessHandler(service.NewFairnessEngine("any-secret"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet,
		"/?server_seed="+zeroSeedHex+"&client_seed=abc&nonce=0"+
			"&expected_hash=66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925&target=50", nil)

	h.Verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(42), data["roll"])
	assert.Equal(t, true, data["hash_matches"])
	assert.Equal(t, true, data["win"])
}

func TestVerify_HashMismatch(t *testing.T) {
	h := NewFairnessHandler(service.NewFairnessEngine("any-secret"))

	wrongHash := "1111111111111111111111111111111111111111111111111111111111111111"
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet,
		"/?server_seed="+zeroSeedHex+"&client_seed=abc&nonce=0&expected_hash="+wrongHash, nil)

	h.Verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["hash_matches"])
}

func TestVerify_ValidationError(t *testing.T) {
	h := NewFairnessHandler(service.NewFairnessEngine("any-secret"))

	// Seed must be exactly 64 hex chars.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?server_seed=abc&client_seed=abc&nonce=0", nil)

	h.Verify(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	redis := deps["redis"].(map[string]interface{})
	assert.Equal(t, "unhealthy", redis["status"])
}
