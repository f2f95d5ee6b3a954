package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predixlabs/forecast-ledger/internal/service"
)

// AdminHandler exposes the platform config and market lifecycle operations.
// All routes under /api/admin/ sit behind the API-token middleware; the
// owner gate itself lives in the service layer and runs against the caller
// identity header.
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logHandler(logger, "admin"),
	}
}

type initializeConfigRequest struct {
	Owner             string `json:"owner"`
	RewardMint        string `json:"reward_mint"`
	RewardAPRBP       uint64 `json:"reward_apr_bp"`
	ServiceFeeAccount string `json:"service_fee_account"`
	TreasuryAccount   string `json:"treasury_account"`
}

// Initialize creates the singleton platform config.
// POST /api/admin/config
func (h *AdminHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeConfigRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := service.InitializeConfigParams{RewardAPRBP: req.RewardAPRBP}
	fields := []struct {
		name string
		raw  string
		dst  *common.Hash
	}{
		{"owner", req.Owner, &params.Owner},
		{"reward_mint", req.RewardMint, &params.RewardMint},
		{"service_fee_account", req.ServiceFeeAccount, &params.ServiceFeeAccount},
		{"treasury_account", req.TreasuryAccount, &params.TreasuryAccount},
	}
	for _, f := range fields {
		v, err := hexDecode32(f.raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+f.name+": "+err.Error())
			return
		}
		*f.dst = v
	}

	if err := h.admin.InitializeConfig(r.Context(), params); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "initialized"})
}

type updateOwnerRequest struct {
	NewOwner string `json:"new_owner"`
}

// UpdateOwner hands platform ownership to a new identity.
// PUT /api/admin/config/owner
func (h *AdminHandler) UpdateOwner(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updateOwnerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	newOwner, err := hexDecode32(req.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_owner: "+err.Error())
		return
	}

	if err := h.admin.UpdateOwner(r.Context(), caller, newOwner); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type setAccountsRequest struct {
	ServiceFeeAccount *string `json:"service_fee_account,omitempty"`
	TreasuryAccount   *string `json:"treasury_account,omitempty"`
}

// SetAccounts updates the fee-collection identities. Omitted fields are left
// unchanged.
// PUT /api/admin/config/accounts
func (h *AdminHandler) SetAccounts(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req setAccountsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	serviceFee, err := optionalHash(req.ServiceFeeAccount, "service_fee_account")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	treasury, err := optionalHash(req.TreasuryAccount, "treasury_account")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.admin.SetAccounts(r.Context(), caller, serviceFee, treasury); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type updateRewardRequest struct {
	RewardMint  *string `json:"reward_mint,omitempty"`
	RewardAPRBP *uint64 `json:"reward_apr_bp,omitempty"`
}

// UpdateReward updates the reward mint and/or APR. Omitted fields are left
// unchanged.
// PUT /api/admin/config/reward
func (h *AdminHandler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updateRewardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rewardMint, err := optionalHash(req.RewardMint, "reward_mint")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.admin.UpdateRewardConfig(r.Context(), caller, rewardMint, req.RewardAPRBP); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type draftMarketRequest struct {
	Key            uint64 `json:"key"`
	Creator        string `json:"creator"`
	StakeMint      string `json:"stake_mint"`
	Title          string `json:"title"`
	CreatorFeeFlat uint64 `json:"creator_fee_flat"`
	CreatorFeeBP   uint64 `json:"creator_fee_bp"`
	PlatformFeeBP  uint64 `json:"platform_fee_bp"`
}

// DraftMarket creates a market in the draft state.
// POST /api/admin/markets
func (h *AdminHandler) DraftMarket(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req draftMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	creator, err := hexDecode32(req.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid creator: "+err.Error())
		return
	}
	stakeMint, err := hexDecode32(req.StakeMint)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stake_mint: "+err.Error())
		return
	}

	params := service.DraftMarketParams{
		Key:            req.Key,
		Creator:        creator,
		StakeMint:      stakeMint,
		Title:          req.Title,
		CreatorFeeFlat: req.CreatorFeeFlat,
		CreatorFeeBP:   req.CreatorFeeBP,
		PlatformFeeBP:  req.PlatformFeeBP,
	}
	if err := h.admin.DraftMarket(r.Context(), caller, params); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"market_key": req.Key})
}

type addAnswersRequest struct {
	AnswerKeys []uint64 `json:"answer_keys"`
}

// AddAnswers appends answer keys to a market's registry.
// POST /api/admin/markets/{key}/answers
func (h *AdminHandler) AddAnswers(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req addAnswersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.admin.AddAnswers(r.Context(), caller, key, req.AnswerKeys); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_key": key,
		"added":      len(req.AnswerKeys),
	})
}

// Approve opens a market for betting.
// POST /api/admin/markets/{key}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.admin.ApproveMarket, "approved")
}

// Finish closes betting and snapshots the settlement base.
// POST /api/admin/markets/{key}/finish
func (h *AdminHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.admin.FinishMarket, "finished")
}

// Adjourn voids the market's event.
// POST /api/admin/markets/{key}/adjourn
func (h *AdminHandler) Adjourn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.admin.AdjournMarket, "adjourned")
}

type resolveRequest struct {
	WinningAnswer uint64 `json:"winning_answer"`
}

// Resolve declares the winning answer and settles fees.
// POST /api/admin/markets/{key}/resolve
func (h *AdminHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.admin.ResolveSuccess(r.Context(), caller, key, req.WinningAnswer); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_key":     key,
		"winning_answer": req.WinningAnswer,
		"status":         "success",
	})
}

// Retrieve sweeps a terminal market's unclaimed stake to the treasury.
// POST /api/admin/markets/{key}/retrieve
func (h *AdminHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	swept, err := h.admin.RetrieveRemainder(r.Context(), caller, key)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_key": key,
		"retrieved":  swept,
	})
}

// transition handles the body-less status transitions that only need a caller
// and a market key.
func (h *AdminHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, caller common.Hash, marketKey uint64) error,
	status string,
) {
	caller, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := op(r.Context(), caller, key); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_key": key,
		"status":     status,
	})
}

// optionalHash decodes a nullable hex field.
func optionalHash(raw *string, name string) (*common.Hash, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := hexDecode32(*raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &v, nil
}
