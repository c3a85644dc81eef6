package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guardvault/config"
	"guardvault/core/state"
	"guardvault/crypto"
	"guardvault/native/vault"
)

// Server exposes the vault engine operations as an HTTP JSON API.
type Server struct {
	engine   *vault.Engine
	store    *state.VaultStore
	ledger   *state.LedgerStore
	registry *state.RegistryStore
	cfg      *config.Config
	logger   *slog.Logger
}

// NewServer wires the engine and its collaborators into an HTTP server. The
// configuration supplies the starting policy for newly created vaults; nil
// falls back to the built-in defaults.
func NewServer(engine *vault.Engine, store *state.VaultStore, ledger *state.LedgerStore, registry *state.RegistryStore, cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   engine,
		store:    store,
		ledger:   ledger,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/vaults", s.handleCreateVault)
		r.Route("/vaults/{vaultID}", func(r chi.Router) {
			r.Get("/", s.handleGetVault)
			r.Post("/quorum", s.handleQuorum)
			r.Post("/withdrawals", s.handleWithdraw)
			r.Get("/withdrawals", s.handleListWithdrawals)
			r.Post("/ballot", s.handleBallot)
			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions", s.handleListSessions)
			r.Post("/ragequit", s.handleRageQuitRequest)
			r.Post("/ragequit/execute", s.handleRageQuitExecute)
			r.Post("/ragequit/cancel", s.handleRageQuitCancel)
			r.Post("/guardians", s.handleAddGuardian)
			r.Post("/guardians/remove", s.handleRemoveGuardian)
			r.Post("/credit", s.handleCredit)
			r.Route("/config", func(r chi.Router) {
				r.Post("/tiers", s.handleAddTier)
				r.Post("/windows", s.handleAddWindow)
				r.Post("/emergency-threshold", s.handleSetEmergencyThreshold)
				r.Post("/timelock-delay", s.handleSetTimeLockDelay)
				r.Post("/large-threshold", s.handleSetLargeThreshold)
			})
		})
		r.Route("/withdrawals/{queueID}", func(r chi.Router) {
			r.Post("/execute", s.handleExecuteQueued)
			r.Post("/cancel", s.handleCancelQueued)
			r.Post("/freeze", s.handleFreezeQueued)
			r.Post("/unfreeze", s.handleUnfreezeQueued)
		})
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/approve", s.handleApproveSession)
			r.Post("/spend", s.handleSpend)
			r.Post("/deactivate", s.handleDeactivateSession)
			r.Post("/expire", s.handleExpireSession)
			r.Get("/spends", s.handleListSpends)
		})
	})
	return r
}

// Start serves the API until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting vault API", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

// --- request plumbing ---

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("encode response", "error", err)
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, apiError{Code: code, Message: err.Error()})
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

func parseVaultID(r *http.Request) ([32]byte, error) {
	var id [32]byte
	raw, err := hex.DecodeString(chi.URLParam(r, "vaultID"))
	if err != nil || len(raw) != 32 {
		return id, errBadRequest("invalid vault id")
	}
	copy(id[:], raw)
	return id, nil
}

func parseAddress(s string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(s)
	if err != nil {
		return [20]byte{}, errBadRequest("invalid address: " + s)
	}
	return addr.Array(), nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errBadRequest("invalid amount: " + s)
	}
	return v, nil
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func errBadRequest(msg string) error { return badRequestError{msg: msg} }

// classifyError maps engine failure kinds onto HTTP statuses and stable codes
// so callers can distinguish "resubmit with more signatures" from "wait
// longer" from "permanently blocked".
func classifyError(err error) (int, string) {
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "BadRequest"
	case errors.Is(err, vault.ErrVaultNotFound),
		errors.Is(err, vault.ErrWithdrawalNotFound),
		errors.Is(err, vault.ErrSessionNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, vault.ErrQuorumNotMet):
		return http.StatusForbidden, "QuorumNotMet"
	case errors.Is(err, vault.ErrNonceMismatch):
		return http.StatusConflict, "NonceMismatch"
	case errors.Is(err, vault.ErrInvalidSignature):
		return http.StatusBadRequest, "InvalidSignature"
	case errors.Is(err, vault.ErrUnauthorizedGuardian):
		return http.StatusForbidden, "UnauthorizedGuardian"
	case errors.Is(err, vault.ErrNotAGuardian):
		return http.StatusForbidden, "NotAGuardian"
	case errors.Is(err, vault.ErrNotOwner):
		return http.StatusForbidden, "NotOwner"
	case errors.Is(err, vault.ErrVaultFrozen):
		return http.StatusLocked, "VaultFrozen"
	case errors.Is(err, vault.ErrWithdrawalFrozen):
		return http.StatusLocked, "WithdrawalFrozen"
	case errors.Is(err, vault.ErrWithdrawalCancelled):
		return http.StatusGone, "WithdrawalCancelled"
	case errors.Is(err, vault.ErrWithdrawalNotReady):
		return http.StatusTooEarly, "WithdrawalNotReady"
	case errors.Is(err, vault.ErrAlreadyExecuted):
		return http.StatusGone, "AlreadyExecuted"
	case errors.Is(err, vault.ErrDuplicateVote):
		return http.StatusConflict, "DuplicateVote"
	case errors.Is(err, vault.ErrNoFreezeVote):
		return http.StatusConflict, "NoFreezeVote"
	case errors.Is(err, vault.ErrSessionExpired):
		return http.StatusGone, "SessionExpired"
	case errors.Is(err, vault.ErrSessionInactive):
		return http.StatusGone, "SessionInactive"
	case errors.Is(err, vault.ErrSessionNotApproved):
		return http.StatusForbidden, "SessionNotApproved"
	case errors.Is(err, vault.ErrRecipientNotAllowed):
		return http.StatusForbidden, "RecipientNotAllowed"
	case errors.Is(err, vault.ErrBudgetExceeded):
		return http.StatusConflict, "BudgetExceeded"
	case errors.Is(err, vault.ErrZeroAmount):
		return http.StatusBadRequest, "ZeroAmount"
	case errors.Is(err, vault.ErrInvalidRecipient):
		return http.StatusBadRequest, "InvalidRecipient"
	case errors.Is(err, vault.ErrThresholdExceedsQuorum):
		return http.StatusBadRequest, "ThresholdExceedsQuorum"
	case errors.Is(err, vault.ErrThresholdExceedsGuardianCount):
		return http.StatusBadRequest, "ThresholdExceedsGuardianCount"
	case errors.Is(err, vault.ErrInsufficientBalance):
		return http.StatusConflict, "InsufficientBalance"
	case errors.Is(err, vault.ErrRageQuitNotRequested):
		return http.StatusConflict, "RageQuitNotRequested"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}
