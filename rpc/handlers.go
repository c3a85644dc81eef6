package rpc

import (
	"encoding/hex"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"guardvault/crypto"
	"guardvault/native/vault"
)

// --- views ---

func addrString(a [20]byte) string {
	return crypto.NewAddress(crypto.VaultPrefix, a[:]).String()
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type vaultView struct {
	ID                  string `json:"id"`
	Owner               string `json:"owner"`
	Nonce               uint64 `json:"nonce"`
	DefaultQuorum       uint32 `json:"defaultQuorum"`
	EmergencyThreshold  uint32 `json:"emergencyThreshold"`
	TimeLockDelay       int64  `json:"timeLockDelay"`
	RageQuitDelay       int64  `json:"rageQuitDelay"`
	Frozen              bool   `json:"frozen"`
	RageQuitRequestedAt int64  `json:"rageQuitRequestedAt,omitempty"`
	Tiers               int    `json:"tiers"`
	Windows             int    `json:"windows"`
}

func newVaultView(v *vault.Vault) vaultView {
	return vaultView{
		ID:                  hex.EncodeToString(v.ID[:]),
		Owner:               addrString(v.Owner),
		Nonce:               v.Nonce,
		DefaultQuorum:       v.DefaultQuorum,
		EmergencyThreshold:  v.EmergencyThreshold,
		TimeLockDelay:       v.TimeLockDelay,
		RageQuitDelay:       v.RageQuitDelay,
		Frozen:              v.Frozen,
		RageQuitRequestedAt: v.RageQuitRequestedAt,
		Tiers:               len(v.Tiers),
		Windows:             len(v.Windows),
	}
}

type withdrawalView struct {
	ID        uint64 `json:"id"`
	Vault     string `json:"vault"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason,omitempty"`
	ReadyAt   int64  `json:"readyAt"`
	Frozen    bool   `json:"frozen"`
	Freezes   int    `json:"freezes"`
	Executed  bool   `json:"executed"`
	Cancelled bool   `json:"cancelled"`
}

func newWithdrawalView(q *vault.QueuedWithdrawal) withdrawalView {
	return withdrawalView{
		ID:        q.ID,
		Vault:     hex.EncodeToString(q.Vault[:]),
		Token:     q.Token,
		Amount:    amountString(q.Amount),
		Recipient: addrString(q.Recipient),
		Reason:    q.Reason,
		ReadyAt:   q.ReadyAt,
		Frozen:    q.IsFrozen(),
		Freezes:   len(q.FreezeVoters),
		Executed:  q.Executed,
		Cancelled: q.Cancelled,
	}
}

type sessionView struct {
	ID                string `json:"id"`
	Vault             string `json:"vault"`
	Initiator         string `json:"initiator"`
	Purpose           string `json:"purpose,omitempty"`
	ExpiresAt         int64  `json:"expiresAt"`
	TotalApproved     string `json:"totalApproved"`
	TotalSpent        string `json:"totalSpent"`
	RequiresApproval  bool   `json:"requiresApproval"`
	ApprovalsRequired uint32 `json:"approvalsRequired"`
	ApprovalsReceived uint32 `json:"approvalsReceived"`
	Active            bool   `json:"active"`
}

func newSessionView(s *vault.SpendingSession) sessionView {
	return sessionView{
		ID:                s.ID,
		Vault:             hex.EncodeToString(s.Vault[:]),
		Initiator:         addrString(s.Initiator),
		Purpose:           s.Purpose,
		ExpiresAt:         s.ExpiresAt,
		TotalApproved:     amountString(s.TotalApproved),
		TotalSpent:        amountString(s.TotalSpent),
		RequiresApproval:  s.RequiresApproval,
		ApprovalsRequired: s.ApprovalsRequired,
		ApprovalsReceived: uint32(len(s.Approvers)),
		Active:            s.Active,
	}
}

type spendView struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// --- vault lifecycle ---

type createVaultRequest struct {
	Owner                    string `json:"owner"`
	Salt                     string `json:"salt"`
	DefaultQuorum            uint32 `json:"defaultQuorum"`
	EmergencyThreshold       uint32 `json:"emergencyThreshold"`
	TimeLockDelay            int64  `json:"timeLockDelay"`
	RageQuitDelay            int64  `json:"rageQuitDelay"`
	LargeWithdrawalThreshold string `json:"largeWithdrawalThreshold"`
}

func (s *Server) handleCreateVault(w http.ResponseWriter, r *http.Request) {
	var req createVaultRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Fields the caller leaves unset fall back to the daemon configuration so
	// a bare create never yields a zero-quorum or zero-delay vault.
	quorum := req.DefaultQuorum
	if quorum == 0 {
		quorum = s.cfg.DefaultQuorum
	}
	emergency := req.EmergencyThreshold
	if emergency == 0 {
		emergency = s.cfg.EmergencyFreezeThreshold
	}
	timeLock := req.TimeLockDelay
	if timeLock == 0 {
		timeLock = s.cfg.TimeLockDelaySeconds
	}
	rageQuit := req.RageQuitDelay
	if rageQuit == 0 {
		rageQuit = s.cfg.RageQuitDelaySeconds
	}
	v := &vault.Vault{
		Owner:              owner,
		DefaultQuorum:      quorum,
		EmergencyThreshold: emergency,
		TimeLockDelay:      timeLock,
		RageQuitDelay:      rageQuit,
	}
	rawThreshold := req.LargeWithdrawalThreshold
	if rawThreshold == "" {
		rawThreshold = s.cfg.LargeWithdrawalThreshold
	}
	if rawThreshold != "" {
		threshold, err := parseAmount(rawThreshold)
		if err != nil {
			s.writeError(w, err)
			return
		}
		v.LargeWithdrawalThreshold = threshold
	}
	copy(v.ID[:], ethcrypto.Keccak256(owner[:], []byte(req.Salt)))
	created, err := s.engine.CreateVault(v)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newVaultView(created))
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.engine.GetVault(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newVaultView(v))
}

// --- quorum + withdrawals ---

type quorumRequest struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (s *Server) handleQuorum(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req quorumRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	required, sensitive, err := s.engine.Quorum(id, req.Token, amount, time.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"requiredSignatures": required,
		"sensitive":          sensitive,
	})
}

type withdrawRequest struct {
	Token      string   `json:"token"`
	Amount     string   `json:"amount"`
	Recipient  string   `json:"recipient"`
	Reason     string   `json:"reason"`
	Nonce      uint64   `json:"nonce"`
	Signatures []string `json:"signatures"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		s.writeError(w, err)
		return
	}
	signatures := make([][]byte, 0, len(req.Signatures))
	for _, sig := range req.Signatures {
		raw, err := hex.DecodeString(sig)
		if err != nil {
			s.writeError(w, errBadRequest("invalid signature encoding"))
			return
		}
		signatures = append(signatures, raw)
	}
	intent := &vault.WithdrawalIntent{
		Vault:     id,
		Token:     req.Token,
		Amount:    amount,
		Recipient: recipient,
		Reason:    req.Reason,
		Nonce:     req.Nonce,
	}
	queued, err := s.engine.QueueOrExecute(intent, signatures)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if queued == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"status": "executed"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, newWithdrawalView(queued))
}

func (s *Server) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	queued, err := s.store.QueuedWithdrawals(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]withdrawalView, 0, len(queued))
	for _, q := range queued {
		views = append(views, newWithdrawalView(q))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func parseQueueID(r *http.Request) (uint64, error) {
	var id uint64
	raw := chi.URLParam(r, "queueID")
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, errBadRequest("invalid queue id")
		}
		id = id*10 + uint64(c-'0')
	}
	if raw == "" {
		return 0, errBadRequest("invalid queue id")
	}
	return id, nil
}

func (s *Server) handleExecuteQueued(w http.ResponseWriter, r *http.Request) {
	id, err := parseQueueID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.ExecuteQueued(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "executed"})
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (s *Server) callerAddress(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return [20]byte{}, false
	}
	addr, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) handleCancelQueued(w http.ResponseWriter, r *http.Request) {
	id, err := parseQueueID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	caller, ok := s.callerAddress(w, r)
	if !ok {
		return
	}
	if err := s.engine.CancelQueued(id, caller); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
}

func (s *Server) handleFreezeQueued(w http.ResponseWriter, r *http.Request) {
	id, err := parseQueueID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	guardian, ok := s.callerAddress(w, r)
	if !ok {
		return
	}
	if err := s.engine.FreezeQueued(id, guardian); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "frozen"})
}

func (s *Server) handleUnfreezeQueued(w http.ResponseWriter, r *http.Request) {
	id, err := parseQueueID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	guardian, ok := s.callerAddress(w, r)
	if !ok {
		return
	}
	if err := s.engine.UnfreezeQueued(id, guardian); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "unfrozen"})
}

// --- emergency freeze ballot ---

type ballotRequest struct {
	Guardian string `json:"guardian"`
	Choice   string `json:"choice"`
}

func (s *Server) handleBallot(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req ballotRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	guardian, err := parseAddress(req.Guardian)
	if err != nil {
		s.writeError(w, err)
		return
	}
	switch req.Choice {
	case "freeze":
		err = s.engine.VoteEmergencyFreeze(id, guardian)
	case "unfreeze":
		err = s.engine.VoteEmergencyUnfreeze(id, guardian)
	default:
		err = errBadRequest("choice must be freeze or unfreeze")
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.engine.GetVault(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"frozen": v.Frozen})
}

// --- sessions ---

type createSessionRequest struct {
	Caller            string   `json:"caller"`
	DurationSeconds   int64    `json:"durationSeconds"`
	TotalApproved     string   `json:"totalApproved"`
	Purpose           string   `json:"purpose"`
	RequiresApproval  bool     `json:"requiresApproval"`
	ApprovalsRequired uint32   `json:"approvalsRequired"`
	AllowedRecipients []string `json:"allowedRecipients"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	approved, err := parseAmount(req.TotalApproved)
	if err != nil {
		s.writeError(w, err)
		return
	}
	recipients := make([][20]byte, 0, len(req.AllowedRecipients))
	for _, raw := range req.AllowedRecipients {
		addr, err := parseAddress(raw)
		if err != nil {
			s.writeError(w, err)
			return
		}
		recipients = append(recipients, addr)
	}
	session, err := s.engine.CreateSession(id, caller, vault.SessionParams{
		Duration:          time.Duration(req.DurationSeconds) * time.Second,
		TotalApproved:     approved,
		Purpose:           req.Purpose,
		RequiresApproval:  req.RequiresApproval,
		ApprovalsRequired: req.ApprovalsRequired,
		AllowedRecipients: recipients,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newSessionView(session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sessions, err := s.store.Sessions(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, newSessionView(session))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleApproveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	guardian, ok := s.callerAddress(w, r)
	if !ok {
		return
	}
	if err := s.engine.ApproveSession(sessionID, guardian); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "approved"})
}

type spendRequest struct {
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason"`
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req spendRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		s.writeError(w, err)
		return
	}
	record, err := s.engine.Spend(sessionID, req.Token, amount, recipient, req.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, spendView{
		SessionID: record.SessionID,
		Token:     record.Token,
		Amount:    amountString(record.Amount),
		Recipient: addrString(record.Recipient),
		Reason:    record.Reason,
		Timestamp: record.Timestamp,
	})
}

type deactivateRequest struct {
	Caller string `json:"caller"`
	Reason string `json:"reason"`
}

func (s *Server) handleDeactivateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req deactivateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.DeactivateSession(sessionID, caller, req.Reason); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "deactivated"})
}

func (s *Server) handleExpireSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.engine.ExpireSession(sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "expired"})
}

func (s *Server) handleListSpends(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	records, err := s.store.SpendRecords(sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]spendView, 0, len(records))
	for _, record := range records {
		views = append(views, spendView{
			SessionID: record.SessionID,
			Token:     record.Token,
			Amount:    amountString(record.Amount),
			Recipient: addrString(record.Recipient),
			Reason:    record.Reason,
			Timestamp: record.Timestamp,
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

// --- rage quit ---

func (s *Server) handleRageQuitRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	caller, ok := s.callerAddress(w, r)
	if !ok {
		return
	}
	if err := s.engine.RequestRageQuit(id, caller); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "requested"})
}

type rageQuitExecuteRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
}

func (s *Server) handleRageQuitExecute(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req rageQuitExecuteRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.ExecuteRageQuit(id, caller, req.Token); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "executed"})
}

func (s *Server) handleRageQuitCancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	caller, ok := s.callerAddress(w, r)
	if !ok {
		return
	}
	if err := s.engine.CancelRageQuit(id, caller); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
}

// --- collaborator administration (guardian registry + ledger) ---

type guardianRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleAddGuardian(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req guardianRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.registry.AddGuardian(id, addr); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "added"})
}

func (s *Server) handleRemoveGuardian(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req guardianRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.registry.RemoveGuardian(id, addr); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "removed"})
}

type creditRequest struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req creditRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.ledger.Credit(id, req.Token, amount); err != nil {
		s.writeError(w, err)
		return
	}
	balance, err := s.ledger.Balance(id, req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"balance": amountString(balance)})
}

// --- owner configuration ---

type tierRequest struct {
	Caller             string `json:"caller"`
	MinAmount          string `json:"minAmount"`
	MaxAmount          string `json:"maxAmount"`
	RequiredSignatures uint32 `json:"requiredSignatures"`
	Sensitive          bool   `json:"sensitive"`
}

func (s *Server) handleAddTier(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req tierRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tier := vault.QuorumTier{RequiredSignatures: req.RequiredSignatures, Sensitive: req.Sensitive}
	if req.MinAmount != "" {
		if tier.MinAmount, err = parseAmount(req.MinAmount); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if req.MaxAmount != "" {
		if tier.MaxAmount, err = parseAmount(req.MaxAmount); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if err := s.engine.AddQuorumTier(id, caller, tier); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "added"})
}

type windowRequest struct {
	Caller               string `json:"caller"`
	StartHour            uint8  `json:"startHour"`
	EndHour              uint8  `json:"endHour"`
	AdditionalSignatures uint32 `json:"additionalSignatures"`
	Reason               string `json:"reason"`
}

func (s *Server) handleAddWindow(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req windowRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	window := vault.TimeWindow{
		StartHour:            req.StartHour,
		EndHour:              req.EndHour,
		AdditionalSignatures: req.AdditionalSignatures,
		Reason:               req.Reason,
	}
	if err := s.engine.AddTimeWindow(id, caller, window); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "added"})
}

type thresholdRequest struct {
	Caller    string `json:"caller"`
	Threshold uint32 `json:"threshold"`
}

func (s *Server) handleSetEmergencyThreshold(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req thresholdRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.SetEmergencyThreshold(id, caller, req.Threshold); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

type delayRequest struct {
	Caller  string `json:"caller"`
	Seconds int64  `json:"seconds"`
}

func (s *Server) handleSetTimeLockDelay(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req delayRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.SetTimeLockDelay(id, caller, req.Seconds); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

type largeThresholdRequest struct {
	Caller    string `json:"caller"`
	Token     string `json:"token"`
	Threshold string `json:"threshold"`
}

func (s *Server) handleSetLargeThreshold(w http.ResponseWriter, r *http.Request) {
	id, err := parseVaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req largeThresholdRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, errBadRequest(err.Error()))
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var threshold *big.Int
	if req.Threshold != "" {
		if threshold, err = parseAmount(req.Threshold); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if req.Token == "" {
		err = s.engine.SetLargeWithdrawalThreshold(id, caller, threshold)
	} else {
		err = s.engine.SetTokenThreshold(id, caller, req.Token, threshold)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}
