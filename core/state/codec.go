package state

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"guardvault/native/vault"
)

// Persisted records use hex-encoded identities and decimal-string amounts so
// the stored JSON stays readable by external indexers.

type storedTier struct {
	MinAmount          string `json:"minAmount"`
	MaxAmount          string `json:"maxAmount,omitempty"`
	RequiredSignatures uint32 `json:"requiredSignatures"`
	Sensitive          bool   `json:"sensitive"`
	Active             bool   `json:"active"`
}

type storedWindow struct {
	StartHour            uint8  `json:"startHour"`
	EndHour              uint8  `json:"endHour"`
	AdditionalSignatures uint32 `json:"additionalSignatures"`
	Active               bool   `json:"active"`
	Reason               string `json:"reason,omitempty"`
}

type storedVault struct {
	ID                       string            `json:"id"`
	Owner                    string            `json:"owner"`
	Nonce                    uint64            `json:"nonce"`
	DefaultQuorum            uint32            `json:"defaultQuorum"`
	EmergencyThreshold       uint32            `json:"emergencyThreshold"`
	TimeLockDelay            int64             `json:"timeLockDelay"`
	RageQuitDelay            int64             `json:"rageQuitDelay"`
	LargeWithdrawalThreshold string            `json:"largeWithdrawalThreshold,omitempty"`
	TokenThresholds          map[string]string `json:"tokenThresholds,omitempty"`
	Tiers                    []storedTier      `json:"tiers,omitempty"`
	Windows                  []storedWindow    `json:"windows,omitempty"`
	Frozen                   bool              `json:"frozen"`
	Ballot                   map[string]uint8  `json:"ballot,omitempty"`
	RageQuitRequestedAt      int64             `json:"rageQuitRequestedAt,omitempty"`
	CreatedAt                int64             `json:"createdAt"`
}

type storedWithdrawal struct {
	ID           uint64   `json:"id"`
	Vault        string   `json:"vault"`
	Token        string   `json:"token"`
	Amount       string   `json:"amount"`
	Recipient    string   `json:"recipient"`
	Reason       string   `json:"reason,omitempty"`
	CreatedAt    int64    `json:"createdAt"`
	ReadyAt      int64    `json:"readyAt"`
	Approvers    []string `json:"approvers"`
	FreezeVoters []string `json:"freezeVoters,omitempty"`
	Executed     bool     `json:"executed"`
	Cancelled    bool     `json:"cancelled"`
}

type storedSession struct {
	ID                string   `json:"id"`
	Vault             string   `json:"vault"`
	Initiator         string   `json:"initiator"`
	Purpose           string   `json:"purpose,omitempty"`
	CreatedAt         int64    `json:"createdAt"`
	ExpiresAt         int64    `json:"expiresAt"`
	TotalApproved     string   `json:"totalApproved"`
	TotalSpent        string   `json:"totalSpent"`
	AllowedRecipients []string `json:"allowedRecipients,omitempty"`
	RequiresApproval  bool     `json:"requiresApproval"`
	ApprovalsRequired uint32   `json:"approvalsRequired"`
	Approvers         []string `json:"approvers,omitempty"`
	Active            bool     `json:"active"`
}

type storedSpend struct {
	SessionID string `json:"sessionId"`
	Vault     string `json:"vault"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func encodeAddr(a [20]byte) string { return hex.EncodeToString(a[:]) }

func decodeAddr(s string) ([20]byte, error) {
	var out [20]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 20 {
		return out, fmt.Errorf("state: invalid address %q", s)
	}
	copy(out[:], raw)
	return out, nil
}

func encodeHash(h [32]byte) string { return hex.EncodeToString(h[:]) }

func decodeHash(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return out, fmt.Errorf("state: invalid identifier %q", s)
	}
	copy(out[:], raw)
	return out, nil
}

func encodeAmount(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func decodeAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("state: invalid amount %q", s)
	}
	return v, nil
}

func encodeVault(v *vault.Vault) *storedVault {
	rec := &storedVault{
		ID:                       encodeHash(v.ID),
		Owner:                    encodeAddr(v.Owner),
		Nonce:                    v.Nonce,
		DefaultQuorum:            v.DefaultQuorum,
		EmergencyThreshold:       v.EmergencyThreshold,
		TimeLockDelay:            v.TimeLockDelay,
		RageQuitDelay:            v.RageQuitDelay,
		LargeWithdrawalThreshold: encodeAmount(v.LargeWithdrawalThreshold),
		Frozen:                   v.Frozen,
		RageQuitRequestedAt:      v.RageQuitRequestedAt,
		CreatedAt:                v.CreatedAt,
	}
	if len(v.TokenThresholds) > 0 {
		rec.TokenThresholds = make(map[string]string, len(v.TokenThresholds))
		for token, amt := range v.TokenThresholds {
			rec.TokenThresholds[token] = encodeAmount(amt)
		}
	}
	for _, t := range v.Tiers {
		rec.Tiers = append(rec.Tiers, storedTier{
			MinAmount:          encodeAmount(t.MinAmount),
			MaxAmount:          encodeAmount(t.MaxAmount),
			RequiredSignatures: t.RequiredSignatures,
			Sensitive:          t.Sensitive,
			Active:             t.Active,
		})
	}
	for _, w := range v.Windows {
		rec.Windows = append(rec.Windows, storedWindow{
			StartHour:            w.StartHour,
			EndHour:              w.EndHour,
			AdditionalSignatures: w.AdditionalSignatures,
			Active:               w.Active,
			Reason:               w.Reason,
		})
	}
	if len(v.Ballot) > 0 {
		rec.Ballot = make(map[string]uint8, len(v.Ballot))
		for g, c := range v.Ballot {
			rec.Ballot[encodeAddr(g)] = uint8(c)
		}
	}
	return rec
}

func decodeVault(rec *storedVault) (*vault.Vault, error) {
	id, err := decodeHash(rec.ID)
	if err != nil {
		return nil, err
	}
	owner, err := decodeAddr(rec.Owner)
	if err != nil {
		return nil, err
	}
	threshold, err := decodeAmount(rec.LargeWithdrawalThreshold)
	if err != nil {
		return nil, err
	}
	v := &vault.Vault{
		ID:                       id,
		Owner:                    owner,
		Nonce:                    rec.Nonce,
		DefaultQuorum:            rec.DefaultQuorum,
		EmergencyThreshold:       rec.EmergencyThreshold,
		TimeLockDelay:            rec.TimeLockDelay,
		RageQuitDelay:            rec.RageQuitDelay,
		LargeWithdrawalThreshold: threshold,
		Frozen:                   rec.Frozen,
		RageQuitRequestedAt:      rec.RageQuitRequestedAt,
		CreatedAt:                rec.CreatedAt,
	}
	if len(rec.TokenThresholds) > 0 {
		v.TokenThresholds = make(map[string]*big.Int, len(rec.TokenThresholds))
		for token, s := range rec.TokenThresholds {
			amt, err := decodeAmount(s)
			if err != nil {
				return nil, err
			}
			v.TokenThresholds[token] = amt
		}
	}
	for _, t := range rec.Tiers {
		min, err := decodeAmount(t.MinAmount)
		if err != nil {
			return nil, err
		}
		max, err := decodeAmount(t.MaxAmount)
		if err != nil {
			return nil, err
		}
		v.Tiers = append(v.Tiers, vault.QuorumTier{
			MinAmount:          min,
			MaxAmount:          max,
			RequiredSignatures: t.RequiredSignatures,
			Sensitive:          t.Sensitive,
			Active:             t.Active,
		})
	}
	for _, w := range rec.Windows {
		v.Windows = append(v.Windows, vault.TimeWindow{
			StartHour:            w.StartHour,
			EndHour:              w.EndHour,
			AdditionalSignatures: w.AdditionalSignatures,
			Active:               w.Active,
			Reason:               w.Reason,
		})
	}
	if len(rec.Ballot) > 0 {
		v.Ballot = make(map[[20]byte]vault.VoteChoice, len(rec.Ballot))
		for g, c := range rec.Ballot {
			addr, err := decodeAddr(g)
			if err != nil {
				return nil, err
			}
			v.Ballot[addr] = vault.VoteChoice(c)
		}
	}
	return v, nil
}

func encodeWithdrawal(q *vault.QueuedWithdrawal) *storedWithdrawal {
	rec := &storedWithdrawal{
		ID:        q.ID,
		Vault:     encodeHash(q.Vault),
		Token:     q.Token,
		Amount:    encodeAmount(q.Amount),
		Recipient: encodeAddr(q.Recipient),
		Reason:    q.Reason,
		CreatedAt: q.CreatedAt,
		ReadyAt:   q.ReadyAt,
		Executed:  q.Executed,
		Cancelled: q.Cancelled,
	}
	for _, a := range q.Approvers {
		rec.Approvers = append(rec.Approvers, encodeAddr(a))
	}
	for g := range q.FreezeVoters {
		rec.FreezeVoters = append(rec.FreezeVoters, encodeAddr(g))
	}
	return rec
}

func decodeWithdrawal(rec *storedWithdrawal) (*vault.QueuedWithdrawal, error) {
	vaultID, err := decodeHash(rec.Vault)
	if err != nil {
		return nil, err
	}
	recipient, err := decodeAddr(rec.Recipient)
	if err != nil {
		return nil, err
	}
	amount, err := decodeAmount(rec.Amount)
	if err != nil {
		return nil, err
	}
	q := &vault.QueuedWithdrawal{
		ID:           rec.ID,
		Vault:        vaultID,
		Token:        rec.Token,
		Amount:       amount,
		Recipient:    recipient,
		Reason:       rec.Reason,
		CreatedAt:    rec.CreatedAt,
		ReadyAt:      rec.ReadyAt,
		FreezeVoters: make(map[[20]byte]struct{}, len(rec.FreezeVoters)),
		Executed:     rec.Executed,
		Cancelled:    rec.Cancelled,
	}
	for _, s := range rec.Approvers {
		a, err := decodeAddr(s)
		if err != nil {
			return nil, err
		}
		q.Approvers = append(q.Approvers, a)
	}
	for _, s := range rec.FreezeVoters {
		g, err := decodeAddr(s)
		if err != nil {
			return nil, err
		}
		q.FreezeVoters[g] = struct{}{}
	}
	return q, nil
}

func encodeSession(s *vault.SpendingSession) *storedSession {
	rec := &storedSession{
		ID:                s.ID,
		Vault:             encodeHash(s.Vault),
		Initiator:         encodeAddr(s.Initiator),
		Purpose:           s.Purpose,
		CreatedAt:         s.CreatedAt,
		ExpiresAt:         s.ExpiresAt,
		TotalApproved:     encodeAmount(s.TotalApproved),
		TotalSpent:        encodeAmount(s.TotalSpent),
		RequiresApproval:  s.RequiresApproval,
		ApprovalsRequired: s.ApprovalsRequired,
		Active:            s.Active,
	}
	for _, r := range s.AllowedRecipients {
		rec.AllowedRecipients = append(rec.AllowedRecipients, encodeAddr(r))
	}
	for g := range s.Approvers {
		rec.Approvers = append(rec.Approvers, encodeAddr(g))
	}
	return rec
}

func decodeSession(rec *storedSession) (*vault.SpendingSession, error) {
	vaultID, err := decodeHash(rec.Vault)
	if err != nil {
		return nil, err
	}
	initiator, err := decodeAddr(rec.Initiator)
	if err != nil {
		return nil, err
	}
	approved, err := decodeAmount(rec.TotalApproved)
	if err != nil {
		return nil, err
	}
	spent, err := decodeAmount(rec.TotalSpent)
	if err != nil {
		return nil, err
	}
	if spent == nil {
		spent = big.NewInt(0)
	}
	s := &vault.SpendingSession{
		ID:                rec.ID,
		Vault:             vaultID,
		Initiator:         initiator,
		Purpose:           rec.Purpose,
		CreatedAt:         rec.CreatedAt,
		ExpiresAt:         rec.ExpiresAt,
		TotalApproved:     approved,
		TotalSpent:        spent,
		RequiresApproval:  rec.RequiresApproval,
		ApprovalsRequired: rec.ApprovalsRequired,
		Approvers:         make(map[[20]byte]struct{}, len(rec.Approvers)),
		Active:            rec.Active,
	}
	for _, r := range rec.AllowedRecipients {
		a, err := decodeAddr(r)
		if err != nil {
			return nil, err
		}
		s.AllowedRecipients = append(s.AllowedRecipients, a)
	}
	for _, g := range rec.Approvers {
		a, err := decodeAddr(g)
		if err != nil {
			return nil, err
		}
		s.Approvers[a] = struct{}{}
	}
	return s, nil
}

func encodeSpend(r *vault.SpendRecord) *storedSpend {
	return &storedSpend{
		SessionID: r.SessionID,
		Vault:     encodeHash(r.Vault),
		Token:     r.Token,
		Amount:    encodeAmount(r.Amount),
		Recipient: encodeAddr(r.Recipient),
		Reason:    r.Reason,
		Timestamp: r.Timestamp,
	}
}

func decodeSpend(rec *storedSpend) (*vault.SpendRecord, error) {
	vaultID, err := decodeHash(rec.Vault)
	if err != nil {
		return nil, err
	}
	recipient, err := decodeAddr(rec.Recipient)
	if err != nil {
		return nil, err
	}
	amount, err := decodeAmount(rec.Amount)
	if err != nil {
		return nil, err
	}
	return &vault.SpendRecord{
		SessionID: rec.SessionID,
		Vault:     vaultID,
		Token:     rec.Token,
		Amount:    amount,
		Recipient: recipient,
		Reason:    rec.Reason,
		Timestamp: rec.Timestamp,
	}, nil
}
