package dto

import (
	"mtbridge/internal/domain"
)

// ConnectRequest establishes the backend session
type ConnectRequest struct {
	Server   string `json:"server"`
	Login    uint64 `json:"login"`
	Password string `json:"password"`
}

// BalanceRequest performs a deposit (positive amount) or withdrawal
// (negative amount) on one account
type BalanceRequest struct {
	Login   uint64  `json:"login"`
	Amount  float64 `json:"amount"`
	Comment string  `json:"comment"`
	Type    *uint32 `json:"type"`
}

// OperationType returns the backend operation code, defaulting to the
// standard deposit/withdrawal type.
func (r *BalanceRequest) OperationType() uint32 {
	if r.Type != nil {
		return *r.Type
	}
	return 2
}

// GroupCreateRequest creates a new group descriptor. Omitted fields are
// filled heuristically from the group name.
type GroupCreateRequest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Company           string   `json:"company"`
	Currency          string   `json:"currency"`
	Leverage          uint32   `json:"leverage"`
	DepositMin        float64  `json:"deposit_min"`
	DepositMax        float64  `json:"deposit_max"`
	CreditLimit       float64  `json:"credit_limit"`
	MarginCall        float64  `json:"margin_call"`
	MarginStopOut     float64  `json:"margin_stop_out"`
	InterestRate      float64  `json:"interest_rate"`
	Commission        float64  `json:"commission"`
	CommissionType    uint32   `json:"commission_type"`
	AgentCommission   float64  `json:"agent_commission"`
	Rights            uint32   `json:"rights"`
	Timeout           uint32   `json:"timeout"`
	NewsMode          uint32   `json:"news_mode"`
	ReportsMode       uint32   `json:"reports_mode"`
	EmailFrom         string   `json:"email_from"`
	SupportPage       string   `json:"support_page"`
	SupportEmail      string   `json:"support_email"`
	DefaultDeposit    float64  `json:"default_deposit"`
	DefaultCredit     float64  `json:"default_credit"`
	ArchivePeriod     uint32   `json:"archive_period"`
	ArchiveMaxRecords uint32   `json:"archive_max_records"`
	IsDemo            *bool    `json:"is_demo"`
}

// ToGroup maps the request onto a domain descriptor; unset fields stay
// zero for FillDefaults to complete.
func (r *GroupCreateRequest) ToGroup() *domain.Group {
	group := &domain.Group{
		Name:              r.Name,
		Description:       r.Description,
		Company:           r.Company,
		Currency:          r.Currency,
		Leverage:          r.Leverage,
		DepositMin:        r.DepositMin,
		DepositMax:        r.DepositMax,
		CreditLimit:       r.CreditLimit,
		MarginCall:        r.MarginCall,
		MarginStopOut:     r.MarginStopOut,
		InterestRate:      r.InterestRate,
		Commission:        r.Commission,
		CommissionType:    r.CommissionType,
		AgentCommission:   r.AgentCommission,
		Rights:            r.Rights,
		CheckPassword:     true,
		Timeout:           r.Timeout,
		NewsMode:          r.NewsMode,
		ReportsMode:       r.ReportsMode,
		EmailFrom:         r.EmailFrom,
		SupportPage:       r.SupportPage,
		SupportEmail:      r.SupportEmail,
		DefaultDeposit:    r.DefaultDeposit,
		DefaultCredit:     r.DefaultCredit,
		ArchivePeriod:     r.ArchivePeriod,
		ArchiveMaxRecords: r.ArchiveMaxRecords,
	}
	if r.IsDemo != nil {
		group.IsDemo = *r.IsDemo
	}
	return group
}

// GroupUpdateRequest carries a partial group update; nil fields are left
// unchanged.
type GroupUpdateRequest struct {
	Description       *string  `json:"description"`
	Company           *string  `json:"company"`
	Currency          *string  `json:"currency"`
	Leverage          *uint32  `json:"leverage"`
	DepositMin        *float64 `json:"deposit_min"`
	DepositMax        *float64 `json:"deposit_max"`
	CreditLimit       *float64 `json:"credit_limit"`
	MarginCall        *float64 `json:"margin_call"`
	MarginStopOut     *float64 `json:"margin_stop_out"`
	InterestRate      *float64 `json:"interest_rate"`
	Commission        *float64 `json:"commission"`
	CommissionType    *uint32  `json:"commission_type"`
	AgentCommission   *float64 `json:"agent_commission"`
	Rights            *uint32  `json:"rights"`
	Timeout           *uint32  `json:"timeout"`
	NewsMode          *uint32  `json:"news_mode"`
	ReportsMode       *uint32  `json:"reports_mode"`
	EmailFrom         *string  `json:"email_from"`
	SupportPage       *string  `json:"support_page"`
	SupportEmail      *string  `json:"support_email"`
	DefaultDeposit    *float64 `json:"default_deposit"`
	DefaultCredit     *float64 `json:"default_credit"`
	ArchivePeriod     *uint32  `json:"archive_period"`
	ArchiveMaxRecords *uint32  `json:"archive_max_records"`
}

// ToPatch maps the request onto a domain patch.
func (r *GroupUpdateRequest) ToPatch() *domain.GroupPatch {
	return &domain.GroupPatch{
		Description:       r.Description,
		Company:           r.Company,
		Currency:          r.Currency,
		Leverage:          r.Leverage,
		DepositMin:        r.DepositMin,
		DepositMax:        r.DepositMax,
		CreditLimit:       r.CreditLimit,
		MarginCall:        r.MarginCall,
		MarginStopOut:     r.MarginStopOut,
		InterestRate:      r.InterestRate,
		Commission:        r.Commission,
		CommissionType:    r.CommissionType,
		AgentCommission:   r.AgentCommission,
		Rights:            r.Rights,
		Timeout:           r.Timeout,
		NewsMode:          r.NewsMode,
		ReportsMode:       r.ReportsMode,
		EmailFrom:         r.EmailFrom,
		SupportPage:       r.SupportPage,
		SupportEmail:      r.SupportEmail,
		DefaultDeposit:    r.DefaultDeposit,
		DefaultCredit:     r.DefaultCredit,
		ArchivePeriod:     r.ArchivePeriod,
		ArchiveMaxRecords: r.ArchiveMaxRecords,
	}
}
