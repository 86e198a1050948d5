package domain

import (
	"fmt"
	"strings"
	"time"
)

// NameSeparator splits a group path into category and subgroup,
// e.g. "real\\Executive".
const NameSeparator = "\\"

// Group describes the trading conditions shared by the accounts of one
// group. The name is the only identity; every other field may be filled
// heuristically when not supplied explicitly.
type Group struct {
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Company           string         `json:"company"`
	Currency          string         `json:"currency"`
	Leverage          uint32         `json:"leverage"`
	DepositMin        float64        `json:"deposit_min"`
	DepositMax        float64        `json:"deposit_max"`
	CreditLimit       float64        `json:"credit_limit"`
	MarginCall        float64        `json:"margin_call"`
	MarginStopOut     float64        `json:"margin_stop_out"`
	InterestRate      float64        `json:"interest_rate"`
	Commission        float64        `json:"commission"`
	CommissionType    uint32         `json:"commission_type"`
	AgentCommission   float64        `json:"agent_commission"`
	Rights            uint32         `json:"rights"`
	CheckPassword     bool           `json:"check_password"`
	Timeout           uint32         `json:"timeout"`
	OHLCMaxCount      uint32         `json:"ohlc_max_count"`
	NewsMode          uint32         `json:"news_mode"`
	ReportsMode       uint32         `json:"reports_mode"`
	EmailFrom         string         `json:"email_from"`
	SupportPage       string         `json:"support_page"`
	SupportEmail      string         `json:"support_email"`
	TemplatesPath     string         `json:"templates_path"`
	DefaultDeposit    float64        `json:"default_deposit"`
	DefaultCredit     float64        `json:"default_credit"`
	ArchivePeriod     uint32         `json:"archive_period"`
	ArchiveMaxRecords uint32         `json:"archive_max_records"`
	IsDemo            bool           `json:"is_demo"`
	UserCount         int            `json:"user_count"`
	LastUpdate        time.Time      `json:"last_update"`
	CustomProperties  map[string]any `json:"custom_properties,omitempty"`
}

// Commission type values carried through from the backend conventions.
const (
	CommissionMoney   uint32 = 0
	CommissionPips    uint32 = 1
	CommissionPercent uint32 = 2
)

// Defaults applied when neither the request nor the heuristics decide.
const (
	DefaultCompany      = "MT5 Trading Company"
	DefaultCurrency     = "USD"
	DefaultEmailFrom    = "noreply@mt5trading.com"
	DefaultSupportEmail = "support@mt5trading.com"
	DefaultSupportPage  = "https://support.mt5trading.com"
)

// ValidateName checks the hierarchical "category\\subgroup" form.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}
	if !strings.Contains(name, NameSeparator) {
		return fmt.Errorf("%w: group name %q must contain a category separator %q", ErrInvalidInput, name, NameSeparator)
	}
	return nil
}

// nameRule is one entry of an ordered heuristic table: the first rule
// whose keyword matches the lowercased group name wins.
type nameRule[T any] struct {
	keywords []string
	value    T
}

func matchRules[T any](name string, rules []nameRule[T], fallback T) T {
	lower := strings.ToLower(name)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.value
			}
		}
	}
	return fallback
}

var leverageRules = []nameRule[uint32]{
	{keywords: []string{"demo"}, value: 500},
	{keywords: []string{"vip", "executive"}, value: 200},
	{keywords: []string{"zero"}, value: 1000},
}

var commissionRules = []nameRule[float64]{
	{keywords: []string{"zero", "vip", "executive", "demo"}, value: 0},
}

var rightsRules = []nameRule[uint32]{
	{keywords: []string{"manager"}, value: 127},
	{keywords: []string{"demo"}, value: 71},
}

// DefaultLeverage derives a leverage from the group name alone.
func DefaultLeverage(name string) uint32 {
	return matchRules(name, leverageRules, 100)
}

// DefaultCommission is the flat per-lot commission for the group name.
func DefaultCommission(name string) float64 {
	return matchRules(name, commissionRules, 7.0)
}

// DefaultRights derives the rights bitmask from the group name.
func DefaultRights(name string) uint32 {
	return matchRules(name, rightsRules, 67)
}

// DefaultMarginLevels returns margin-call and stop-out percentages.
func DefaultMarginLevels(name string) (call, stopOut float64) {
	if nameContains(name, "vip") {
		return 70, 40
	}
	return 80, 50
}

// DefaultDepositLimits returns minimum and maximum deposit amounts.
func DefaultDepositLimits(name string) (min, max float64) {
	min = 100
	if IsDemoName(name) {
		min = 0
	}
	max = 1_000_000
	if nameContains(name, "vip") || nameContains(name, "executive") {
		max = 10_000_000
	}
	return min, max
}

// IsDemoName reports whether the name marks a demo group.
func IsDemoName(name string) bool {
	return nameContains(name, "demo")
}

func nameContains(name, keyword string) bool {
	return strings.Contains(strings.ToLower(name), keyword)
}

// DescribeName builds a human description from the group name.
func DescribeName(name string) string {
	switch {
	case name == "":
		return "Unknown Group"
	case nameContains(name, "demo"):
		return "Demo trading group: " + name
	case nameContains(name, "vip"), nameContains(name, "executive"):
		return "VIP trading group: " + name
	case nameContains(name, "manager"):
		return "Manager group: " + name
	case nameContains(name, "real"):
		return "Real trading group: " + name
	default:
		return "Trading group: " + name
	}
}

// GroupLeverage picks the majority positive leverage among members, ties
// broken by first-encountered value, falling back to the name heuristic
// when no member has a positive leverage.
func GroupLeverage(name string, users []User) uint32 {
	counts := make(map[uint32]int)
	var order []uint32
	for _, u := range users {
		if u.Leverage == 0 {
			continue
		}
		if counts[u.Leverage] == 0 {
			order = append(order, u.Leverage)
		}
		counts[u.Leverage]++
	}

	var best uint32
	bestCount := 0
	for _, lev := range order {
		if counts[lev] > bestCount {
			best = lev
			bestCount = counts[lev]
		}
	}
	if bestCount > 0 {
		return best
	}
	return DefaultLeverage(name)
}

// DeriveGroup builds a full descriptor for a group discovered through its
// members. The result is ephemeral: discovery-derived groups are not
// persisted.
func DeriveGroup(name string, users []User) *Group {
	isDemo := IsDemoName(name)
	isManager := nameContains(name, "manager")
	marginCall, stopOut := DefaultMarginLevels(name)
	depositMin, depositMax := DefaultDepositLimits(name)

	timeout := uint32(60)
	if isManager {
		timeout = 0
	}
	defaultDeposit := 0.0
	if isDemo {
		defaultDeposit = 10_000
	}

	return &Group{
		Name:              name,
		Description:       DescribeName(name),
		Company:           DefaultCompany,
		Currency:          DefaultCurrency,
		Leverage:          GroupLeverage(name, users),
		DepositMin:        depositMin,
		DepositMax:        depositMax,
		MarginCall:        marginCall,
		MarginStopOut:     stopOut,
		Commission:        DefaultCommission(name),
		CommissionType:    CommissionMoney,
		Rights:            DefaultRights(name),
		CheckPassword:     true,
		Timeout:           timeout,
		OHLCMaxCount:      65000,
		NewsMode:          2,
		ReportsMode:       1,
		EmailFrom:         DefaultEmailFrom,
		SupportPage:       DefaultSupportPage,
		SupportEmail:      DefaultSupportEmail,
		TemplatesPath:     "templates" + NameSeparator,
		DefaultDeposit:    defaultDeposit,
		ArchivePeriod:     90,
		ArchiveMaxRecords: 100_000,
		IsDemo:            isDemo,
		UserCount:         len(users),
		LastUpdate:        time.Now().UTC(),
	}
}

// FillDefaults completes the unset fields of an explicitly created group
// using the same heuristic tables discovery uses, so a created group and
// a derived one with equal inputs come out identical.
func (g *Group) FillDefaults() {
	if g.Description == "" {
		g.Description = DescribeName(g.Name)
	}
	if g.Company == "" {
		g.Company = DefaultCompany
	}
	if g.Currency == "" {
		g.Currency = DefaultCurrency
	}
	if g.Leverage == 0 {
		g.Leverage = DefaultLeverage(g.Name)
	}
	call, stopOut := DefaultMarginLevels(g.Name)
	if g.MarginCall == 0 {
		g.MarginCall = call
	}
	if g.MarginStopOut == 0 {
		g.MarginStopOut = stopOut
	}
	if g.Commission == 0 {
		g.Commission = DefaultCommission(g.Name)
	}
	if g.Rights == 0 {
		g.Rights = DefaultRights(g.Name)
	}
	min, max := DefaultDepositLimits(g.Name)
	if g.DepositMin == 0 && !IsDemoName(g.Name) {
		g.DepositMin = min
	}
	if g.DepositMax == 0 {
		g.DepositMax = max
	}
	if g.Timeout == 0 && !nameContains(g.Name, "manager") {
		g.Timeout = 60
	}
	if g.OHLCMaxCount == 0 {
		g.OHLCMaxCount = 65000
	}
	if g.NewsMode == 0 {
		g.NewsMode = 2
	}
	if g.ReportsMode == 0 {
		g.ReportsMode = 1
	}
	if g.EmailFrom == "" {
		g.EmailFrom = DefaultEmailFrom
	}
	if g.SupportEmail == "" {
		g.SupportEmail = DefaultSupportEmail
	}
	if g.SupportPage == "" {
		g.SupportPage = DefaultSupportPage
	}
	if g.ArchivePeriod == 0 {
		g.ArchivePeriod = 90
	}
	if g.ArchiveMaxRecords == 0 {
		g.ArchiveMaxRecords = 100_000
	}
	if !g.IsDemo {
		g.IsDemo = IsDemoName(g.Name)
	}
}

// Clone returns a deep copy safe to hand to callers.
func (g *Group) Clone() *Group {
	dup := *g
	if g.CustomProperties != nil {
		dup.CustomProperties = make(map[string]any, len(g.CustomProperties))
		for k, v := range g.CustomProperties {
			dup.CustomProperties[k] = v
		}
	}
	return &dup
}

// GroupPatch carries the fields of a partial group update. Nil pointers
// mean "leave unchanged".
type GroupPatch struct {
	Description       *string
	Company           *string
	Currency          *string
	Leverage          *uint32
	DepositMin        *float64
	DepositMax        *float64
	CreditLimit       *float64
	MarginCall        *float64
	MarginStopOut     *float64
	InterestRate      *float64
	Commission        *float64
	CommissionType    *uint32
	AgentCommission   *float64
	Rights            *uint32
	Timeout           *uint32
	NewsMode          *uint32
	ReportsMode       *uint32
	EmailFrom         *string
	SupportPage       *string
	SupportEmail      *string
	DefaultDeposit    *float64
	DefaultCredit     *float64
	ArchivePeriod     *uint32
	ArchiveMaxRecords *uint32
}

// Apply merges the present fields of the patch into the group.
func (p *GroupPatch) Apply(g *Group) {
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Company != nil {
		g.Company = *p.Company
	}
	if p.Currency != nil {
		g.Currency = *p.Currency
	}
	if p.Leverage != nil {
		g.Leverage = *p.Leverage
	}
	if p.DepositMin != nil {
		g.DepositMin = *p.DepositMin
	}
	if p.DepositMax != nil {
		g.DepositMax = *p.DepositMax
	}
	if p.CreditLimit != nil {
		g.CreditLimit = *p.CreditLimit
	}
	if p.MarginCall != nil {
		g.MarginCall = *p.MarginCall
	}
	if p.MarginStopOut != nil {
		g.MarginStopOut = *p.MarginStopOut
	}
	if p.InterestRate != nil {
		g.InterestRate = *p.InterestRate
	}
	if p.Commission != nil {
		g.Commission = *p.Commission
	}
	if p.CommissionType != nil {
		g.CommissionType = *p.CommissionType
	}
	if p.AgentCommission != nil {
		g.AgentCommission = *p.AgentCommission
	}
	if p.Rights != nil {
		g.Rights = *p.Rights
	}
	if p.Timeout != nil {
		g.Timeout = *p.Timeout
	}
	if p.NewsMode != nil {
		g.NewsMode = *p.NewsMode
	}
	if p.ReportsMode != nil {
		g.ReportsMode = *p.ReportsMode
	}
	if p.EmailFrom != nil {
		g.EmailFrom = *p.EmailFrom
	}
	if p.SupportPage != nil {
		g.SupportPage = *p.SupportPage
	}
	if p.SupportEmail != nil {
		g.SupportEmail = *p.SupportEmail
	}
	if p.DefaultDeposit != nil {
		g.DefaultDeposit = *p.DefaultDeposit
	}
	if p.DefaultCredit != nil {
		g.DefaultCredit = *p.DefaultCredit
	}
	if p.ArchivePeriod != nil {
		g.ArchivePeriod = *p.ArchivePeriod
	}
	if p.ArchiveMaxRecords != nil {
		g.ArchiveMaxRecords = *p.ArchiveMaxRecords
	}
}
