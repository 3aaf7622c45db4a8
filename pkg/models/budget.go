package models

// BudgetPeriod defines the time window for a budget policy.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetPolicy caps total units per purpose per period. Purpose "*" applies
// to every purpose; Model narrows the policy to one model when set.
type BudgetPolicy struct {
	Purpose  string       `json:"purpose" yaml:"purpose"`
	Model    string       `json:"model,omitempty" yaml:"model,omitempty"`
	MaxUnits int64        `json:"max_units" yaml:"max_units"`
	Period   BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current usage against a policy.
type BudgetStatus struct {
	Policy    BudgetPolicy `json:"policy"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
}
