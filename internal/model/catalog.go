package model

// PlanInfo is the price and limits of a plan tier.
type PlanInfo struct {
	Name         Plan  `json:"name" yaml:"name"`
	Price        int64 `json:"price" yaml:"price"`
	ProjectLimit int64 `json:"project_limit" yaml:"project_limit"`
	PinLimit     int64 `json:"pin_limit" yaml:"pin_limit"`
}

// Package is a purchasable block of extra slots or pins. Label is display text only.
type Package struct {
	Label    string `json:"label" yaml:"label"`
	Quantity int64  `json:"quantity" yaml:"quantity"`
	Price    int64  `json:"price" yaml:"price"`
}

type BankDetails struct {
	BankName      string `json:"bank_name" yaml:"bank_name"`
	AccountName   string `json:"account_name" yaml:"account_name"`
	AccountNumber string `json:"account_number" yaml:"account_number"`
	Note          string `json:"note,omitempty" yaml:"note"`
}
