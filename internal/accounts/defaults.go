package accounts

import "github.com/cleared-dev/ledger/internal/model"

// DefaultChart returns the starter chart of accounts seeded by `ledger init`.
func DefaultChart() []ChartEntry {
	return []ChartEntry{
		{Article: "Non-current assets", Group: "Fixed assets", Name: "Equipment", Type: model.AccountTypeAsset},
		{Article: "Current assets", Group: "Cash", Name: "Cash on hand", Type: model.AccountTypeAsset},
		{Article: "Current assets", Group: "Cash", Name: "Bank account", Type: model.AccountTypeAsset},
		{Article: "Current assets", Group: "Inventory", Name: "Goods for resale", Type: model.AccountTypeAsset},
		{Article: "Current assets", Group: "Settlements", Name: "Customers and clients", Type: model.AccountTypeMixed},
		{Article: "Current liabilities", Group: "Settlements", Name: "Suppliers and contractors", Type: model.AccountTypeMixed},
		{Article: "Current liabilities", Group: "Settlements", Name: "Taxes payable", Type: model.AccountTypeLiability},
		{Article: "Current liabilities", Group: "Settlements", Name: "Wages payable", Type: model.AccountTypeLiability},
		{Article: "Equity", Group: "Capital", Name: "Share capital", Type: model.AccountTypeLiability},
		{Article: "Equity", Group: "Capital", Name: "Retained earnings", Type: model.AccountTypeLiability},
	}
}
