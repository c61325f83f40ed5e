// Package mapper converts aggregator data shapes into the platform's
// canonical account/transaction shapes. All functions are pure; the only
// I/O is the injected category lookup callback.
package mapper

import (
	"strconv"
	"time"

	"github.com/marminbh/aggregation-connector/internal/aggregator"
	"github.com/marminbh/aggregation-connector/internal/models"
)

// CategoryLookup resolves a category id to its display name. Returning an
// empty string leaves the transaction uncategorized.
type CategoryLookup func(categoryID int64) string

// Aggregator timestamps look like "2023-04-12 09:30:00"
const aggregatorTimeLayout = "2006-01-02 15:04:05"

// AccountReference builds the stable external reference for an account
func AccountReference(account aggregator.Account) string {
	return strconv.FormatInt(account.ID, 10)
}

// ToCanonicalAccounts maps aggregator accounts into platform shape. The
// connections provide bank names; accounts whose connection is unknown are
// still mapped, just without one.
func ToCanonicalAccounts(connections []aggregator.Connection, accounts []aggregator.Account) []models.CanonicalAccount {
	banks := make(map[int64]string, len(connections))
	for _, conn := range connections {
		if conn.Bank != nil {
			banks[conn.ID] = conn.Bank.Name
		}
	}

	out := make([]models.CanonicalAccount, 0, len(accounts))
	for _, account := range accounts {
		if account.Disabled {
			continue
		}
		out = append(out, models.CanonicalAccount{
			Reference: AccountReference(account),
			Name:      account.Name,
			Type:      mapAccountType(account.Type),
			Usage:     mapAccountUsage(account.Usage),
			Balance:   account.Balance,
			Currency:  currencyCode(account.Currency),
			IBAN:      account.IBAN,
			BIC:       account.BIC,
			BankName:  banks[account.IDConnection],
			Status:    "ACTIVE",
		})
	}
	return out
}

// ToCanonicalTransactions maps aggregator transactions into platform shape
func ToCanonicalTransactions(transactions []aggregator.Transaction, lookup CategoryLookup) []models.CanonicalTransaction {
	out := make([]models.CanonicalTransaction, 0, len(transactions))
	for _, txn := range transactions {
		category := ""
		if lookup != nil && txn.IDCategory != 0 {
			category = lookup(txn.IDCategory)
		}

		description := txn.OriginalWording
		if description == "" {
			description = txn.Wording
		}

		out = append(out, models.CanonicalTransaction{
			Reference:   strconv.FormatInt(txn.ID, 10),
			Description: description,
			Amount:      txn.Value,
			Currency:    currencyCode(txn.Currency),
			Type:        mapTransactionType(txn.Type),
			Category:    category,
			Date:        parseAggregatorTime(txn.Date),
			Simplified:  txn.SimplifiedWording,
			Banked:      !txn.Coming,
		})
	}
	return out
}

// ToAggregationDetails summarizes a connection and its owner for the
// platform customer record
func ToAggregationDetails(conn aggregator.Connection, owner *aggregator.OwnerInfo) models.AggregationDetails {
	details := models.AggregationDetails{
		ConnectionID: strconv.FormatInt(conn.ID, 10),
		State:        conn.State,
	}
	if conn.Bank != nil {
		details.BankName = conn.Bank.Name
	}
	if owner != nil {
		details.OwnerName = owner.Owner.Name
	}
	return details
}

func currencyCode(c *aggregator.Currency) string {
	if c == nil {
		return "EUR"
	}
	return c.ID
}

func parseAggregatorTime(raw string) time.Time {
	if t, err := time.Parse(aggregatorTimeLayout, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	return time.Time{}
}

func mapAccountType(aggregatorType string) string {
	switch aggregatorType {
	case "checking":
		return "CHECKINGS"
	case "savings":
		return "SAVINGS"
	case "card":
		return "CREDIT_CARD"
	case "loan":
		return "LOAN"
	default:
		return "UNKNOWN"
	}
}

func mapAccountUsage(usage string) string {
	switch usage {
	case "PRIV":
		return "PERSONAL"
	case "ORGA":
		return "PROFESSIONAL"
	default:
		return ""
	}
}

func mapTransactionType(aggregatorType string) string {
	switch aggregatorType {
	case "transfer":
		return "BANK_TRANSFER"
	case "order":
		return "ORDER"
	case "check":
		return "CHECK"
	case "deposit":
		return "DEPOSIT"
	case "payback":
		return "REPAYMENT"
	case "withdrawal":
		return "ATM"
	case "loan_payment":
		return "CREDIT_INSTALMENT"
	case "card":
		return "POINT_OF_SALE"
	default:
		return "OTHER"
	}
}
