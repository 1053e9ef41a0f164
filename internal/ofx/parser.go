// Package ofx converts OFX/QFX bank and credit card statements into ledger entries.
package ofx

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/model"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening SGML tags left without their closing bracket at end of line.
	unclosedTagRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	leadingDateRegex = regexp.MustCompile(`^\d{2}/\d{2}\s+`)
)

// Prefixes banks put in front of the merchant name.
var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// Names too vague to describe an expense; the memo is used instead.
var genericNames = map[string]bool{
	"DEBIT":           true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// Parser reads statements.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile returns one entry per debit in the statement. Credits are skipped.
// Each entry's ExternalID combines the account and the transaction FITID so
// re-importing the same statement adds nothing.
func (p *Parser) ParseFile(_ context.Context, reader io.Reader) ([]model.Entry, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var entries []model.Entry
	var skipped int
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			added, n := convertAll(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))
			entries = append(entries, added...)
			skipped += n
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			added, n := convertAll(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))
			entries = append(entries, added...)
			skipped += n
		}
	}

	common.LogInfo("Parsed OFX file", common.Fields{"entries": len(entries), "skipped_credits": skipped})
	return entries, nil
}

func convertAll(txns []ofxgo.Transaction, accountID string) ([]model.Entry, int) {
	entries := make([]model.Entry, 0, len(txns))
	skipped := 0
	for _, tx := range txns {
		if tx.TrnAmt.Sign() >= 0 {
			skipped++
			continue
		}
		entries = append(entries, convert(tx, accountID))
	}
	return entries, skipped
}

func convert(tx ofxgo.Transaction, accountID string) model.Entry {
	amount, _ := tx.TrnAmt.Float64()
	if amount < 0 {
		amount = -amount
	}

	description := merchantName(tx)
	if description == "" {
		description = tx.TrnType.String()
	}

	entry := model.NewEntry(tx.DtPosted.Time, description, amount)
	entry.ExternalID = string(tx.FiTID)
	if accountID != "" {
		entry.ExternalID = accountID + ":" + entry.ExternalID
	}
	return entry
}

// merchantName picks the cleanest name available: the payee, then NAME, then
// MEMO when NAME is generic. Card prefixes and leading MM/DD dates are removed.
func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return collapse(string(tx.Payee.Name))
	}

	name := collapse(string(tx.Name))
	if tx.Memo != "" && genericNames[strings.ToUpper(name)] {
		name = collapse(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	return leadingDateRegex.ReplaceAllString(name, "")
}

// collapse joins whitespace runs, including newlines, into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// preprocess fixes formatting mistakes common in bank exports.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagRegex.ReplaceAllString(content, "$1>")
}
