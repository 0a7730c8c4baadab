// Package ofx reads OFX/QFX bank and credit card statements into draft
// ledger entries.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// DefaultCategory is given to imported expenses the statement does not classify.
const DefaultCategory = "Imported"

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Entry is one statement row. Amount is signed as in the statement:
// negative for money going out.
type Entry struct {
	Date        calendar.Date
	Amount      decimal.Decimal
	FITID       string
	Account     string
	Description string
	TrnType     string
	CreditCard  bool
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of bare tags.
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns its rows in statement order.
func (p *Parser) ParseFile(_ context.Context, reader io.Reader) ([]Entry, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			account := string(stmt.BankAcctFrom.AcctID)
			for _, tx := range stmt.BankTranList.Transactions {
				entries = append(entries, p.convertTransaction(tx, account, false))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			account := string(stmt.CCAcctFrom.AcctID)
			for _, tx := range stmt.BankTranList.Transactions {
				entries = append(entries, p.convertTransaction(tx, account, true))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(entries),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return entries, nil
}

func (p *Parser) convertTransaction(tx ofxgo.Transaction, account string, card bool) Entry {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		amount = decimal.Zero
	}
	return Entry{
		Date:        calendar.FromTime(tx.DtPosted.Time),
		Amount:      amount,
		FITID:       string(tx.FiTID),
		Account:     account,
		Description: p.extractMerchantName(tx),
		TrnType:     tx.TrnType.String(),
		CreditCard:  card,
	}
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " stamps.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	default:
		return false
	}
}

// GetAccounts extracts unique account IDs from the OFX file.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			accounts = append(accounts, id)
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(string(stmt.BankAcctFrom.AcctID))
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(string(stmt.CCAcctFrom.AcctID))
		}
	}
	return accounts, nil
}

// categoryFor infers a category from the OFX transaction type.
func categoryFor(trnType string) string {
	switch strings.ToUpper(trnType) {
	case "INT", "DIV":
		return "Interest"
	case "FEE", "SRVCHG":
		return "Bank fees"
	case "ATM":
		return "Cash"
	default:
		return DefaultCategory
	}
}

// Inputs turns statement rows into ledger inputs. With a cardID every row
// lands on that card and the card's own payment rows are dropped, since
// the invoice they pay is settled through the ledger instead.
func Inputs(entries []Entry, cardID string) (inputs []ledger.TransactionInput, skipped int) {
	for _, e := range entries {
		if e.Amount.IsZero() || e.Date.IsZero() {
			skipped++
			continue
		}
		if cardID != "" && strings.EqualFold(e.TrnType, "PAYMENT") && e.Amount.IsPositive() {
			skipped++
			continue
		}

		in := ledger.TransactionInput{
			Date:        e.Date,
			Amount:      e.Amount.Abs(),
			Type:        model.TypeExpense,
			Origin:      model.OriginImport,
			Category:    categoryFor(e.TrnType),
			Description: e.Description,
			ExternalID:  e.FITID,
			CardID:      cardID,
		}
		if e.Amount.IsPositive() {
			in.Type = model.TypeIncome
		}
		inputs = append(inputs, in)
	}
	return inputs, skipped
}
