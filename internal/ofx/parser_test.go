package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/tally/internal/calendar"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/testutil"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240130120000[0:GMT]
<TRNAMT>3200.00
<FITID>2024013001
<NAME>ACME PAYROLL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>PAYMENT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>300.00
<FITID>CC2024012001
<NAME>PAYMENT THANK YOU
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 4,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 3,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			entries, err := parser.ParseFile(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.expectedCount)
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	entries, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	first := entries[0]
	assert.Equal(t, "2024011501", first.FITID)
	assert.Equal(t, "STARBUCKS STORE #1234", first.Description)
	assert.True(t, decimal.RequireFromString("-25.50").Equal(first.Amount))
	assert.Equal(t, "1234567890", first.Account)
	assert.Equal(t, calendar.MustParseDate("2024-01-15"), first.Date)
	assert.Equal(t, "DEBIT", first.TrnType)
	assert.False(t, first.CreditCard)

	check := entries[2]
	assert.Equal(t, "CHECK #1234", check.Description)
	assert.True(t, decimal.RequireFromString("-500").Equal(check.Amount))

	salary := entries[3]
	assert.True(t, salary.Amount.IsPositive())
}

func TestParseCreditCardTransactions(t *testing.T) {
	entries, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	amazon := entries[0]
	assert.Equal(t, "CC2024011001", amazon.FITID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", amazon.Description)
	assert.True(t, decimal.RequireFromString("-45.99").Equal(amazon.Amount))
	assert.Equal(t, "4111111111111111", amazon.Account)
	assert.True(t, amazon.CreditCard)
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		tx       ofxgo.Transaction
		expected string
	}{
		{"remove POS prefix", ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"}, "STARBUCKS"},
		{"remove DEBIT CARD prefix", ofxgo.Transaction{Name: "DEBIT CARD PURCHASE WHOLE FOODS"}, "WHOLE FOODS"},
		{"keep clean name", ofxgo.Transaction{Name: "NETFLIX.COM"}, "NETFLIX.COM"},
		{"trim whitespace", ofxgo.Transaction{Name: "  AMAZON.COM  "}, "AMAZON.COM"},
		{"strip date stamp", ofxgo.Transaction{Name: "03/14 CORNER BAKERY"}, "CORNER BAKERY"},
		{"generic name uses memo", ofxgo.Transaction{Name: "DEBIT", Memo: "CITY PARKING"}, "CITY PARKING"},
		{"payee wins", ofxgo.Transaction{Name: "X", Payee: &ofxgo.Payee{Name: "Landlord"}}, "Landlord"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.extractMerchantName(tt.tx))
		})
	}
}

func TestGetAccounts(t *testing.T) {
	parser := NewParser()

	accounts, err := parser.GetAccounts(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"1234567890"}, accounts)

	accounts, err = parser.GetAccounts(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"4111111111111111"}, accounts)
}

func TestInputs(t *testing.T) {
	entries, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	inputs, skipped := Inputs(entries, "")
	assert.Zero(t, skipped)
	require.Len(t, inputs, 4)

	assert.Equal(t, model.TypeExpense, inputs[0].Type)
	assert.True(t, decimal.RequireFromString("25.50").Equal(inputs[0].Amount))
	assert.Equal(t, DefaultCategory, inputs[0].Category)
	assert.Equal(t, model.OriginImport, inputs[0].Origin)
	assert.Equal(t, "2024011501", inputs[0].ExternalID)
	assert.Equal(t, model.TypeIncome, inputs[3].Type)
}

func TestInputs_CardSkipsPayments(t *testing.T) {
	entries, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)

	inputs, skipped := Inputs(entries, "c1")
	assert.Equal(t, 1, skipped)
	require.Len(t, inputs, 2)
	for _, in := range inputs {
		assert.Equal(t, "c1", in.CardID)
	}
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, "Interest", categoryFor("INT"))
	assert.Equal(t, "Bank fees", categoryFor("fee"))
	assert.Equal(t, "Cash", categoryFor("ATM"))
	assert.Equal(t, DefaultCategory, categoryFor("DEBIT"))
}

func TestImportIntoLedger_SkipsDuplicates(t *testing.T) {
	ts := testutil.SetupTestStore(t)
	clock := testutil.NewClock("2024-02-01")
	l := ledger.NewWithConfig(ts.Repo, ledger.Config{Clock: clock.Now})
	ctx := context.Background()

	testutil.NewFixtures(t).
		WithCard("c1", "Gold", "5000", 5, 12).
		Seed(ts.Repo)

	entries, err := NewParser().ParseFile(ctx, strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	inputs, _ := Inputs(entries, "c1")

	result, err := l.ImportTransactions(ctx, inputs)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Zero(t, result.Duplicates)

	again, err := l.ImportTransactions(ctx, inputs)
	require.NoError(t, err)
	assert.Zero(t, again.Added)
	assert.Equal(t, 2, again.Duplicates)

	txs, err := l.ListTransactions(ctx, ledger.TransactionFilter{CardID: "c1"})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, calendar.MustParseMonth("2024-02"), txs[0].Card.InvoiceMonth, "purchase after closing rolls over")

	card, err := l.Card(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("4939.01").Equal(card.Limit))
}
