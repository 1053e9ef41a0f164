package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bankStatement = `OFXHEADER:100
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
<NAME>POS PURCHASE 01/14 STARBUCKS #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240116120000[0:GMT]
<TRNAMT>2000.00
<FITID>2024011601
<NAME>PAYROLL
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>DEBIT
<MEMO>Whole Foods Market
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

const cardStatement = `OFXHEADER:100
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
		data          string
		expectedCount int
		expectedError bool
	}{
		{name: "bank statement skips credits", data: bankStatement, expectedCount: 2},
		{name: "credit card statement", data: cardStatement, expectedCount: 1},
		{name: "leading blank lines", data: "\n\n  " + cardStatement, expectedCount: 1},
		{name: "invalid data", data: "not valid OFX", expectedError: true},
		{name: "empty", data: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := NewParser().ParseFile(context.Background(), strings.NewReader(tt.data))
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.expectedCount)
		})
	}
}

func TestParseFile_BankEntries(t *testing.T) {
	entries, err := NewParser().ParseFile(context.Background(), strings.NewReader(bankStatement))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	coffee := entries[0]
	assert.Equal(t, "STARBUCKS #1234", coffee.Description)
	assert.InDelta(t, 25.50, coffee.Amount, 0.001)
	assert.Equal(t, "1234567890:2024011501", coffee.ExternalID)
	assert.True(t, coffee.Timestamp.Equal(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)))
	assert.NotEmpty(t, coffee.ID)

	groceries := entries[1]
	assert.Equal(t, "Whole Foods Market", groceries.Description)
	assert.InDelta(t, 125.00, groceries.Amount, 0.001)
	assert.NotEqual(t, coffee.ID, groceries.ID)
}

func TestParseFile_CardEntries(t *testing.T) {
	entries, err := NewParser().ParseFile(context.Background(), strings.NewReader(cardStatement))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", entries[0].Description)
	assert.Equal(t, "4111111111111111:CC2024011001", entries[0].ExternalID)
}

func TestMerchantName(t *testing.T) {
	tests := []struct {
		name string
		tx   ofxgo.Transaction
		want string
	}{
		{
			name: "payee preferred",
			tx:   ofxgo.Transaction{Name: "ACH DEBIT 123", Payee: &ofxgo.Payee{Name: "City Water"}},
			want: "City Water",
		},
		{
			name: "card prefix removed",
			tx:   ofxgo.Transaction{Name: "CHECK CARD Corner Deli"},
			want: "Corner Deli",
		},
		{
			name: "case insensitive prefix",
			tx:   ofxgo.Transaction{Name: "Visa Purchase Bookshop"},
			want: "Bookshop",
		},
		{
			name: "generic name falls back to memo",
			tx:   ofxgo.Transaction{Name: "PAYMENT", Memo: "Gym   membership"},
			want: "Gym membership",
		},
		{
			name: "generic name without memo kept",
			tx:   ofxgo.Transaction{Name: "PURCHASE"},
			want: "PURCHASE",
		},
		{
			name: "line breaks collapsed",
			tx:   ofxgo.Transaction{Name: "Taxi\r\nRide"},
			want: "Taxi Ride",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merchantName(tt.tx))
		})
	}
}

func TestPreprocess(t *testing.T) {
	input := "\n\n<SEVERITY>Info</SEVERITY>\n<CODE\n"
	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>\n<CODE>\n", preprocess(input))
}
