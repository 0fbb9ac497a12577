package journal

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
)

func TestMarshalTransaction(t *testing.T) {
	orig := int64(7)
	tx := model.Transaction{
		ID:              8,
		CreatedAt:       time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC),
		Description:     "Reversal of transaction #7",
		DebitAccountID:  3,
		CreditAccountID: 1,
		Amount:          dec("10"),
		IsReversal:      true,
		ReversesID:      &orig,
	}

	row := MarshalTransaction(tx)
	require.Len(t, row, numFields)
	assert.Equal(t, "8", row[colID])
	assert.Equal(t, "2025-01-15T09:30:00Z", row[colCreatedAt])
	assert.Equal(t, "3", row[colDebit])
	assert.Equal(t, "1", row[colCredit])
	assert.Equal(t, "10.00", row[colAmount])
	assert.Equal(t, "true", row[colIsReversal])
	assert.Equal(t, "7", row[colReverses])
	assert.Equal(t, "false", row[colAnnulled])
}

func TestMarshalTransaction_NoReversal(t *testing.T) {
	row := MarshalTransaction(model.Transaction{ID: 1, Amount: dec("1.5")})
	assert.Empty(t, row[colReverses])
	assert.Equal(t, "1.50", row[colAmount])
}

func TestWriteTransactions(t *testing.T) {
	txs := []model.Transaction{
		{ID: 2, Description: "rent, march", DebitAccountID: 1, CreditAccountID: 2, Amount: dec("500")},
		{ID: 1, Description: "opening", DebitAccountID: 1, CreditAccountID: 3, Amount: dec("1000"), Annulled: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, Header, lines[0])

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "rent, march", records[1][colDesc], "commas must be quoted")
	assert.Equal(t, "true", records[2][colAnnulled])
}
