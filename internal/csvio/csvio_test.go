package csvio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/payments-engine/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func readAll(t *testing.T, input string) ([]model.Transaction, *Reader) {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var out []model.Transaction
	for {
		tx, err := r.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out, r
		}
		require.NoError(t, err)
		out = append(out, tx)
	}
}

func TestReader_ParsesAllKinds(t *testing.T) {
	input := `type, client, tx, amount
deposit, 1, 1, 1.0
withdrawal, 1, 2, 0.5
dispute, 1, 1,
resolve, 1, 1,
chargeback, 1, 1,
`
	txs, r := readAll(t, input)
	require.Len(t, txs, 5)
	assert.Zero(t, r.Dropped())

	dep, ok := txs[0].(model.Deposit)
	require.True(t, ok)
	assert.Equal(t, model.ClientID(1), dep.Client)
	assert.Equal(t, model.TxID(1), dep.Tx)
	assert.True(t, dep.Amount.Equal(d("1")))

	wd, ok := txs[1].(model.Withdrawal)
	require.True(t, ok)
	assert.True(t, wd.Amount.Equal(d("0.5")))

	assert.Equal(t, model.Dispute{Client: 1, Tx: 1}, txs[2])
	assert.Equal(t, model.Resolve{Client: 1, Tx: 1}, txs[3])
	assert.Equal(t, model.Chargeback{Client: 1, Tx: 1}, txs[4])
}

func TestReader_DisputeWithoutAmountColumn(t *testing.T) {
	txs, _ := readAll(t, "type,client,tx,amount\ndeposit,2,7,3\ndispute,2,7\n")
	require.Len(t, txs, 2)
	assert.Equal(t, model.Dispute{Client: 2, Tx: 7}, txs[1])
}

func TestReader_SkipsMalformedRows(t *testing.T) {
	input := `type,client,tx,amount
deposit,1,1,1.0
transfer,1,2,1.0
deposit,abc,3,1.0
deposit,70000,4,1.0
deposit,1,-5,1.0
deposit,1,6,
deposit,1,7,-1.0
deposit,1,9,one
deposit,1,10
deposit,1,11,1.0,extra
withdrawal,1,12,0.25
`
	txs, r := readAll(t, input)
	require.Len(t, txs, 2)
	assert.Equal(t, model.TxID(1), txs[0].TxID())
	assert.Equal(t, model.TxID(12), txs[1].TxID())
	assert.Equal(t, 9, r.Dropped())
}

func TestReader_IgnoresAmountOnDisputeRows(t *testing.T) {
	txs, r := readAll(t, "type,client,tx,amount\ndispute,1,1,5.0\nresolve,1,1,5.0\nchargeback,1,1, 2\n")
	assert.Zero(t, r.Dropped())
	assert.Equal(t, []model.Transaction{
		model.Dispute{Client: 1, Tx: 1},
		model.Resolve{Client: 1, Tx: 1},
		model.Chargeback{Client: 1, Tx: 1},
	}, txs)
}

func TestReader_RoundsExcessPrecision(t *testing.T) {
	txs, r := readAll(t, "type,client,tx,amount\ndeposit,1,8,1.23456\n")
	assert.Zero(t, r.Dropped())
	require.Len(t, txs, 1)
	assert.True(t, txs[0].(model.Deposit).Amount.Equal(d("1.2346")))
}

func TestReader_HeaderOnly(t *testing.T) {
	txs, _ := readAll(t, "type,client,tx,amount\n")
	assert.Empty(t, txs)
}

func TestReader_EmptyInput(t *testing.T) {
	_, err := NewReader(strings.NewReader("")).Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_BadHeader(t *testing.T) {
	_, err := NewReader(strings.NewReader("client,type,tx,amount\n")).Next(context.Background())
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestReader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReader(strings.NewReader("type,client,tx,amount\ndeposit,1,1,1\n")).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReader_PropagatesIOError(t *testing.T) {
	src := io.MultiReader(strings.NewReader("type,client,tx,amount\n"), brokenReader{})
	_, err := NewReader(src).Next(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{raw: "1", want: "1"},
		{raw: "0", want: "0"},
		{raw: "2.5", want: "2.5"},
		{raw: "0.0001", want: "0.0001"},
		{raw: "1.23450", want: "1.2345"},
		{raw: "1.00005", want: "1.0001"},
		{raw: "0.00001", want: "0"},
		{raw: "", wantErr: ErrMissingAmount},
		{raw: "-1", wantErr: ErrNegative},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tt.want)), "got %s", got)
		})
	}
}

func TestWriteSnapshot(t *testing.T) {
	accounts := []model.Account{
		{Client: 1, Available: d("1.5"), Held: decimal.Zero, Total: d("1.5")},
		{Client: 2, Available: d("-5"), Held: decimal.Zero, Total: d("-5"), Locked: true},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, accounts))

	want := "client,available,held,total,locked\n" +
		"1,1.5000,0.0000,1.5000,false\n" +
		"2,-5.0000,0.0000,-5.0000,true\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSnapshot_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, nil))
	assert.Equal(t, "client,available,held,total,locked\n", buf.String())
}
