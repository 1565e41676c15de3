package broadcaster

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tron-wallet-core/internal/client/trongrid"
	"tron-wallet-core/internal/model"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/wallet/types"
)

const (
	fromAddr = "TFwpzzQoGTJW4hUhGKKUZe4wSVCgyMoodZ"
	toAddr   = "TMVQGm1qAQYVdetCeGRRkTWYYrLXuHK2HC"
	txID     = "9a4e7f5c1d3b2a8e6f0c4d2b1a3e5f7c9d8b6a4e2c0f1d3b5a7e9c8d6b4a2e0f"
)

type fakeRelay struct {
	resp  *trongrid.BroadcastResponse
	err   error
	calls int
}

func (f *fakeRelay) BroadcastTransaction(context.Context, *types.SignedTransaction) (*trongrid.BroadcastResponse, error) {
	f.calls++
	return f.resp, f.err
}

func signedTx() *types.SignedTransaction {
	return &types.SignedTransaction{
		UnsignedTransaction: types.UnsignedTransaction{
			TxID: txID,
			RawData: types.RawData{
				Operation: types.NativeTransfer{OwnerAddress: fromAddr, ToAddress: toAddr, Amount: 1_000_000},
			},
			Visible: true,
		},
		Signature: []string{strings.Repeat("ab", 65)},
	}
}

func TestBroadcastAccepted(t *testing.T) {
	relay := &fakeRelay{resp: &trongrid.BroadcastResponse{Result: true, TxID: txID}}
	b := NewBroadcaster(relay, nil)

	res, err := b.Broadcast(context.Background(), signedTx())
	require.NoError(t, err)
	assert.True(t, res.Result)
	assert.Equal(t, txID, res.TxID)
}

func TestBroadcastRejectedDecodesMessage(t *testing.T) {
	msg := hex.EncodeToString([]byte("Contract validate error : account does not exist"))
	relay := &fakeRelay{resp: &trongrid.BroadcastResponse{Result: false, Code: "CONTRACT_VALIDATE_ERROR", Message: msg}}
	b := NewBroadcaster(relay, nil)

	_, err := b.Broadcast(context.Background(), signedTx())
	var berr *errno.BroadcastError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "CONTRACT_VALIDATE_ERROR", berr.Code)
	assert.Equal(t, "Contract validate error : account does not exist", berr.Message)
	assert.Equal(t, msg, berr.RawMessage)
	assert.Equal(t, txID, berr.TxID)
	assert.Equal(t, 1, relay.calls, "拒绝后不重试")
}

func TestBroadcastTransportErrorNotRetried(t *testing.T) {
	relay := &fakeRelay{err: &errno.TimeoutError{Op: "trongrid.broadcasttransaction", Timeout: time.Second}}
	b := NewBroadcaster(relay, nil)

	_, err := b.Broadcast(context.Background(), signedTx())
	assert.True(t, errno.IsTimeout(err))
	assert.Equal(t, 1, relay.calls)
}

func TestBroadcastRejectsUnsigned(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tx *types.SignedTransaction)
	}{
		{"no signature", func(tx *types.SignedTransaction) { tx.Signature = nil }},
		{"short signature", func(tx *types.SignedTransaction) { tx.Signature = []string{"abcd"} }},
		{"bad txid", func(tx *types.SignedTransaction) { tx.TxID = "xyz" }},
		{"no operation", func(tx *types.SignedTransaction) { tx.RawData.Operation = nil }},
		{"bad operation", func(tx *types.SignedTransaction) {
			tx.RawData.Operation = types.NativeTransfer{OwnerAddress: fromAddr, ToAddress: "nope", Amount: 1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &fakeRelay{resp: &trongrid.BroadcastResponse{Result: true}}
			tx := signedTx()
			tt.mutate(tx)

			_, err := NewBroadcaster(relay, nil).Broadcast(context.Background(), tx)
			var ve *errno.ValidationError
			assert.True(t, errors.As(err, &ve))
			assert.Equal(t, 0, relay.calls, "校验失败不应访问节点")
		})
	}
}

func TestBroadcastThroughTronGrid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wallet/broadcasttransaction", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, txID, body["txID"])
		assert.NotContains(t, body, "local_id")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": true, "txid": txID})
	}))
	defer srv.Close()

	b := NewBroadcaster(trongrid.NewClient(srv.URL, "", time.Second), nil)
	res, err := b.Broadcast(context.Background(), signedTx())
	require.NoError(t, err)
	assert.Equal(t, txID, res.TxID)
}

type fakeStatus struct{ st model.TxStatus }

func (f fakeStatus) TransactionStatus(_ context.Context, id string) (model.TxStatus, error) {
	st := f.st
	st.TxID = id
	return st, nil
}

func TestStatus(t *testing.T) {
	_, err := NewBroadcaster(&fakeRelay{}, nil).Status(context.Background(), txID)
	assert.Error(t, err)

	b := NewBroadcaster(&fakeRelay{}, fakeStatus{st: model.TxStatus{Found: true, Success: true, BlockNumber: 7}})
	st, err := b.Status(context.Background(), txID)
	require.NoError(t, err)
	assert.True(t, st.Found)
	assert.Equal(t, txID, st.TxID)
}
