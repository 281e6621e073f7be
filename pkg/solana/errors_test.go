package solana

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionError_FromInstructionError(t *testing.T) {
	txErr, err := TransactionErrorFromInstructionError(NewCustomInstructionError(1, 6002))
	require.NoError(t, err)

	assert.Equal(t, TransactionErrorInstructionError, txErr.ErrorKey())
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, 1, txErr.InstructionError().Index)
	assert.Equal(t, InstructionErrorCustom, txErr.InstructionError().ErrorKey())
	assert.EqualValues(t, 6002, *txErr.InstructionError().CustomError())

	raw, err := txErr.JSONString()
	require.NoError(t, err)
	assert.JSONEq(t, `{"InstructionError":[1,{"Custom":6002}]}`, raw)

	parsed, err := ParseTransactionError(map[string]interface{}{
		"InstructionError": []interface{}{float64(1), map[string]interface{}{"Custom": float64(6002)}},
	})
	require.NoError(t, err)
	assert.Equal(t, txErr.Error(), parsed.Error())
}

func TestTransactionError_HostErrors(t *testing.T) {
	txErr, err := TransactionErrorFromInstructionError(NewInstructionError(0, InstructionErrorUninitializedAccount))
	require.NoError(t, err)
	assert.Equal(t, InstructionErrorUninitializedAccount, txErr.InstructionError().ErrorKey())
	assert.Nil(t, txErr.InstructionError().CustomError())

	raw, err := txErr.JSONString()
	require.NoError(t, err)
	assert.JSONEq(t, `{"InstructionError":[0,"UninitializedAccount"]}`, raw)

	txErr = NewTransactionError(TransactionErrorSignatureFailure)
	assert.Equal(t, TransactionErrorSignatureFailure, txErr.ErrorKey())
	assert.Nil(t, txErr.InstructionError())

	raw, err = txErr.JSONString()
	require.NoError(t, err)
	assert.Equal(t, `"SignatureFailure"`, raw)
}

func TestParseTransactionError_DecodedWithNumbers(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"InstructionError":[2,{"Custom":6005}]}`))
	decoder.UseNumber()

	var raw interface{}
	require.NoError(t, decoder.Decode(&raw))

	txErr, err := ParseTransactionError(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, txErr.InstructionError().Index)
	assert.EqualValues(t, 6005, *txErr.InstructionError().CustomError())

	txErr, err = ParseTransactionError(map[string]interface{}{
		"InstructionError": []interface{}{json.Number("0"), "NotEnoughAccountKeys"},
	})
	require.NoError(t, err)
	assert.Equal(t, InstructionErrorNotEnoughAccountKeys, txErr.InstructionError().ErrorKey())

	txErr, err = ParseTransactionError("AccountInUse")
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorAccountInUse, txErr.ErrorKey())

	txErr, err = ParseTransactionError(nil)
	assert.NoError(t, err)
	assert.Nil(t, txErr)
}

func TestParseTransactionError_Malformed(t *testing.T) {
	for _, raw := range []interface{}{
		42.0,
		map[string]interface{}{"a": 1, "b": 2},
		map[string]interface{}{"InstructionError": "oops"},
		map[string]interface{}{"InstructionError": []interface{}{"zero", "InvalidArgument"}},
		map[string]interface{}{"InstructionError": []interface{}{0.0, map[string]interface{}{"Other": 1.0}}},
	} {
		_, err := ParseTransactionError(raw)
		assert.Error(t, err, "%v", raw)
	}
}
