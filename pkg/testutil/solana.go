package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/todo-server/pkg/solana"
)

func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, p, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return p
}

func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		p, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = p
	}
	return keys
}

// NewSignedTransaction builds a transaction paid for and signed by signer.
// A random blockhash keeps otherwise identical transactions distinct.
func NewSignedTransaction(t *testing.T, signer ed25519.PrivateKey, instructions ...solana.Instruction) *solana.Transaction {
	tx := solana.NewTransaction(signer.Public().(ed25519.PublicKey), instructions...)

	var blockhash solana.Blockhash
	_, err := rand.Read(blockhash[:])
	require.NoError(t, err)
	tx.SetBlockhash(blockhash)

	require.NoError(t, tx.Sign(signer))
	return &tx
}
