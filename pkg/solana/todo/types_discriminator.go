package todo

import (
	"crypto/sha256"
)

// Discriminators are the first 8 bytes of sha256 over a namespaced name,
// matching the Anchor framework the program was written with.
func accountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:8]
}

func instructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}
