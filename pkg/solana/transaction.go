package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"slices"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize is the largest serialized transaction the ledger
	// accepts, matching a validator's packet data size.
	MaxTransactionSize = 1232
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMissingSignature = errors.New("missing signature")
)

type Signature [ed25519.SignatureSize]byte

// Blockhash is carried on the wire for compatibility. The ledger does not
// track recent blockhashes, so clients use it as a per-transaction nonce to
// keep otherwise identical transactions from sharing a signature.
type Blockhash [sha256.Size]byte

// Header splits Message.Accounts into signed and unsigned, writable and
// readonly ranges.
type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles the instructions into a legacy transaction paid
// for by payer. Signatures are left empty until Sign is called.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	accounts := collectAccounts(payer, instructions)

	var m Message
	m.Accounts = make([]ed25519.PublicKey, len(accounts))
	for i, account := range accounts {
		m.Accounts[i] = account.PublicKey
		if len(account.PublicKey) == 0 {
			m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		}

		switch {
		case account.IsSigner && !account.IsWritable:
			m.Header.NumSignatures++
			m.Header.NumReadonlySigned++
		case account.IsSigner:
			m.Header.NumSignatures++
		case !account.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	m.Instructions = make([]CompiledInstruction, len(instructions))
	for i, instruction := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, instruction.Program)),
			Data:         instruction.Data,
		}
		for _, account := range instruction.Accounts {
			compiled.Accounts = append(compiled.Accounts, byte(indexOf(m.Accounts, account.PublicKey)))
		}
		m.Instructions[i] = compiled
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// collectAccounts dedupes every account referenced by payer and instructions,
// widening permissions where a key is used more than once, and returns them
// in message order.
func collectAccounts(payer ed25519.PublicKey, instructions []Instruction) []AccountMeta {
	accounts := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true, isPayer: true}}
	positions := map[string]int{string(payer): 0}

	add := func(meta AccountMeta) {
		if pos, ok := positions[string(meta.PublicKey)]; ok {
			accounts[pos].merge(meta)
			return
		}
		positions[string(meta.PublicKey)] = len(accounts)
		accounts = append(accounts, meta)
	}

	for _, instruction := range instructions {
		add(AccountMeta{PublicKey: instruction.Program, isProgram: true})
		for _, meta := range instruction.Accounts {
			add(meta)
		}
	}

	slices.SortFunc(accounts, compareAccountMeta)
	return accounts
}

// Signature is the fee payer's signature, which identifies the transaction.
func (t *Transaction) Signature() []byte {
	return t.Signatures[0][:]
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign signs the message with each key, placing the signature in the slot of
// the matching signer account.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	message := t.Message.Marshal()

	for _, signer := range signers {
		pub := signer.Public().(ed25519.PublicKey)

		index := indexOf(t.Message.Accounts, pub)
		switch {
		case index < 0:
			return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
		case index >= len(t.Signatures):
			return errors.Errorf("signing account %s is not in the list of signers", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(signer, message))
	}

	return nil
}

// VerifySignatures checks every required signature against the serialized
// message. An all-zero signature is reported as ErrMissingSignature.
func (t *Transaction) VerifySignatures() error {
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return ErrMissingSignature
	}

	message := t.Message.Marshal()

	var empty Signature
	for i, sig := range t.Signatures {
		if sig == empty {
			return errors.Wrapf(ErrMissingSignature, "signer %d", i)
		}
		if !ed25519.Verify(t.Message.Accounts[i], message, sig[:]) {
			return errors.Wrapf(ErrInvalidSignature, "signer %d", i)
		}
	}

	return nil
}

// Sanitize validates the structural consistency of the transaction before
// any account is loaded or locked.
func (t *Transaction) Sanitize() error {
	header := t.Message.Header
	numAccounts := len(t.Message.Accounts)

	switch {
	case header.NumSignatures == 0:
		return errors.New("transaction has no signers")
	case len(t.Signatures) != int(header.NumSignatures):
		return errors.Errorf("signature count mismatch: %d != %d", len(t.Signatures), header.NumSignatures)
	case int(header.NumSignatures) > numAccounts:
		return errors.New("more signers than accounts")
	case header.NumReadonlySigned >= header.NumSignatures:
		return errors.New("fee payer must be writable")
	case int(header.NumSignatures)+int(header.NumReadOnly) > numAccounts:
		return errors.New("readonly accounts exceed account count")
	}

	seen := make(map[string]struct{}, numAccounts)
	for i, account := range t.Message.Accounts {
		if len(account) != ed25519.PublicKeySize {
			return errors.Errorf("invalid account at index %d", i)
		}
		if _, ok := seen[string(account)]; ok {
			return errors.Errorf("account loaded twice: %s", base58.Encode(account))
		}
		seen[string(account)] = struct{}{}
	}

	for i, instruction := range t.Message.Instructions {
		// Index 0 is always the fee payer, which can't be a program
		if instruction.ProgramIndex == 0 || int(instruction.ProgramIndex) >= numAccounts {
			return errors.Errorf("instruction %d has invalid program index %d", i, instruction.ProgramIndex)
		}
		for _, index := range instruction.Accounts {
			if int(index) >= numAccounts {
				return errors.Errorf("instruction %d has invalid account index %d", i, index)
			}
		}
	}

	return nil
}

// IsSigner returns whether the account at index signed the message.
func (m Message) IsSigner(index int) bool {
	return index < int(m.Header.NumSignatures)
}

// IsWritable returns whether the account at index was locked for writing.
func (m Message) IsWritable(index int) bool {
	if m.IsSigner(index) {
		return index < int(m.Header.NumSignatures-m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}

func indexOf(keys []ed25519.PublicKey, key ed25519.PublicKey) int {
	return slices.IndexFunc(keys, func(candidate ed25519.PublicKey) bool {
		return bytes.Equal(candidate, key)
	})
}
