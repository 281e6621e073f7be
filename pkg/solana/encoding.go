package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/todo-server/pkg/solana/shortvec"
)

// Marshal encodes the transaction in the legacy wire format: a shortvec of
// signatures followed by the message.
func (t Transaction) Marshal() []byte {
	var w wireWriter
	w.vecLen(len(t.Signatures))
	for _, sig := range t.Signatures {
		w.Write(sig[:])
	}
	w.Write(t.Message.Marshal())
	return w.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := newWireReader(b)

	count, err := r.vecLen("signature count")
	if err != nil {
		return err
	}

	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if err := r.fill(t.Signatures[i][:], "signature"); err != nil {
			return errors.Wrapf(err, "index %d", i)
		}
	}

	return t.Message.Unmarshal(r.remaining())
}

func (m Message) Marshal() []byte {
	var w wireWriter

	w.WriteByte(m.Header.NumSignatures)
	w.WriteByte(m.Header.NumReadonlySigned)
	w.WriteByte(m.Header.NumReadOnly)

	w.vecLen(len(m.Accounts))
	for _, account := range m.Accounts {
		w.Write(account)
	}

	w.Write(m.RecentBlockhash[:])

	w.vecLen(len(m.Instructions))
	for _, instruction := range m.Instructions {
		w.WriteByte(instruction.ProgramIndex)
		w.vec(instruction.Accounts)
		w.vec(instruction.Data)
	}

	return w.Bytes()
}

// Unmarshal decodes a legacy message. Versioned messages, whose first byte
// has the high bit set, are rejected.
func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := newWireReader(b)

	var header [3]byte
	if err := r.fill(header[:], "header"); err != nil {
		return err
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	numAccounts, err := r.vecLen("account count")
	if err != nil {
		return err
	}
	m.Accounts = make([]ed25519.PublicKey, numAccounts)
	for i := range m.Accounts {
		m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		if err := r.fill(m.Accounts[i], "account"); err != nil {
			return errors.Wrapf(err, "index %d", i)
		}
	}

	if err := r.fill(m.RecentBlockhash[:], "recent blockhash"); err != nil {
		return err
	}

	numInstructions, err := r.vecLen("instruction count")
	if err != nil {
		return err
	}
	m.Instructions = make([]CompiledInstruction, numInstructions)
	for i := range m.Instructions {
		instruction, err := r.instruction(numAccounts)
		if err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
		m.Instructions[i] = instruction
	}

	if leftover := len(r.remaining()); leftover > 0 {
		return errors.Errorf("unexpected %d trailing bytes", leftover)
	}
	return nil
}

// wireWriter accumulates an encoding. Writes to a bytes.Buffer never fail.
type wireWriter struct {
	bytes.Buffer
}

func (w *wireWriter) vecLen(n int) {
	_, _ = shortvec.EncodeLen(w, n)
}

func (w *wireWriter) vec(b []byte) {
	w.vecLen(len(b))
	w.Write(b)
}

type wireReader struct {
	buf *bytes.Buffer
}

func newWireReader(b []byte) *wireReader {
	return &wireReader{buf: bytes.NewBuffer(b)}
}

func (r *wireReader) remaining() []byte {
	return r.buf.Bytes()
}

func (r *wireReader) vecLen(what string) (int, error) {
	n, err := shortvec.DecodeLen(r.buf)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", what)
	}
	return n, nil
}

func (r *wireReader) fill(dst []byte, what string) error {
	if _, err := io.ReadFull(r.buf, dst); err != nil {
		return errors.Wrapf(err, "failed to read %s", what)
	}
	return nil
}

func (r *wireReader) vec(what string) ([]byte, error) {
	n, err := r.vecLen(what + " length")
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	return b, r.fill(b, what)
}

// instruction reads one compiled instruction, checking its indexes against
// the message's account count.
func (r *wireReader) instruction(numAccounts int) (c CompiledInstruction, err error) {
	var program [1]byte
	if err = r.fill(program[:], "program index"); err != nil {
		return c, err
	}
	c.ProgramIndex = program[0]
	if int(c.ProgramIndex) >= numAccounts {
		return c, errors.Errorf("program index out of range: %d", c.ProgramIndex)
	}

	if c.Accounts, err = r.vec("account indexes"); err != nil {
		return c, err
	}
	for _, index := range c.Accounts {
		if int(index) >= numAccounts {
			return c, errors.Errorf("account index out of range: %d", index)
		}
	}

	c.Data, err = r.vec("data")
	return c, err
}
