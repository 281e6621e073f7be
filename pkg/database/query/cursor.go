package query

import (
	"encoding/binary"
)

// Cursor is an exclusive paging position: the big-endian id of the last
// record a caller has seen. An empty cursor starts from the beginning.
type Cursor []byte

var EmptyCursor = Cursor{}

func ToCursor(id uint64) Cursor {
	return binary.BigEndian.AppendUint64(nil, id)
}

func (c Cursor) ToUint64() uint64 {
	return binary.BigEndian.Uint64(c)
}
