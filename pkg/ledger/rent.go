package ledger

const (
	// Bytes of metadata charged for every account on top of its data.
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2
)

// MinimumBalanceForRentExemption returns the lamports an account of the given
// data size must hold to be exempt from rent.
func MinimumBalanceForRentExemption(dataSize int) uint64 {
	return uint64(AccountStorageOverhead+dataSize) * DefaultLamportsPerByteYear * DefaultExemptionThreshold
}
