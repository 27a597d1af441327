package circuit

// Contract is the black-box behaviour the computation network guarantees for
// each opcode. Implementations are stateless and fail closed: any internal
// failure is returned as an error and must surface as an aborted job, never as
// a wrong value.
type Contract interface {
	// PairwiseAdd reveals a+b. Sums that overflow u64 are rejected.
	PairwiseAdd(a, b Sealed) (uint64, error)

	// ThresholdCheck reveals only whether total >= target.
	ThresholdCheck(total Sealed, target uint64) (bool, error)

	// RevealN returns the input values in order, sealed to audience under nonce.
	// All inputs must belong to the same goal; len(values) is 5 or 10.
	RevealN(values []Sealed, audience PublicKey, nonce Nonce) ([]Ciphertext, error)
}
