package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
)

// Contribution is one member's encrypted deposit toward a goal.
// The plaintext amount is never stored.
type Contribution struct {
	Goal        GoalKey            `json:"goal"`
	Contributor common.Address     `json:"contributor"`
	Ciphertext  circuit.Ciphertext `json:"ciphertext"`
	Nonce       circuit.Nonce      `json:"nonce"`
	PublicKey   circuit.PublicKey  `json:"publicKey"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Sealed returns the contribution as a circuit input
func (c *Contribution) Sealed() circuit.Sealed {
	return circuit.Sealed{
		Ciphertext: c.Ciphertext,
		Nonce:      c.Nonce,
		PublicKey:  c.PublicKey,
	}
}
