package room

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// JoinCodeAlphabet leaves out 0, 1, I and O.
const JoinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const JoinCodeLength = 6

// GenerateJoinCode draws JoinCodeLength independent uniform characters.
// Codes are scoped to one room, so collisions across rooms are harmless.
func GenerateJoinCode() (string, error) {
	max := big.NewInt(int64(len(JoinCodeAlphabet)))
	buf := make([]byte, JoinCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		buf[i] = JoinCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
