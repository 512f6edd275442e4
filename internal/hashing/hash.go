package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mmrzaf/fwgen/internal/domain"
)

// HashRules returns the canonical sha256 of a rules document, used to tie a
// recorded run to the exact rules that produced it. encoding/json emits map
// keys sorted and struct fields in declaration order, so marshaling is
// already canonical.
func HashRules(doc *domain.RulesDocument) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
