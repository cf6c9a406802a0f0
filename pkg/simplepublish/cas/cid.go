package cas

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"
)

// CIDPrefix marks identifiers produced by this store
const CIDPrefix = "sc1"

var cidEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Sum returns the content identifier of data
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return CIDPrefix + strings.ToLower(cidEncoding.EncodeToString(h[:]))
}

// ValidCID reports whether s has the shape of an identifier from Sum
func ValidCID(s string) bool {
	body, ok := strings.CutPrefix(s, CIDPrefix)
	if !ok {
		return false
	}
	raw, err := cidEncoding.DecodeString(strings.ToUpper(body))
	return err == nil && len(raw) == sha256.Size
}
