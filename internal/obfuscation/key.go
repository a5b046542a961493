package obfuscation

import (
	"crypto/sha1" // #nosec G505 -- SHA-1 is mandated by the IDPF obfuscation algorithm
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// uuidPattern matches an identifier in (urn:uuid:)8-4-4-4-12 hex form.
var uuidPattern = regexp.MustCompile(`(?i)(?:urn:uuid:)?([0-9a-f]{8})-([0-9a-f]{4})-([0-9a-f]{4})-([0-9a-f]{4})-([0-9a-f]{12})`)

// uuidHexDigits is the number of hex digits in a UUID.
const uuidHexDigits = 32

// IDPFKey returns the 20-byte IDPF key: the SHA-1 digest of the UTF-8
// package identifier with surrounding whitespace removed.
func IDPFKey(identifier string) []byte {
	sum := sha1.Sum([]byte(strings.TrimSpace(identifier))) // #nosec G401 -- algorithm-mandated
	return sum[:]
}

// AdobeKey returns the 16-byte Adobe key: the UUID of the package
// identifier in big-endian byte order.
//
// When the identifier is not a UUID, the hex digits that can be found are
// used (truncated or zero-padded to 32 digits) and the error wraps
// ErrMalformedIdentifier. The key is always 16 bytes.
func AdobeKey(identifier string) ([]byte, error) {
	if m := uuidPattern.FindStringSubmatch(identifier); m != nil {
		raw := strings.Join(m[1:], "")
		key, err := hex.DecodeString(raw)
		if err == nil {
			return key, nil
		}
	}

	raw := bestEffortHex(identifier)
	key, _ := hex.DecodeString(raw) // digits filtered above, cannot fail
	return key, fmt.Errorf("%w: %q is not a UUID", ErrMalformedIdentifier, identifier)
}

// bestEffortHex strips the urn:uuid: prefix, keeps hex digits only and
// normalizes the result to exactly 32 digits.
func bestEffortHex(identifier string) string {
	s := strings.TrimSpace(identifier)
	if len(s) >= len("urn:uuid:") && strings.EqualFold(s[:len("urn:uuid:")], "urn:uuid:") {
		s = s[len("urn:uuid:"):]
	}

	var b strings.Builder
	for _, r := range s {
		if b.Len() == uuidHexDigits {
			break
		}
		if isHexDigit(r) {
			b.WriteRune(r)
		}
	}
	for b.Len() < uuidHexDigits {
		b.WriteByte('0')
	}
	return b.String()
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
