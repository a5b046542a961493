package obfuscation

import "fmt"

// Algorithm is the algorithm URI carried by an EncryptionMethod element.
type Algorithm string

// Recognized obfuscation algorithms.
const (
	// AlgorithmIDPF is the IDPF font obfuscation: SHA-1 of the package
	// identifier XORed over the first 1040 bytes.
	AlgorithmIDPF Algorithm = "http://www.idpf.org/2008/embedding"

	// AlgorithmAdobe is the Adobe font mangling: the 16 UUID bytes of the
	// package identifier XORed over the first 1024 bytes.
	AlgorithmAdobe Algorithm = "http://ns.adobe.com/pdf/enc#RC"
)

// Obfuscated prefix lengths per algorithm.
const (
	idpfPrefixLength  = 1040
	adobePrefixLength = 1024
)

// Supported reports whether a cipher exists for the algorithm.
func (a Algorithm) Supported() bool {
	return a == AlgorithmIDPF || a == AlgorithmAdobe
}

// Cipher reverses one obfuscation algorithm with a fixed key.
// A Cipher is immutable and safe for concurrent use.
type Cipher struct {
	algorithm Algorithm
	key       []byte
	prefix    int
}

// NewCipher derives the key for algorithm from the package identifier.
//
// An identifier that does not match the expected pattern still yields a
// usable cipher with a best-effort key; the returned error wraps
// ErrMalformedIdentifier so callers can report it.
func NewCipher(algorithm Algorithm, identifier string) (*Cipher, error) {
	switch algorithm {
	case AlgorithmIDPF:
		return &Cipher{algorithm: algorithm, key: IDPFKey(identifier), prefix: idpfPrefixLength}, nil
	case AlgorithmAdobe:
		key, err := AdobeKey(identifier)
		return &Cipher{algorithm: algorithm, key: key, prefix: adobePrefixLength}, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// Algorithm returns the algorithm the cipher reverses.
func (c *Cipher) Algorithm() Algorithm {
	return c.algorithm
}

// PrefixLength returns how many leading bytes the algorithm transforms.
func (c *Cipher) PrefixLength() int {
	return c.prefix
}

// Deobfuscate returns a copy of data with the obfuscated prefix XORed
// against the key. Bytes past the prefix are copied unchanged.
// The transform is its own inverse.
func (c *Cipher) Deobfuscate(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	xorPrefix(out, c.key, c.prefix)
	return out
}

// xorPrefix XORs the first prefix bytes of buf in place with key repeated
// cyclically.
func xorPrefix(buf, key []byte, prefix int) {
	if len(key) == 0 {
		return
	}
	n := min(prefix, len(buf))
	for i := 0; i < n; i++ {
		buf[i] ^= key[i%len(key)]
	}
}
