package obfuscation

import "errors"

// Sentinel errors for obfuscation operations.
var (
	// ErrUnsupportedAlgorithm indicates an algorithm URI with no cipher.
	ErrUnsupportedAlgorithm = errors.New("unsupported obfuscation algorithm")

	// ErrMalformedIdentifier indicates the package identifier does not have
	// the shape the algorithm expects. The derived key is best-effort.
	ErrMalformedIdentifier = errors.New("malformed package identifier")

	// ErrManifestParse indicates encryption.xml could not be decoded.
	ErrManifestParse = errors.New("failed to parse encryption manifest")
)
