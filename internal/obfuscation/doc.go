// Package obfuscation reverses the font obfuscation schemes declared in a
// publication's META-INF/encryption.xml.
//
// Two algorithms are supported, both XOR transforms over a fixed-length
// prefix of the resource:
//
//	http://www.idpf.org/2008/embedding  key = SHA-1(trimmed identifier), 1040 bytes
//	http://ns.adobe.com/pdf/enc#RC      key = UUID bytes of identifier,  1024 bytes
//
// Registry parses the manifest into a path to algorithm map and returns a
// Cipher for a canonical path. Unknown algorithms are recorded but yield no
// cipher, so the resource passes through unmodified.
package obfuscation
