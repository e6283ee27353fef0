// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authenticator.
//
// go-authenticator is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package encoding

// rsaAlgorithmIdentifier is the DER AlgorithmIdentifier SEQUENCE for
// rsaEncryption (1.2.840.113549.1.1.1) with NULL parameters.
var rsaAlgorithmIdentifier = []byte{
	0x30, 0x0d,
	0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01,
	0x05, 0x00,
}

const (
	tagSequence  = 0x30
	tagBitString = 0x03
)

// WrapPKCS1PublicKey wraps a PKCS#1 RSAPublicKey in a SubjectPublicKeyInfo
// structure. The output is byte-for-byte what x509.MarshalPKIXPublicKey
// produces for the same key.
func WrapPKCS1PublicKey(pkcs1 []byte) []byte {
	// BIT STRING content is a zero "unused bits" octet followed by the key.
	bitString := make([]byte, 0, len(pkcs1)+6)
	bitString = append(bitString, tagBitString)
	bitString = append(bitString, derLength(len(pkcs1)+1)...)
	bitString = append(bitString, 0x00)
	bitString = append(bitString, pkcs1...)

	bodyLen := len(rsaAlgorithmIdentifier) + len(bitString)
	out := make([]byte, 0, bodyLen+6)
	out = append(out, tagSequence)
	out = append(out, derLength(bodyLen)...)
	out = append(out, rsaAlgorithmIdentifier...)
	return append(out, bitString...)
}

// derLength encodes n using the DER definite length form.
func derLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var digits []byte
	for v := n; v > 0; v >>= 8 {
		digits = append([]byte{byte(v)}, digits...)
	}
	return append([]byte{0x80 | byte(len(digits))}, digits...)
}
