package driven

// TokenCipher seals credential material before it is written to disk.
type TokenCipher interface {
	// Seal encrypts plaintext. Sealing the same value twice yields different output.
	Seal(plaintext []byte) ([]byte, error)

	// Open decrypts a value produced by Seal.
	Open(sealed []byte) ([]byte, error)
}
