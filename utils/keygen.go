package utils

import (
	"crypto/sha256"
	"math"
	"strconv"
	"strings"
)

// Alphabet is the base64url alphabet (RFC 4648) used for short codes.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// KeyLength is the number of characters in a short code. 9 chars * 6 bits = 54 bits.
const KeyLength = 9

// bitsPerChar is log2(len(Alphabet)).
const bitsPerChar = 6

// GenerateKey maps a normalized URL to its short code. Same input, same code.
func GenerateKey(url string) string {
	sum := sha256.Sum256([]byte(url))

	// 7 bytes give 56 bits, the first 54 are used.
	var value uint64
	for _, b := range sum[:7] {
		value = value<<8 | uint64(b)
	}

	key := make([]byte, KeyLength)
	for i := 0; i < KeyLength; i++ {
		shift := 56 - bitsPerChar*(i+1)
		key[i] = Alphabet[(value>>uint(shift))&0x3f]
	}
	return string(key)
}

// GenerateKeyAttempt returns the code for the given collision attempt.
// Attempt 0 is GenerateKey(url); attempt n rehashes url + "#" + n.
func GenerateKeyAttempt(url string, attempt int) string {
	if attempt <= 0 {
		return GenerateKey(url)
	}
	return GenerateKey(url + "#" + strconv.Itoa(attempt))
}

// ValidKey reports whether code has the right length and alphabet.
func ValidKey(code string) bool {
	if len(code) != KeyLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// TotalKeys is the size of the keyspace, 64^9.
func TotalKeys() float64 {
	return math.Pow(float64(len(Alphabet)), KeyLength)
}

// EntropyBits is the number of bits carried by a code.
func EntropyBits() int {
	return KeyLength * bitsPerChar
}

// SafeCapacity estimates how many URLs fit before the collision
// probability reaches 0.1%, using the birthday bound
// n = sqrt(2 * m * ln(1 / (1 - p))).
func SafeCapacity() int64 {
	const p = 0.001
	m := TotalKeys()
	return int64(math.Floor(math.Sqrt(2 * m * math.Log(1/(1-p)))))
}
