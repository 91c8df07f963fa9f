package secrets

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
)

// MaxSecretLen bounds the secrets that can be shared. In-values are 32-byte
// hashes, well within the field.
const MaxSecretLen = 64

// fieldPrime is the Mersenne prime 2^521 - 1. All share arithmetic happens
// in GF(fieldPrime); a length-prefixed 64-byte secret occupies at most 520
// bits and therefore always fits.
var fieldPrime = new(big.Int).Sub(
	new(big.Int).Lsh(big.NewInt(1), 521),
	big.NewInt(1),
)

// Share is one threshold share of a secret: the evaluation of the sharing
// polynomial at the share's index.
type Share struct {
	// Index is the 1-based evaluation point. Index 0 would reveal the
	// secret itself and is forbidden.
	Index int

	// Value is the big-endian field element.
	Value []byte
}

// Split shares the secret among total holders such that any threshold of
// them can reconstruct it and fewer learn nothing. The secret is prefixed
// with a marker byte before field conversion so leading zero bytes survive a
// round trip.
func Split(secret []byte, threshold int, total int) ([]Share, error) {
	if len(secret) == 0 || len(secret) > MaxSecretLen {
		return nil, fmt.Errorf("secret length must be in 1..%d (got %d)", MaxSecretLen, len(secret))
	}
	if threshold < 1 || threshold > total {
		return nil, fmt.Errorf("threshold must be in 1..total (threshold: %d, total: %d)", threshold, total)
	}

	// marker prefix preserves leading zeros of the secret
	prefixed := make([]byte, 0, len(secret)+1)
	prefixed = append(prefixed, 0x01)
	prefixed = append(prefixed, secret...)

	// polynomial coefficients: f(0) = secret, degree threshold-1
	coefficients := make([]*big.Int, threshold)
	coefficients[0] = new(big.Int).SetBytes(prefixed)
	for i := 1; i < threshold; i++ {
		coefficient, err := crand.Int(crand.Reader, fieldPrime)
		if err != nil {
			return nil, fmt.Errorf("could not draw random coefficient: %w", err)
		}
		coefficients[i] = coefficient
	}

	shares := make([]Share, 0, total)
	for index := 1; index <= total; index++ {
		x := big.NewInt(int64(index))
		// Horner evaluation of f(x) mod fieldPrime
		y := new(big.Int)
		for i := threshold - 1; i >= 0; i-- {
			y.Mul(y, x)
			y.Add(y, coefficients[i])
			y.Mod(y, fieldPrime)
		}
		shares = append(shares, Share{Index: index, Value: y.Bytes()})
	}
	return shares, nil
}

// Combine reconstructs a secret from at least threshold shares by Lagrange
// interpolation at zero. Shares beyond the threshold are ignored. Returns an
// error if the shares are too few, carry duplicate indices, or do not
// reconstruct a validly encoded secret.
func Combine(shares []Share, threshold int) ([]byte, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("threshold must be positive (got %d)", threshold)
	}
	if len(shares) < threshold {
		return nil, fmt.Errorf("not enough shares (got %d, need %d)", len(shares), threshold)
	}

	xs := make([]*big.Int, threshold)
	ys := make([]*big.Int, threshold)
	seen := make(map[int]struct{}, threshold)
	for i := 0; i < threshold; i++ {
		share := shares[i]
		if share.Index < 1 {
			return nil, fmt.Errorf("invalid share index (%d)", share.Index)
		}
		if _, dup := seen[share.Index]; dup {
			return nil, fmt.Errorf("duplicate share index (%d)", share.Index)
		}
		seen[share.Index] = struct{}{}
		xs[i] = big.NewInt(int64(share.Index))
		ys[i] = new(big.Int).SetBytes(share.Value)
	}

	// Lagrange interpolation at x = 0
	secret := new(big.Int)
	for j := 0; j < threshold; j++ {
		numerator := big.NewInt(1)
		denominator := big.NewInt(1)
		for m := 0; m < threshold; m++ {
			if m == j {
				continue
			}
			numerator.Mul(numerator, new(big.Int).Neg(xs[m]))
			numerator.Mod(numerator, fieldPrime)
			diff := new(big.Int).Sub(xs[j], xs[m])
			denominator.Mul(denominator, diff)
			denominator.Mod(denominator, fieldPrime)
		}
		term := new(big.Int).ModInverse(denominator, fieldPrime)
		term.Mul(term, numerator)
		term.Mod(term, fieldPrime)
		term.Mul(term, ys[j])
		term.Mod(term, fieldPrime)
		secret.Add(secret, term)
		secret.Mod(secret, fieldPrime)
	}

	encoded := secret.Bytes()
	if len(encoded) < 2 || encoded[0] != 0x01 {
		return nil, fmt.Errorf("shares do not reconstruct a valid secret")
	}
	return encoded[1:], nil
}
