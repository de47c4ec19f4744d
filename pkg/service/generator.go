package service

import (
	"crypto/rand"
	"math/big"
	"net/url"
	"regexp"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var codeRegex = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// GenerateCode returns a random code of the given length drawn uniformly
// from the 62-symbol alphanumeric alphabet. Codes are collision-resistant
// identifiers, not secrets; crypto/rand is used for its uniformity.
func GenerateCode(length int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ValidateCode reports whether code is 6-8 alphanumeric characters.
func ValidateCode(code string) bool {
	return codeRegex.MatchString(code)
}

// ValidateTargetURL reports whether raw is an absolute http or https URL.
func ValidateTargetURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
