// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	base36Charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	orderNumberPrefix     = "ORD"
	orderNumberRandomSize = 8

	licenseKeySegments    = 4
	licenseKeySegmentSize = 5
)

// GenerateBase36 returns length random characters drawn from [0-9A-Z].
func GenerateBase36(length int) (string, error) {
	return randomFromCharset(base36Charset, length)
}

func randomFromCharset(charset string, length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))

	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

// GenerateOrderNumber builds ORD-<base36 unix millis>-<base36 random>, all
// upper case.
func GenerateOrderNumber(now time.Time) (string, error) {
	suffix, err := GenerateBase36(orderNumberRandomSize)
	if err != nil {
		return "", err
	}
	timestamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return orderNumberPrefix + "-" + timestamp + "-" + suffix, nil
}

// GenerateLicenseKey returns four 5-character base36 segments joined by
// hyphens, e.g. 7K2QF-0ZB9M-XX41P-3JH8D.
func GenerateLicenseKey() (string, error) {
	segments := make([]string, licenseKeySegments)
	for i := range segments {
		segment, err := GenerateBase36(licenseKeySegmentSize)
		if err != nil {
			return "", err
		}
		segments[i] = segment
	}
	return strings.Join(segments, "-"), nil
}
