package student

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"regexp"

	"github.com/trezcool/mahudhurio/core"
)

var (
	pinSalt  = []byte("mahudhurio.core.student.pin")
	pinRegex = regexp.MustCompile(`^[0-9]{4}$`)
)

// ValidPIN reports whether pin is exactly 4 digits.
func ValidPIN(pin string) bool {
	return pinRegex.MatchString(pin)
}

// DigestPIN computes the salted HMAC-SHA256 digest under which a Student's PIN
// is stored and looked up. Raw PINs are never persisted nor returned to clients;
// the digest is deterministic so equality lookup (and duplicate detection at
// assignment time) works without ever comparing raw values.
func DigestPIN(conf *core.Config, pin string) string {
	key := sha256.Sum256(append(pinSalt, conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write([]byte(pin))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
