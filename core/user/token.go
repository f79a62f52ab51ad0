package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	tokenSalt  = []byte("rapor.core.user.token")
	tsEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	// errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenGenerator makes single-use password reset tokens. A token is bound to the user's password hash
// and last login, so it stops working once the password changes or the user logs in.
type TokenGenerator struct {
	key     [sha256.Size]byte
	timeout time.Duration
	now     func() time.Time // mockable
}

func NewTokenGenerator(secretKey string, timeout time.Duration) *TokenGenerator {
	return &TokenGenerator{
		key:     sha256.Sum256(append(append([]byte(nil), tokenSalt...), secretKey...)),
		timeout: timeout,
		now:     time.Now,
	}
}

// EncodeUID base64 encodes the ID of usr.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(usr.ID)))
}

// DecodeUID returns the user ID encoded in uid.
func DecodeUID(uid string) (int, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.Atoi(string(idBytes))
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// MakeToken generates a password reset token for usr.
func (g *TokenGenerator) MakeToken(usr User) string {
	return g.makeTokenWithTimestamp(usr, numDaysSince2001(g.now()))
}

// VerifyToken checks that token is a valid password reset token for usr.
func (g *TokenGenerator) VerifyToken(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}

	data, err := tsEncoding.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(g.makeTokenWithTimestamp(usr, ts)), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	// check that the timestamp is within limit
	if numDaysSince2001(g.now())-ts > int(g.timeout/(24*time.Hour)) {
		return ErrTokenExpired
	}
	return nil
}

func (g *TokenGenerator) makeTokenWithTimestamp(usr User, ts int) string {
	h := hmac.New(sha256.New, g.key[:])
	h.Write(hashValue(usr, ts))
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s-%s", tsEncoding.EncodeToString([]byte(strconv.Itoa(ts))), sig)
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(strconv.Itoa(usr.ID))
	val.Write(usr.PasswordHash)
	if usr.LastLogin != nil {
		val.WriteString(usr.LastLogin.UTC().Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
