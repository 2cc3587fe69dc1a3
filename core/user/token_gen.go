package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	tokenSalt  = []byte("future-navigator/password-reset")
	tokenEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// ResetTokens issues and checks single-use password reset links.
// A token is "<hours since epoch, base36>-<hmac>". The mac covers the account's
// password hash and last login, so a reset or a new sign-in burns older links.
type ResetTokens struct {
	key     []byte
	timeout time.Duration
	now     func() time.Time
}

func NewResetTokens(secretKey string, timeout time.Duration) *ResetTokens {
	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), secretKey...))
	return &ResetTokens{key: key[:], timeout: timeout, now: time.Now}
}

// Make returns a fresh token for usr.
func (rt *ResetTokens) Make(usr User) string {
	return rt.makeAt(usr, hoursSinceEpoch(rt.now()))
}

// Check reports errInvalidToken for forged or stale-state tokens and
// errTokenExpired once the timeout has passed.
func (rt *ResetTokens) Check(usr User, token string) error {
	stamp, _, ok := strings.Cut(token, "-")
	if !ok {
		return errInvalidToken
	}
	ts, err := strconv.ParseInt(stamp, 36, 64)
	if err != nil || ts < 0 {
		return errInvalidToken
	}
	if !hmac.Equal([]byte(rt.makeAt(usr, ts)), []byte(token)) {
		return errInvalidToken
	}

	age := hoursSinceEpoch(rt.now()) - ts
	if age < 0 {
		return errInvalidToken
	}
	if time.Duration(age)*time.Hour > rt.timeout {
		return errTokenExpired
	}
	return nil
}

func (rt *ResetTokens) makeAt(usr User, ts int64) string {
	var msg bytes.Buffer
	msg.WriteString(usr.ID)
	msg.WriteByte(0)
	msg.WriteString(strings.ToLower(usr.Email))
	msg.WriteByte(0)
	msg.Write(usr.PasswordHash)
	msg.WriteByte(0)
	if !usr.LastLogin.IsZero() {
		msg.WriteString(strconv.FormatInt(usr.LastLogin.Unix(), 10))
	}
	msg.WriteByte(0)
	msg.WriteString(strconv.FormatInt(ts, 10))

	mac := hmac.New(sha256.New, rt.key)
	mac.Write(msg.Bytes())
	return strconv.FormatInt(ts, 36) + "-" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func hoursSinceEpoch(t time.Time) int64 {
	return int64(t.Sub(tokenEpoch) / time.Hour)
}

// EncodeUID hides the raw account id in reset links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
