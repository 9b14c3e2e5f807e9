package class

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	salt      = []byte("tathmini.core.class.token")
	secretKey []byte     // set via Init
	nowFunc   = time.Now // mockable

	ErrLinkInvalid = errors.New("invalid access link")
	ErrLinkExpired = errors.New("access link has expired")
)

// Init wires the signing secret. Call once at startup.
func Init(secret string) {
	secretKey = []byte(secret)
}

// MakeAccessToken issues a signed class-join token that expires at `expiresAt`.
// Format: base32(classID)-base32(unixExpiry)-signature. The first two parts
// are base32 so they can never contain the "-" separator.
func MakeAccessToken(classID string, expiresAt time.Time) string {
	b32 := base32.StdEncoding.WithPadding(base32.NoPadding)
	cid := b32.EncodeToString([]byte(classID))
	ts := b32.EncodeToString([]byte(strconv.FormatInt(expiresAt.Unix(), 10)))
	return fmt.Sprintf("%s-%s-%s", cid, ts, sign(hashValue(classID, expiresAt.Unix())))
}

// VerifyAccessToken checks a class-join token's signature and expiry and
// returns the class it grants access to.
func VerifyAccessToken(token string) (classID string, expiresAt time.Time, err error) {
	parts := strings.SplitN(token, "-", 3)
	if len(parts) < 3 {
		return "", time.Time{}, ErrLinkInvalid
	}

	b32 := base32.StdEncoding.WithPadding(base32.NoPadding)
	cidBytes, err := b32.DecodeString(parts[0])
	if err != nil {
		return "", time.Time{}, ErrLinkInvalid
	}
	classID = string(cidBytes)

	tsBytes, err := b32.DecodeString(parts[1])
	if err != nil {
		return "", time.Time{}, ErrLinkInvalid
	}
	unix, err := strconv.ParseInt(string(tsBytes), 10, 64)
	if err != nil {
		return "", time.Time{}, ErrLinkInvalid
	}
	expiresAt = time.Unix(unix, 0).UTC()

	// check that the token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(sign(hashValue(classID, unix))), []byte(parts[2])) == 0 {
		return "", time.Time{}, ErrLinkInvalid
	}

	if nowFunc().After(expiresAt) {
		return "", time.Time{}, ErrLinkExpired
	}
	return classID, expiresAt, nil
}

func sign(val []byte) string {
	key := sha256.Sum256(append(salt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func hashValue(classID string, unix int64) []byte {
	var val bytes.Buffer
	val.WriteString(classID)
	val.WriteString(strconv.FormatInt(unix, 10))
	return val.Bytes()
}
