package class

import (
	"strings"
	"testing"
	"time"
)

func TestAccessToken(t *testing.T) {
	Init("secret")
	now := time.Now().UTC()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	classID := "0c4a92f4-5b3e-4f5c-9e58-1f6c2b2f8a11"
	expiry := now.Add(4 * time.Hour).Truncate(time.Second)
	token := MakeAccessToken(classID, expiry)

	t.Run("valid token round-trips", func(t *testing.T) {
		cid, exp, err := VerifyAccessToken(token)
		if err != nil {
			t.Fatalf("VerifyAccessToken() error = %v", err)
		}
		if cid != classID {
			t.Errorf("classID = %q, want %q", cid, classID)
		}
		if !exp.Equal(expiry) {
			t.Errorf("expiresAt = %v, want %v", exp, expiry)
		}
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		parts := strings.SplitN(token, "-", 3)
		otherCid := parts[0][:len(parts[0])-1] + "A"
		if otherCid == parts[0] {
			otherCid = parts[0][:len(parts[0])-1] + "B"
		}
		tampered := strings.Join([]string{otherCid, parts[1], parts[2]}, "-")
		if _, _, err := VerifyAccessToken(tampered); err != ErrLinkInvalid {
			t.Errorf("error = %v, want %v", err, ErrLinkInvalid)
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		for _, tok := range []string{"", "abc", "a-b", "a-b-c"} {
			if _, _, err := VerifyAccessToken(tok); err != ErrLinkInvalid {
				t.Errorf("VerifyAccessToken(%q) error = %v, want %v", tok, err, ErrLinkInvalid)
			}
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		nowFunc = func() time.Time { return expiry.Add(time.Second) }
		if _, _, err := VerifyAccessToken(token); err != ErrLinkExpired {
			t.Errorf("error = %v, want %v", err, ErrLinkExpired)
		}
	})

	t.Run("signature bound to secret", func(t *testing.T) {
		nowFunc = func() time.Time { return now }
		Init("other-secret")
		defer Init("secret")
		if _, _, err := VerifyAccessToken(token); err != ErrLinkInvalid {
			t.Errorf("error = %v, want %v", err, ErrLinkInvalid)
		}
	})
}
