package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tkovis/spatial-grid/store"
)

func TestResumeTokenRoundTrip(t *testing.T) {
	a := NewAuth(nil)
	token, err := a.IssueToken("world-1", 42)
	if err != nil {
		t.Fatal(err)
	}
	wid, eid, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if wid != "world-1" || eid != 42 {
		t.Errorf("got (%q, %d), want (world-1, 42)", wid, eid)
	}
}

func TestResumeTokenLargeEntityID(t *testing.T) {
	a := NewAuth(nil)
	const big = 1<<63 + 12345
	token, _ := a.IssueToken("w", big)
	_, eid, err := a.ValidateToken(token)
	if err != nil || eid != big {
		t.Errorf("got %d, %v; want %d", eid, err, uint64(big))
	}
}

func TestResumeTokenRejected(t *testing.T) {
	a := NewAuth(nil)
	other := NewAuth(nil)
	good, _ := a.IssueToken("w", 1)

	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	future := time.Now().Add(time.Hour).Unix()
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"wid": "w", "eid": "1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     swapPayload(good, sign(jwt.MapClaims{"wid": "other", "eid": "1", "exp": future})),
		"other secret": func() string { s, _ := other.IssueToken("w", 1); return s }(),
		"expired":      sign(jwt.MapClaims{"wid": "w", "eid": "1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no world":     sign(jwt.MapClaims{"eid": "1", "exp": future}),
		"no entity":    sign(jwt.MapClaims{"wid": "w", "exp": future}),
		"zero entity":  sign(jwt.MapClaims{"wid": "w", "eid": "0", "exp": future}),
		"numeric eid":  sign(jwt.MapClaims{"wid": "w", "eid": 1, "exp": future}),
		"alg none":     unsigned,
	}
	for name, token := range cases {
		if _, _, err := a.ValidateToken(token); err == nil {
			t.Errorf("%s: token accepted", name)
		}
	}
}

// swapPayload grafts the claims of donor onto the header and signature of token
func swapPayload(token, donor string) string {
	t, d := strings.Split(token, "."), strings.Split(donor, ".")
	return t[0] + "." + d[1] + "." + t[2]
}

func TestAuthSecretPersisted(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "grid.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	first := NewAuth(db)
	token, _ := first.IssueToken("w", 7)
	if h := db.GetSetting(secretSettingKey); len(h) != 64 || strings.Trim(h, "0123456789abcdef") != "" {
		t.Fatalf("stored secret %q is not 32 hex bytes", h)
	}

	second := NewAuth(db)
	if _, eid, err := second.ValidateToken(token); err != nil || eid != 7 {
		t.Errorf("token from previous run rejected: %v", err)
	}
}
