package auth

import (
	"errors"
	"testing"
	"time"
)

var testTokens = TokenConfig{Issuer: "campus-test", SigningKey: "secret", AccessTTL: time.Minute, RefreshTTL: time.Hour}

func TestIssueParse(t *testing.T) {
	p := Principal{UserID: 7, Username: "mom", Role: RoleParent, StudentIDs: []string{"S001", "S002"}}
	pair, err := Issue(p, testTokens, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	claims, err := parseTyped(pair.AccessToken, tokenAccess, testTokens)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID() != 7 || claims.Role != RoleParent || len(claims.Students) != 2 {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := parseTyped(pair.RefreshToken, tokenAccess, testTokens); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh accepted as access: %v", err)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens are identical")
	}
}

func TestParseRejects(t *testing.T) {
	p := Principal{UserID: 1, Role: RoleAdmin}
	pair, err := Issue(p, testTokens, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	expired, err := Issue(p, testTokens, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, token, key, issuer string
	}{
		{"wrong key", pair.AccessToken, "other", testTokens.Issuer},
		{"wrong issuer", pair.AccessToken, testTokens.SigningKey, "someone-else"},
		{"expired", expired.AccessToken, testTokens.SigningKey, testTokens.Issuer},
		{"garbage", "not.a.jwt", testTokens.SigningKey, testTokens.Issuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.token, tt.key, tt.issuer); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
