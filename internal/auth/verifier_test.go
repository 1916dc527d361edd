package auth

import (
	"context"
	"errors"
	"testing"

	"spendtrail/internal/core"
	"spendtrail/internal/storage"
)

type fakeTokenStore struct {
	users map[string]core.User
}

func (f *fakeTokenStore) UserByTokenHash(_ context.Context, hash string) (core.User, error) {
	u, ok := f.users[hash]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func TestVerify(t *testing.T) {
	store := &fakeTokenStore{users: map[string]core.User{
		HashToken("good-token"): {ID: 42, Email: "ada@example.com"},
	}}
	v := NewVerifier(store)

	u, err := v.Verify(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if u.ID != 42 {
		t.Fatalf("expected user 42, got %d", u.ID)
	}

	for _, token := range []string{"", "   ", "wrong-token"} {
		if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("token %q: expected ErrUnauthenticated, got %v", token, err)
		}
	}
}

func TestFromHeader(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"bearer abc123", "abc123", true},
		{"Bearer  abc123 ", "abc123", true},
		{"Basic abc123", "", false},
		{"abc123", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := FromHeader(tc.header)
		if tc.ok {
			if err != nil || got != tc.token {
				t.Fatalf("%q: expected %q, got %q (err=%v)", tc.header, tc.token, got, err)
			}
		} else if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%q: expected ErrUnauthenticated, got %v", tc.header, err)
		}
	}
}
