package profile_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doorman/internal/profile"
)

func TestMemberLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/members/42":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user_id":42,"username":"ada","game_id":"g-1","regular":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := profile.New(srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	member, err := client.Member(context.Background(), 42)
	if err != nil {
		t.Fatalf("Member: %v", err)
	}
	if member.Username != "ada" || !member.Regular {
		t.Fatalf("unexpected member: %#v", member)
	}

	if _, err := client.Member(context.Background(), 99); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemberByGameIDEscapesPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":7,"username":"bob","game_id":"a/b","regular":false}`))
	}))
	defer srv.Close()

	client, err := profile.New(srv.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	member, err := client.MemberByGameID(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("MemberByGameID: %v", err)
	}
	if member.UserID != 7 {
		t.Fatalf("user id = %d", member.UserID)
	}
	if gotPath != "/members/by-game-id/a%2Fb" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := profile.New(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Member(context.Background(), 1); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
