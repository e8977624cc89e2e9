package careclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/model"
)

func TestSignInStoresToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/signin":
			_ = json.NewEncoder(w).Encode(Session{Token: "abc"})
		case "/notifications/unread-count":
			gotAuth = r.Header.Get("Authorization")
			fmt.Fprint(w, `{"unread_count":3}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()
	if _, err := c.SignIn(ctx, "a@b.c", "pw"); err != nil {
		t.Fatal(err)
	}
	n, err := c.UnreadCount(ctx)
	if err != nil || n != 3 {
		t.Fatalf("UnreadCount = (%d, %v)", n, err)
	}
	if gotAuth != "Bearer abc" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid token"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Notifications(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if apiErr, ok := err.(*APIError); !ok || apiErr.Message != "invalid token" {
		t.Fatalf("unexpected error %#v", err)
	}
}

func TestReactSendsType(t *testing.T) {
	subject := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/reactions/question/"+subject.String() {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(model.ReactionState{
			SubjectType:    "question",
			SubjectID:      subject,
			ReactionCounts: model.ReactionCounts{LikesCount: 1, UserReaction: ptr(body["reaction_type"])},
			Action:         "added",
		})
	}))
	defer srv.Close()

	s, err := New(srv.URL).React(context.Background(), "question", subject, "like")
	if err != nil {
		t.Fatal(err)
	}
	if s.LikesCount != 1 || s.UserReaction == nil || *s.UserReaction != "like" {
		t.Fatalf("unexpected state %+v", s)
	}
}

func ptr(s string) *string { return &s }

func TestSubscribeParsesEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filter") != "user_id=eq.u1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:subscribed\ndata:{}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "event: change\ndata: {\"table\":\"notifications\",\"type\":\"INSERT\",\"keys\":{\"user_id\":\"u1\"}}\n\n")
		fmt.Fprint(w, "event:ping\ndata:1\n\n")
	}))
	defer srv.Close()

	c := New(srv.URL)
	ch, err := c.Subscribe(context.Background(), "notifications", "user_id=eq.u1")
	if err != nil {
		t.Fatal(err)
	}

	var got []mqcontracts.ChangeEvent
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].Type != mqcontracts.ChangeInsert || got[0].Keys["user_id"] != "u1" {
		t.Fatalf("events = %+v", got)
	}

	if _, err := c.Subscribe(context.Background(), "notifications", ""); err == nil {
		t.Fatal("expected error for rejected subscription")
	}
}
