package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	resolver := NewResolver(srv.URL, srv.Client(), zap.NewNop())
	return NewClient(resolver, zap.NewNop()), srv
}

func TestLoginReturnsTokenAndNormalizedUser(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "jo@example.com" {
			t.Errorf("unexpected email: %q", body["email"])
		}
		w.Write([]byte(`{"token":"tok","user":{"user_id":9,"firstName":"Jo","lastName":"Mwangi","role":"client"}}`))
	})

	result, err := client.Login(context.Background(), "jo@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token != "tok" {
		t.Fatalf("token: got %q", result.Token)
	}
	if result.User.ID != 9 || result.User.FirstName != "Jo" || result.User.LastName != "Mwangi" {
		t.Fatalf("user not normalized: %+v", result.User)
	}
}

func TestLoginRejectsMissingToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"id":1}}`))
	})
	if _, err := client.Login(context.Background(), "a@b.c", "pw"); err == nil {
		t.Fatal("expected an error for a tokenless login response")
	}
}

func TestProfileWalksCandidateRoutes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/user/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"id":3,"email":"jo@example.com","phone_number":"0712345678"}`))
	})

	profile, path, err := client.Profile(context.Background(), "tok")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if path != "/api/auth/user/" {
		t.Fatalf("winning path: got %s", path)
	}
	if profile.Phone != "0712345678" {
		t.Fatalf("phone not coalesced: %+v", profile)
	}
	if profile.Username != "jo@example.com" {
		t.Fatalf("username should fall back to email, got %q", profile.Username)
	}
}

func TestInitiateSTKPushRejectsFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"insufficient funds"}`))
	})

	_, err := client.InitiateSTKPush(context.Background(), "tok", STKPushInput{PhoneNumber: "254712345678", Amount: 1000})
	if err == nil || !strings.Contains(err.Error(), "insufficient funds") {
		t.Fatalf("expected rejection with upstream message, got %v", err)
	}
}

func TestInitiateSTKPushFallsBackToTransactionID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"transaction_id":"tx-42"}`))
	})

	result, err := client.InitiateSTKPush(context.Background(), "tok", STKPushInput{PhoneNumber: "254712345678", Amount: 1000})
	if err != nil {
		t.Fatalf("stk push: %v", err)
	}
	if result.CheckoutRequestID != "tx-42" {
		t.Fatalf("checkout id fallback: got %q, want tx-42", result.CheckoutRequestID)
	}
}

func TestCreateSessionDecodesNestedID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"session":{"id":55}}`))
	})

	id, err := client.CreateSession(context.Background(), "tok", CreateSessionInput{ProfessionalID: 1, ClientID: 2, SessionType: "chat"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if id != 55 {
		t.Fatalf("session id: got %d, want 55", id)
	}
}

func TestAvailability(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "video" {
			t.Errorf("missing type query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"available":true}`))
	})

	available, err := client.Availability(context.Background(), "tok", 7, "video")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if !available {
		t.Fatal("expected available=true")
	}
}
