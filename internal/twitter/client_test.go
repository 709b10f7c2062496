package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Credentials{
		BearerToken:  "bearer",
		APIKey:       "key",
		APISecret:    "secret",
		AccessToken:  "token",
		AccessSecret: "token-secret",
	}, zap.NewNop())
	client.SetBaseURL(server.URL)
	return client
}

func TestMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"id":"123456","username":"AskaSekolah"}}`))
	})

	identity, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if identity.UserID != 123456 {
		t.Errorf("UserID = %d, want 123456", identity.UserID)
	}
	if identity.Username != "askasekolah" {
		t.Errorf("Username = %q, want lowercased handle", identity.Username)
	}
}

func TestFetchMentions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/users/123/mentions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("since_id") != "100" {
			t.Errorf("since_id = %q, want 100", q.Get("since_id"))
		}
		if q.Get("max_results") != "5" {
			t.Errorf("max_results = %q, want 5", q.Get("max_results"))
		}
		if q.Get("expansions") != "author_id" {
			t.Errorf("expansions = %q", q.Get("expansions"))
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer bearer" {
			t.Errorf("Authorization = %q, want bearer auth", auth)
		}
		w.Write([]byte(`{
			"data": [
				{"id":"101","text":"@aska halo?","author_id":"7","created_at":"2024-01-15T07:05:09.000Z"}
			],
			"includes": {"users": [{"id":"7","username":"alice"}]},
			"meta": {"newest_id":"101","result_count":1}
		}`))
	})

	page, err := client.FetchMentions(context.Background(), 123, 100, 5)
	if err != nil {
		t.Fatalf("FetchMentions() error = %v", err)
	}
	if len(page.Tweets) != 1 {
		t.Fatalf("got %d tweets, want 1", len(page.Tweets))
	}
	tweet := page.Tweets[0]
	if tweet.ID != 101 || tweet.AuthorID != 7 {
		t.Errorf("tweet = %+v", tweet)
	}
	if tweet.AuthorUsername != "alice" {
		t.Errorf("AuthorUsername = %q, want alice", tweet.AuthorUsername)
	}
	if tweet.Text != "@aska halo?" {
		t.Errorf("Text = %q", tweet.Text)
	}
	if page.NewestID != 101 {
		t.Errorf("NewestID = %d, want 101", page.NewestID)
	}
}

func TestFetchMentionsRateLimited(t *testing.T) {
	reset := time.Now().Add(2 * time.Minute).Unix()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchMentions(context.Background(), 123, 0, 5)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.ResetAt.Unix() != reset {
		t.Errorf("ResetAt = %v, want epoch %d", rl.ResetAt, reset)
	}
}

func TestFetchMentionsBadRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"max_results out of range"}]}`))
	})

	_, err := client.FetchMentions(context.Background(), 123, 0, 5)
	var br *BadRequestError
	if !errors.As(err, &br) {
		t.Fatalf("expected BadRequestError, got %v", err)
	}
	if br.Detail != "max_results out of range" {
		t.Errorf("Detail = %q", br.Detail)
	}
}

func TestCreateTweetReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var payload struct {
			Text  string `json:"text"`
			Reply struct {
				InReplyTo string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload.Text != "@alice halo juga" {
			t.Errorf("text = %q", payload.Text)
		}
		if payload.Reply.InReplyTo != "101" {
			t.Errorf("in_reply_to_tweet_id = %q, want 101", payload.Reply.InReplyTo)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"202"}}`))
	})

	id, err := client.CreateTweet(context.Background(), "@alice halo juga", TweetOptions{InReplyTo: 101})
	if err != nil {
		t.Fatalf("CreateTweet() error = %v", err)
	}
	if id != 202 {
		t.Errorf("id = %d, want 202", id)
	}
}

func TestCreateTweetQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload["quote_tweet_id"] != "101" {
			t.Errorf("quote_tweet_id = %v, want 101", payload["quote_tweet_id"])
		}
		if _, hasReply := payload["reply"]; hasReply {
			t.Error("quote tweet must not carry a reply block")
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"203"}}`))
	})

	if _, err := client.CreateTweet(context.Background(), "lihat ini", TweetOptions{QuoteOf: 101}); err != nil {
		t.Fatalf("CreateTweet() error = %v", err)
	}
}

func TestCreateTweetForbiddenCodes(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantReply     bool
		wantDuplicate bool
	}{
		{
			"reply forbidden 385",
			`{"errors":[{"code":385,"message":"You attempted to reply to a Tweet that is deleted or not visible to you."}]}`,
			true, false,
		},
		{
			"duplicate 187",
			`{"errors":[{"code":187,"message":"Status is a duplicate."}]}`,
			false, true,
		},
		{
			"duplicate by detail text",
			`{"detail":"You are not allowed to create a Tweet with duplicate content."}`,
			false, true,
		},
		{
			"other code",
			`{"errors":[{"code":326,"message":"account locked"}]}`,
			false, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(tt.body))
			})

			_, err := client.CreateTweet(context.Background(), "halo", TweetOptions{InReplyTo: 1})
			var forbidden *ForbiddenError
			if !errors.As(err, &forbidden) {
				t.Fatalf("expected ForbiddenError, got %v", err)
			}
			if forbidden.ReplyForbidden() != tt.wantReply {
				t.Errorf("ReplyForbidden() = %v, want %v", forbidden.ReplyForbidden(), tt.wantReply)
			}
			if forbidden.DuplicateContent() != tt.wantDuplicate {
				t.Errorf("DuplicateContent() = %v, want %v", forbidden.DuplicateContent(), tt.wantDuplicate)
			}
		})
	}
}

func TestTransportErrorIsUntyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CreateTweet(context.Background(), "halo", TweetOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	var rl *RateLimitError
	var forbidden *ForbiddenError
	var br *BadRequestError
	if errors.As(err, &rl) || errors.As(err, &forbidden) || errors.As(err, &br) {
		t.Errorf("5xx should map to a plain transport error, got %T", err)
	}
}
