package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/models"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.twitter.com"

// Credentials holds the bearer token for reads and the OAuth 1.0a keypair
// that signs user-context requests.
type Credentials struct {
	BearerToken  string
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// MentionsPage is one fetch of the mention timeline. Tweets arrive in the
// remote's order; Users maps author id to username for the expanded authors.
type MentionsPage struct {
	Tweets   []models.Mention
	Users    map[uint64]string
	NewestID uint64 // 0 when the response carried no meta.newest_id
}

// Client is a thin adapter over the Twitter v2 HTTP API. It translates the
// remote's status codes and error envelopes into the typed errors the agent
// dispatches on; callers never see raw HTTP detail.
type Client struct {
	read    *http.Client // bearer-authenticated
	write   *http.Client // oauth1-signed user context
	bearer  string
	baseURL string
	logger  *zap.Logger
}

func NewClient(creds Credentials, logger *zap.Logger) *Client {
	oauthConfig := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	write := oauthConfig.Client(oauth1.NoContext, token)
	write.Timeout = 25 * time.Second

	return &Client{
		read:    &http.Client{Timeout: 25 * time.Second},
		write:   write,
		bearer:  creds.BearerToken,
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// SetBaseURL points the client at a different API host. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// Me resolves the authenticated account's identity.
func (c *Client) Me(ctx context.Context) (models.AgentIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/2/users/me", nil)
	if err != nil {
		return models.AgentIdentity{}, err
	}

	body, err := c.do(c.write, req)
	if err != nil {
		return models.AgentIdentity{}, err
	}

	var out struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return models.AgentIdentity{}, fmt.Errorf("twitter: decoding users/me: %w", err)
	}
	id, err := strconv.ParseUint(out.Data.ID, 10, 64)
	if err != nil {
		return models.AgentIdentity{}, fmt.Errorf("twitter: invalid user id %q: %w", out.Data.ID, err)
	}

	return models.AgentIdentity{
		UserID:   id,
		Username: strings.ToLower(out.Data.Username),
	}, nil
}

// FetchMentions pulls the mention timeline for userID. sinceID of 0 means
// no floor. maxResults must already be clamped to [5,100] by the caller.
func (c *Client) FetchMentions(ctx context.Context, userID, sinceID uint64, maxResults int) (*MentionsPage, error) {
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("tweet.fields", "author_id,created_at")
	q.Set("expansions", "author_id")
	if sinceID > 0 {
		q.Set("since_id", strconv.FormatUint(sinceID, 10))
	}

	endpoint := fmt.Sprintf("%s/2/users/%d/mentions?%s", c.baseURL, userID, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	body, err := c.do(c.read, req)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			AuthorID  string `json:"author_id"`
			CreatedAt string `json:"created_at"`
		} `json:"data"`
		Includes struct {
			Users []struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"users"`
		} `json:"includes"`
		Meta struct {
			NewestID string `json:"newest_id"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("twitter: decoding mentions: %w", err)
	}

	page := &MentionsPage{Users: make(map[uint64]string)}
	for _, u := range out.Includes.Users {
		if id, err := strconv.ParseUint(u.ID, 10, 64); err == nil {
			page.Users[id] = u.Username
		}
	}
	for _, t := range out.Data {
		id, err := strconv.ParseUint(t.ID, 10, 64)
		if err != nil {
			c.logger.Warn("Skipping mention with unparseable id", zap.String("id", t.ID))
			continue
		}
		authorID, _ := strconv.ParseUint(t.AuthorID, 10, 64)
		createdAt, _ := time.Parse(time.RFC3339, t.CreatedAt)
		page.Tweets = append(page.Tweets, models.Mention{
			ID:             id,
			AuthorID:       authorID,
			AuthorUsername: page.Users[authorID],
			CreatedAt:      createdAt,
			Text:           t.Text,
		})
	}
	if out.Meta.NewestID != "" {
		page.NewestID, _ = strconv.ParseUint(out.Meta.NewestID, 10, 64)
	}

	return page, nil
}

// TweetOptions selects the posting mode. InReplyTo and QuoteOf are mutually
// exclusive; both zero means a plain tweet.
type TweetOptions struct {
	InReplyTo uint64
	QuoteOf   uint64
}

// CreateTweet publishes text and returns the new tweet's id.
func (c *Client) CreateTweet(ctx context.Context, text string, opts TweetOptions) (uint64, error) {
	payload := map[string]any{"text": text}
	if opts.InReplyTo > 0 {
		payload["reply"] = map[string]string{
			"in_reply_to_tweet_id": strconv.FormatUint(opts.InReplyTo, 10),
		}
	} else if opts.QuoteOf > 0 {
		payload["quote_tweet_id"] = strconv.FormatUint(opts.QuoteOf, 10)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(c.write, req)
	if err != nil {
		return 0, err
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("twitter: decoding create tweet: %w", err)
	}
	id, err := strconv.ParseUint(out.Data.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("twitter: invalid tweet id %q: %w", out.Data.ID, err)
	}
	return id, nil
}

// do runs the request and maps non-2xx statuses onto the typed errors.
func (c *Client) do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("twitter: reading response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		rl := &RateLimitError{}
		if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
			if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
				rl.ResetAt = time.Unix(epoch, 0)
			}
		}
		return nil, rl
	case http.StatusForbidden:
		return nil, &ForbiddenError{
			Codes:  parseErrorCodes(body),
			Detail: parseErrorDetail(body),
		}
	case http.StatusBadRequest:
		return nil, &BadRequestError{Detail: parseErrorDetail(body)}
	default:
		return nil, fmt.Errorf("twitter: %s %s: http %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, previewBody(body))
	}
}

// parseErrorCodes collects legacy numeric codes from either the v1.1 or the
// v2 error envelope.
func parseErrorCodes(body []byte) []int {
	var envelope struct {
		Errors []struct {
			Code int `json:"code"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	var codes []int
	for _, e := range envelope.Errors {
		if e.Code != 0 {
			codes = append(codes, e.Code)
		}
	}
	return codes
}

func parseErrorDetail(body []byte) string {
	var envelope struct {
		Detail string `json:"detail"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Detail != "" {
		return envelope.Detail
	}
	for _, e := range envelope.Errors {
		if e.Message != "" {
			return e.Message
		}
	}
	return ""
}

func previewBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
