package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/models"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/spam"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/storage"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/templates"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/twitter"
	"go.uber.org/zap"
)

const minFetchResults = 5

// RemoteClient is the slice of the Twitter client the processor needs.
type RemoteClient interface {
	FetchMentions(ctx context.Context, userID, sinceID uint64, maxResults int) (*twitter.MentionsPage, error)
	CreateTweet(ctx context.Context, text string, opts twitter.TweetOptions) (uint64, error)
}

// ReplyGenerator produces the reply body for a mention.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, userID int64, message string) string
}

// Saver persists the agent state document.
type Saver interface {
	Save(models.AgentState) error
}

// MentionsConfig are the processor tunables.
type MentionsConfig struct {
	MaxResults int
	LatestOnly bool
	HardLimit  int
}

// MentionProcessor fetches new mentions, filters them, generates replies and
// posts them through the fallback ladder. It advances the high-water mark
// only past mentions that were delivered or deliberately dropped.
type MentionProcessor struct {
	client    RemoteClient
	generator ReplyGenerator
	filter    *spam.Filter
	storage   storage.Storage
	saver     Saver
	renderer  *templates.Renderer
	backoff   *BackoffClock
	identity  models.AgentIdentity
	cfg       MentionsConfig
	logger    *zap.Logger
}

func NewMentionProcessor(client RemoteClient, generator ReplyGenerator, filter *spam.Filter, store storage.Storage, saver Saver, renderer *templates.Renderer, backoff *BackoffClock, identity models.AgentIdentity, cfg MentionsConfig, logger *zap.Logger) *MentionProcessor {
	return &MentionProcessor{
		client:    client,
		generator: generator,
		filter:    filter,
		storage:   store,
		saver:     saver,
		renderer:  renderer,
		backoff:   backoff,
		identity:  identity,
		cfg:       cfg,
		logger:    logger,
	}
}

// deliveryResult is the outcome of one tweet's fallback ladder.
type deliveryResult int

const (
	delivered deliveryResult = iota
	dropped                  // permanently refused; count as handled
	aborted                  // transient failure; re-see the tweet next cycle
)

// Process runs one mention cycle against the shared agent state.
func (p *MentionProcessor) Process(ctx context.Context, st *models.AgentState) {
	if !p.backoff.Ready() {
		return
	}

	requested := minFetchResults
	if !p.cfg.LatestOnly {
		requested = clamp(p.cfg.MaxResults, minFetchResults, 100)
	}

	page, ok := p.fetch(ctx, st, requested)
	if !ok {
		return
	}
	p.backoff.Reset()

	if len(page.Tweets) == 0 {
		return
	}

	tweets := p.selectTweets(page.Tweets)

	interrupted := false
	for _, tweet := range tweets {
		if tweet.AuthorID == p.identity.UserID {
			p.commitSeen(st, tweet.ID)
			continue
		}

		cleaned := StripBotMentions(tweet.Text, p.identity.Username)
		if !p.filter.Accept(tweet.Text, cleaned) {
			p.logger.Info("Mention rejected by spam filter",
				zap.Uint64("tweet_id", tweet.ID),
				zap.String("preview", preview(tweet.Text)))
			p.commitSeen(st, tweet.ID)
			continue
		}

		// Generate before persisting so the history the generator reads
		// does not already contain this message.
		body := p.generator.GenerateReply(ctx, int64(tweet.AuthorID), cleaned)
		p.persistChat(ctx, tweet, models.RoleUser, cleaned)
		status := body
		if tweet.AuthorUsername != "" {
			status = "@" + tweet.AuthorUsername + " " + body
		}
		status = truncateRunes(status, p.cfg.HardLimit)

		switch p.deliver(ctx, status, tweet.ID) {
		case delivered:
			p.persistChat(ctx, tweet, models.RoleAska, status)
			p.commitSeen(st, tweet.ID)
		case dropped:
			p.logger.Warn("Reply permanently refused, dropping mention",
				zap.Uint64("tweet_id", tweet.ID))
			p.commitSeen(st, tweet.ID)
		case aborted:
			// Leave the high-water mark below this id so the next fetch
			// cycle sees the mention again.
			interrupted = true
		}
		if interrupted {
			break
		}
	}

	if !interrupted && !p.cfg.LatestOnly && page.NewestID > 0 {
		p.commitSeen(st, page.NewestID)
	}
}

// fetch pulls the mention timeline, retrying a bad request once with the
// minimum page size. Returns ok=false when this cycle should give up.
func (p *MentionProcessor) fetch(ctx context.Context, st *models.AgentState, requested int) (*twitter.MentionsPage, bool) {
	sinceID := uint64(0)
	if st.LastSeenID != nil {
		sinceID = *st.LastSeenID
	}

	page, err := p.client.FetchMentions(ctx, p.identity.UserID, sinceID, requested)
	if err == nil {
		return page, true
	}

	var rl *twitter.RateLimitError
	if errors.As(err, &rl) {
		cool := p.backoff.Engage(rl.ResetAt)
		p.logger.Warn("Mentions fetch rate limited",
			zap.Duration("cooldown", cool),
			zap.Time("until", p.backoff.Until()))
		return nil, false
	}

	var br *twitter.BadRequestError
	if errors.As(err, &br) {
		p.logger.Warn("Mentions fetch rejected, retrying with minimum page size",
			zap.Error(err),
			zap.Int("requested", requested))
		page, err = p.client.FetchMentions(ctx, p.identity.UserID, sinceID, minFetchResults)
		if err == nil {
			return page, true
		}
		p.logger.Error("Mentions fetch failed after retry", zap.Error(err))
		return nil, false
	}

	p.logger.Error("Mentions fetch failed", zap.Error(err))
	return nil, false
}

// selectTweets orders the page for processing: ascending id, or in
// latest-only mode just the newest tweet (by created_at, falling back to id).
func (p *MentionProcessor) selectTweets(tweets []models.Mention) []models.Mention {
	if p.cfg.LatestOnly {
		latest := tweets[0]
		for _, t := range tweets[1:] {
			switch {
			case t.CreatedAt.After(latest.CreatedAt):
				latest = t
			case t.CreatedAt.Equal(latest.CreatedAt) && t.ID > latest.ID:
				latest = t
			}
		}
		return []models.Mention{latest}
	}

	ordered := make([]models.Mention, len(tweets))
	copy(ordered, tweets)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return ordered
}

// deliver walks the posting fallback ladder for one reply.
func (p *MentionProcessor) deliver(ctx context.Context, status string, tweetID uint64) deliveryResult {
	_, err := p.client.CreateTweet(ctx, status, twitter.TweetOptions{InReplyTo: tweetID})
	if err == nil {
		p.logger.Info("Reply sent", zap.Uint64("in_reply_to", tweetID))
		return delivered
	}

	if res, done := p.classifySendErr(err, tweetID, "reply"); done {
		return res
	}

	var forbidden *twitter.ForbiddenError
	errors.As(err, &forbidden)

	if forbidden.DuplicateContent() {
		stamped := withTimeSuffix(status, p.renderer, p.cfg.HardLimit)
		_, err = p.client.CreateTweet(ctx, stamped, twitter.TweetOptions{InReplyTo: tweetID})
		if err == nil {
			p.logger.Info("Reply sent with timestamp suffix", zap.Uint64("in_reply_to", tweetID))
			return delivered
		}
		if res, done := p.classifySendErr(err, tweetID, "stamped reply"); done {
			return res
		}
		status = stamped
	}

	// Reply refused: try a quote tweet, then a plain tweet.
	_, err = p.client.CreateTweet(ctx, status, twitter.TweetOptions{QuoteOf: tweetID})
	if err == nil {
		p.logger.Info("Reply delivered as quote tweet", zap.Uint64("quote_of", tweetID))
		return delivered
	}
	if res, done := p.classifySendErr(err, tweetID, "quote"); done {
		return res
	}

	_, err = p.client.CreateTweet(ctx, status, twitter.TweetOptions{})
	if err == nil {
		p.logger.Info("Reply delivered as plain tweet", zap.Uint64("target", tweetID))
		return delivered
	}
	if res, done := p.classifySendErr(err, tweetID, "plain"); done {
		return res
	}

	return dropped
}

// classifySendErr maps a send error onto the ladder's control flow: transient
// errors abort the tweet, forbidden errors let the ladder continue.
func (p *MentionProcessor) classifySendErr(err error, tweetID uint64, mode string) (deliveryResult, bool) {
	var rl *twitter.RateLimitError
	if errors.As(err, &rl) {
		cool := p.backoff.Engage(rl.ResetAt)
		p.logger.Warn("Tweet send rate limited",
			zap.Uint64("tweet_id", tweetID),
			zap.String("mode", mode),
			zap.Duration("cooldown", cool))
		return aborted, true
	}

	var forbidden *twitter.ForbiddenError
	if errors.As(err, &forbidden) {
		p.logger.Info("Tweet send forbidden, continuing fallback ladder",
			zap.Uint64("tweet_id", tweetID),
			zap.String("mode", mode),
			zap.Ints("codes", forbidden.Codes))
		return 0, false
	}

	p.logger.Error("Tweet send failed",
		zap.Error(err),
		zap.Uint64("tweet_id", tweetID),
		zap.String("mode", mode))
	return aborted, true
}

// commitSeen advances the high-water mark (never backwards) and persists.
func (p *MentionProcessor) commitSeen(st *models.AgentState, id uint64) {
	if st.LastSeenID != nil && *st.LastSeenID >= id {
		return
	}
	seen := id
	st.LastSeenID = &seen
	if err := p.saver.Save(*st); err != nil {
		p.logger.Error("Failed to persist mention state",
			zap.Error(err),
			zap.Uint64("last_seen_id", id))
	}
}

func (p *MentionProcessor) persistChat(ctx context.Context, tweet models.Mention, role, content string) {
	err := p.storage.SaveMessage(ctx, &models.ChatMessage{
		UserID:   int64(tweet.AuthorID),
		Username: tweet.AuthorUsername,
		Role:     role,
		Topic:    "twitter",
		Content:  content,
	})
	if err != nil {
		p.logger.Error("Failed to persist chat message",
			zap.Error(err),
			zap.Uint64("tweet_id", tweet.ID),
			zap.String("role", role))
	}
}

var mentionPattern = regexp.MustCompile(`(?i)@[a-z0-9_]+`)

// StripBotMentions removes the agent's own handle from the text and
// canonicalizes whitespace. Other handles are kept; they may be part of the
// question.
func StripBotMentions(text, botUsername string) string {
	cleaned := mentionPattern.ReplaceAllStringFunc(text, func(m string) string {
		if strings.EqualFold(m, "@"+botUsername) {
			return ""
		}
		return m
	})
	return strings.Join(strings.Fields(cleaned), " ")
}

// withTimeSuffix appends " · HH:MM:SS" (Jakarta wall clock), trimming the
// base text so the result stays within limit.
func withTimeSuffix(status string, renderer *templates.Renderer, limit int) string {
	suffix := fmt.Sprintf(" · %s", renderer.Clock().Format("15:04:05"))
	base := []rune(status)
	budget := limit - len([]rune(suffix))
	if len(base) > budget {
		base = base[:budget]
	}
	return string(base) + suffix
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > 60 {
		return string(runes[:60]) + "…"
	}
	return text
}
