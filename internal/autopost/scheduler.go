package autopost

import (
	"context"
	"time"

	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/models"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/state"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/templates"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/twitter"
	"go.uber.org/zap"
)

// Poster publishes a tweet. *twitter.Client satisfies it.
type Poster interface {
	CreateTweet(ctx context.Context, text string, opts twitter.TweetOptions) (uint64, error)
}

// PromptAnswerer turns a RAG prompt into post text. The reply generator's
// autopost mode satisfies it.
type PromptAnswerer interface {
	GenerateAutopost(ctx context.Context, prompt string) (string, error)
}

// Saver persists the agent state document.
type Saver interface {
	Save(models.AgentState) error
}

// Scheduler walks the entries list one post per trigger, gated by the
// configured interval and deduplicated by content fingerprint. The cursor
// advances on a successful send or a deliberate skip, never on a send
// failure.
type Scheduler struct {
	entries     []Entry
	interval    time.Duration
	recentLimit int
	hardLimit   int

	renderer  *templates.Renderer
	generator PromptAnswerer
	poster    Poster
	saver     Saver
	logger    *zap.Logger

	now         func() time.Time
	loggedEmpty bool
}

func NewScheduler(entries []Entry, interval time.Duration, recentLimit, hardLimit int, renderer *templates.Renderer, generator PromptAnswerer, poster Poster, saver Saver, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		entries:     entries,
		interval:    interval,
		recentLimit: recentLimit,
		hardLimit:   hardLimit,
		renderer:    renderer,
		generator:   generator,
		poster:      poster,
		saver:       saver,
		logger:      logger,
		now:         time.Now,
	}
}

// MaybeAutopost runs one pass of the schedule. ignoreInterval bypasses the
// interval gate (used for the forced post at startup).
func (s *Scheduler) MaybeAutopost(ctx context.Context, st *models.AgentState, ignoreInterval bool) {
	if len(s.entries) == 0 {
		if !s.loggedEmpty {
			s.logger.Info("Autopost entries list is empty, nothing to post")
			s.loggedEmpty = true
		}
		return
	}

	now := s.now()
	if !ignoreInterval {
		elapsed := now.Sub(time.Unix(0, int64(st.Autopost.LastTimestamp*float64(time.Second))))
		if elapsed < s.interval {
			return
		}
	}

	index := int(st.Autopost.NextIndex) % len(s.entries)
	entry := s.entries[index]

	content := s.renderEntry(ctx, entry)
	if content == "" {
		// A failed or empty generation still consumes the slot; the same
		// prompt will come around again on a later lap.
		s.logger.Warn("Autopost entry produced no content, skipping",
			zap.Int("index", index),
			zap.String("entry", entry.Source))
		s.skip(st, index, now)
		return
	}

	content = state.CollapseWhitespace(s.renderer.Render(content))
	if runes := []rune(content); len(runes) > s.hardLimit {
		s.logger.Warn("Autopost content truncated to tweet limit",
			zap.Int("index", index),
			zap.Int("length", len(runes)),
			zap.Int("limit", s.hardLimit))
		content = string(runes[:s.hardLimit])
	}

	fingerprint := state.Fingerprint(content)
	if containsHash(st.Autopost.RecentHashes, fingerprint) {
		s.logger.Info("Autopost content is a recent duplicate, skipping",
			zap.Int("index", index),
			zap.String("fingerprint", fingerprint))
		s.skip(st, index, now)
		return
	}

	tweetID, err := s.poster.CreateTweet(ctx, content, twitter.TweetOptions{})
	if err != nil {
		// No cursor movement: the same entry is retried on the next trigger.
		s.logger.Error("Autopost send failed",
			zap.Error(err),
			zap.Int("index", index),
			zap.String("preview", preview(content)))
		return
	}

	s.logger.Info("Autopost sent",
		zap.Uint64("tweet_id", tweetID),
		zap.Int("index", index),
		zap.String("preview", preview(content)))

	st.Autopost.RecentHashes = append(st.Autopost.RecentHashes, fingerprint)
	if len(st.Autopost.RecentHashes) > s.recentLimit {
		st.Autopost.RecentHashes = st.Autopost.RecentHashes[len(st.Autopost.RecentHashes)-s.recentLimit:]
	}
	s.advance(st, index, now)
}

func (s *Scheduler) renderEntry(ctx context.Context, entry Entry) string {
	switch entry.Kind {
	case Rag:
		prompt := s.renderer.Render(entry.Text)
		text, err := s.generator.GenerateAutopost(ctx, prompt)
		if err != nil {
			s.logger.Error("Autopost generation failed",
				zap.Error(err),
				zap.String("entry", entry.Source))
			return ""
		}
		return text
	default:
		return entry.Text
	}
}

func (s *Scheduler) skip(st *models.AgentState, index int, now time.Time) {
	s.advance(st, index, now)
}

func (s *Scheduler) advance(st *models.AgentState, index int, now time.Time) {
	st.Autopost.NextIndex = uint32((index + 1) % len(s.entries))
	st.Autopost.LastTimestamp = float64(now.UnixNano()) / float64(time.Second)
	if err := s.saver.Save(*st); err != nil {
		s.logger.Error("Failed to persist autopost state", zap.Error(err))
	}
}

func containsHash(hashes []string, target string) bool {
	for _, h := range hashes {
		if h == target {
			return true
		}
	}
	return false
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > 60 {
		return string(runes[:60]) + "…"
	}
	return text
}
