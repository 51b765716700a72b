// Package votes applies vote transitions and keeps prompt counters in step with vote rows.
package votes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/prompt-board/backend/internal/apperr"
	"github.com/emilythestrangee/prompt-board/backend/internal/events"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

var tracer = otel.Tracer("github.com/emilythestrangee/prompt-board/backend/internal/votes")

// Result is what a vote request produced. Vote is nil when the vote was removed.
type Result struct {
	Prompt models.Prompt `json:"prompt"`
	Vote   *models.Vote  `json:"vote"`
	Action Action        `json:"action"`
}

// Engine is the only code path that writes vote rows or prompt counters.
type Engine struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

func NewEngine(db *gorm.DB, publisher events.Publisher) *Engine {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Engine{db: db, publisher: publisher, now: time.Now}
}

// Apply records userID's vote of value on promptID.
//
// The prompt row is locked for the duration of the transaction, so every
// transition on one prompt is serialised: the vote row read, its write and
// the relative counter update commit together or not at all.
func (e *Engine) Apply(ctx context.Context, userID, promptID string, value int) (*Result, error) {
	if !ValidValue(value) {
		return nil, apperr.New(apperr.InvalidArgument, "Invalid vote value. Must be 1 (upvote) or -1 (downvote)")
	}
	if _, err := uuid.Parse(promptID); err != nil {
		return nil, apperr.New(apperr.NotFound, "Prompt not found")
	}

	ctx, span := tracer.Start(ctx, "votes.Apply", trace.WithAttributes(
		attribute.String("prompt.id", promptID),
		attribute.Int("vote.value", value),
	))
	defer span.End()

	start := e.now()
	var (
		result   Result
		previous = None
	)

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Prompt
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", promptID).
			Take(&locked).Error
		if err != nil {
			return apperr.FromDB(err, "Prompt not found")
		}

		var existing models.Vote
		err = tx.Where("user_id = ? AND prompt_id = ?", userID, promptID).Take(&existing).Error
		switch {
		case err == nil:
			previous = existing.Value
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return apperr.FromDB(err, "Vote not found")
		}

		decision := Decide(previous, value)

		switch decision.Action {
		case ActionCreated:
			vote := models.Vote{UserID: userID, PromptID: promptID, Value: decision.Next}
			if err := tx.Create(&vote).Error; err != nil {
				return apperr.FromDB(err, "")
			}
			result.Vote = &vote
		case ActionRemoved:
			if err := tx.Delete(&existing).Error; err != nil {
				return apperr.FromDB(err, "")
			}
		case ActionChanged:
			if err := tx.Model(&existing).Update("value", decision.Next).Error; err != nil {
				return apperr.FromDB(err, "")
			}
			existing.Value = decision.Next
			result.Vote = &existing
		}

		err = tx.Model(&models.Prompt{}).
			Where("id = ?", promptID).
			UpdateColumns(map[string]any{
				"up_votes":   gorm.Expr("GREATEST(up_votes + ?, 0)", decision.UpDelta),
				"down_votes": gorm.Expr("GREATEST(down_votes + ?, 0)", decision.DownDelta),
			}).Error
		if err != nil {
			return apperr.FromDB(err, "")
		}

		err = tx.Preload("User").Preload("Category").Preload("Model").
			Where("id = ?", promptID).
			Take(&result.Prompt).Error
		if err != nil {
			return apperr.FromDB(err, "Prompt not found")
		}

		result.Action = decision.Action
		return nil
	})
	voteApplyDuration.Observe(e.now().Sub(start).Seconds())

	if err != nil {
		kind := apperr.KindOf(err)
		voteApplyFailuresTotal.WithLabelValues(kind.String()).Inc()
		span.SetStatus(codes.Error, err.Error())
		if kind == apperr.Internal {
			slog.ErrorContext(ctx, "vote transition failed",
				"prompt_id", promptID,
				"user_id", userID,
				"error", err,
			)
		}
		return nil, err
	}

	votesAppliedTotal.WithLabelValues(string(result.Action)).Inc()
	span.SetAttributes(attribute.String("vote.action", string(result.Action)))

	next := None
	if result.Vote != nil {
		next = result.Vote.Value
	}
	event := events.VoteEvent{
		PromptID:   promptID,
		UserID:     userID,
		Action:     string(result.Action),
		Value:      next,
		Previous:   previous,
		UpVotes:    result.Prompt.UpVotes,
		DownVotes:  result.Prompt.DownVotes,
		OccurredAt: e.now().UTC(),
	}
	if err := e.publisher.PublishVote(ctx, event); err != nil {
		slog.WarnContext(ctx, "unable to publish vote event", "prompt_id", promptID, "error", err)
	}

	return &result, nil
}

// UserVote returns userID's current vote on promptID, or nil when there is none.
func (e *Engine) UserVote(ctx context.Context, userID, promptID string) (*models.Vote, error) {
	if _, err := uuid.Parse(promptID); err != nil {
		return nil, nil
	}

	var vote models.Vote
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND prompt_id = ?", userID, promptID).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}
	return &vote, nil
}

// UserVotes returns userID's votes on the given prompts keyed by prompt id.
// Prompts without a vote are absent from the map.
func (e *Engine) UserVotes(ctx context.Context, userID string, promptIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(promptIDs))
	if userID == "" || len(promptIDs) == 0 {
		return out, nil
	}

	var rows []models.Vote
	err := e.db.WithContext(ctx).
		Select("prompt_id", "value").
		Where("user_id = ? AND prompt_id IN ?", userID, promptIDs).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}

	for _, v := range rows {
		out[v.PromptID] = v.Value
	}
	return out, nil
}
