package services

import (
	"context"
	"errors"
	"fmt"

	"groupfinder/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type VoteOutcome string

const (
	VoteCreated         VoteOutcome = "created"
	VoteChanged         VoteOutcome = "changed"
	VoteUnchanged       VoteOutcome = "unchanged"
	VoteRemoved         VoteOutcome = "removed"
	VoteNothingToRemove VoteOutcome = "nothing_to_remove"
)

func (o VoteOutcome) Message() string {
	switch o {
	case VoteCreated:
		return "Vote recorded"
	case VoteChanged:
		return "Vote changed"
	case VoteUnchanged:
		return "Vote already recorded"
	case VoteRemoved:
		return "Vote removed"
	case VoteNothingToRemove:
		return "Nothing to remove"
	}
	return ""
}

// VoteResult carries the group counters after the vote was applied.
type VoteResult struct {
	Outcome   VoteOutcome `json:"status"`
	Upvotes   int         `json:"upvotes"`
	Downvotes int         `json:"downvotes"`
}

// Aggregator owns the vote and review fact tables and the summary columns
// derived from them on Group.
type Aggregator struct {
	db         *gorm.DB
	log        *zap.Logger
	reputation *ReputationService
	ranking    Rescorer
}

func NewAggregator(db *gorm.DB, log *zap.Logger, reputation *ReputationService, ranking Rescorer) *Aggregator {
	return &Aggregator{db: db, log: log, reputation: reputation, ranking: ranking}
}

// CastVote applies an up, down or remove vote by userID on groupID. The vote
// row and the counters change in one transaction, and counters only move by
// atomic increments that never go below zero.
func (a *Aggregator) CastVote(ctx context.Context, groupID, userID uint, voteType models.VoteType) (*VoteResult, error) {
	if !voteType.Valid() {
		return nil, ErrInvalidVoteType
	}

	result := &VoteResult{}
	var voteID uint

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}

		var existing models.Vote
		err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		hasVote := err == nil

		switch {
		case voteType == models.VoteRemove && !hasVote:
			result.Outcome = VoteNothingToRemove

		case voteType == models.VoteRemove:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := decrementCounter(tx, groupID, existing.VoteType); err != nil {
				return err
			}
			result.Outcome = VoteRemoved

		case !hasVote:
			vote := models.Vote{GroupID: groupID, UserID: userID, VoteType: voteType}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			if err := incrementCounter(tx, groupID, voteType); err != nil {
				return err
			}
			voteID = vote.ID
			result.Outcome = VoteCreated

		case existing.VoteType == voteType:
			result.Outcome = VoteUnchanged

		default:
			previous := existing.VoteType
			if err := tx.Model(&existing).Update("vote_type", voteType).Error; err != nil {
				return err
			}
			if err := decrementCounter(tx, groupID, previous); err != nil {
				return err
			}
			if err := incrementCounter(tx, groupID, voteType); err != nil {
				return err
			}
			result.Outcome = VoteChanged
		}

		var counters models.Group
		if err := tx.Select("id", "upvotes", "downvotes").First(&counters, groupID).Error; err != nil {
			return err
		}
		result.Upvotes = counters.Upvotes
		result.Downvotes = counters.Downvotes
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == VoteCreated && a.reputation != nil {
		if _, err := a.reputation.AwardCapped(ctx, userID, PointsVote, ReasonVoteCast, models.SourceVote, &voteID); err != nil {
			a.log.Warn("failed to award vote reputation", zap.Uint("user_id", userID), zap.Uint("group_id", groupID), zap.Error(err))
		}
	}
	if result.Outcome != VoteUnchanged && result.Outcome != VoteNothingToRemove {
		a.rescore(groupID)
	}
	return result, nil
}

// RecountVotes rebuilds the counters of a group from its vote rows.
func (a *Aggregator) RecountVotes(ctx context.Context, groupID uint) (*VoteResult, error) {
	result := &VoteResult{Outcome: VoteUnchanged}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}

		var up, down int64
		if err := tx.Model(&models.Vote{}).Where("group_id = ? AND vote_type = ?", groupID, models.VoteUp).Count(&up).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Vote{}).Where("group_id = ? AND vote_type = ?", groupID, models.VoteDown).Count(&down).Error; err != nil {
			return err
		}

		result.Upvotes, result.Downvotes = int(up), int(down)
		return tx.Model(&models.Group{}).Where("id = ?", groupID).UpdateColumns(map[string]interface{}{
			"upvotes":   result.Upvotes,
			"downvotes": result.Downvotes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	a.rescore(groupID)
	return result, nil
}

// UserVote returns the caller's current vote on a group, or "" if none.
func (a *Aggregator) UserVote(ctx context.Context, groupID, userID uint) (models.VoteType, error) {
	var vote models.Vote
	err := a.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return vote.VoteType, nil
}

func (a *Aggregator) rescore(groupID uint) {
	if a.ranking != nil {
		a.ranking.ScheduleUpdate(groupID)
	}
}

func groupExists(tx *gorm.DB, groupID uint) error {
	var count int64
	if err := tx.Model(&models.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func incrementCounter(tx *gorm.DB, groupID uint, t models.VoteType) error {
	col := t.Counter()
	return tx.Model(&models.Group{}).Where("id = ?", groupID).
		UpdateColumn(col, gorm.Expr(col+" + 1")).Error
}

func decrementCounter(tx *gorm.DB, groupID uint, t models.VoteType) error {
	col := t.Counter()
	return tx.Model(&models.Group{}).Where("id = ?", groupID).
		UpdateColumn(col, gorm.Expr(fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", col, col))).Error
}
