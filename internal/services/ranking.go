package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"groupfinder/internal/models"
	"groupfinder/internal/utils"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Rescorer queues a group for a hot-rank refresh.
type Rescorer interface {
	ScheduleUpdate(groupID uint)
}

// RankingService recomputes Group.Score in the background. Updates for the
// same group are de-duplicated while queued.
type RankingService struct {
	db      *gorm.DB
	log     *zap.Logger
	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex
}

const (
	rankQueueSize = 1000
	rankBatchSize = 50
	rankInterval  = 500 * time.Millisecond

	rescoreWorkers = 4
)

func NewRankingService(db *gorm.DB, log *zap.Logger) *RankingService {
	return &RankingService{
		db:      db,
		log:     log,
		queue:   make(chan uint, rankQueueSize),
		pending: make(map[uint]bool),
	}
}

// Start runs the worker until ctx is cancelled.
func (s *RankingService) Start(ctx context.Context) {
	go s.worker(ctx)
}

// ScheduleUpdate 将小组加入更新队列（异步）
func (s *RankingService) ScheduleUpdate(groupID uint) {
	s.mu.Lock()
	if s.pending[groupID] {
		s.mu.Unlock()
		return
	}
	s.pending[groupID] = true
	s.mu.Unlock()

	select {
	case s.queue <- groupID:
	default:
		s.mu.Lock()
		delete(s.pending, groupID)
		s.mu.Unlock()
		s.log.Warn("ranking queue full, skipping group", zap.Uint("group_id", groupID))
	}
}

func (s *RankingService) worker(ctx context.Context) {
	batch := make([]uint, 0, rankBatchSize)
	ticker := time.NewTicker(rankInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case groupID := <-s.queue:
			batch = append(batch, groupID)
			if len(batch) >= rankBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *RankingService) processBatch(ctx context.Context, groupIDs []uint) {
	for _, groupID := range groupIDs {
		s.mu.Lock()
		delete(s.pending, groupID)
		s.mu.Unlock()

		if err := s.UpdateScore(ctx, groupID); err != nil {
			s.log.Warn("failed to update group score", zap.Uint("group_id", groupID), zap.Error(err))
		}
	}
}

// UpdateScore recomputes one group's score synchronously.
func (s *RankingService) UpdateScore(ctx context.Context, groupID uint) error {
	db := s.db.WithContext(ctx)

	var group models.Group
	if err := db.First(&group, groupID).Error; err != nil {
		return err
	}

	var saves int64
	if err := db.Model(&models.SavedGroup{}).Where("group_id = ?", groupID).Count(&saves).Error; err != nil {
		return err
	}

	score := utils.CalculateScore(utils.RankInput{
		CreatedAt:     group.CreatedAt,
		Upvotes:       group.Upvotes,
		Downvotes:     group.Downvotes,
		Saves:         int(saves),
		Reviews:       group.ReviewCount,
		AverageRating: group.AverageRating,
	}, time.Now())

	return db.Model(&models.Group{}).Where("id = ?", groupID).UpdateColumn("score", int(score)).Error
}

// RescoreAll refreshes every group with a bounded number of workers. Used by
// the daily job.
func (s *RankingService) RescoreAll(ctx context.Context) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		s.log.Error("failed to list groups for rescoring", zap.Error(err))
		return
	}

	var failed atomic.Int64
	p := pool.New().WithContext(ctx).WithMaxGoroutines(rescoreWorkers)
	for _, id := range ids {
		p.Go(func(ctx context.Context) error {
			if err := s.UpdateScore(ctx, id); err != nil {
				failed.Add(1)
				s.log.Warn("failed to update group score", zap.Uint("group_id", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = p.Wait()

	s.log.Info("group scores refreshed", zap.Int("groups", len(ids)), zap.Int64("failed", failed.Load()))
}

// StartScheduledRescore 启动定时分数更新任务（每天凌晨 3 点执行）
func (s *RankingService) StartScheduledRescore(ctx context.Context) {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
				s.RescoreAll(ctx)
			}
		}
	}()
}
