package services

import (
	"testing"

	"groupfinder/internal/db/dbtest"
	"groupfinder/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db           *gorm.DB
	notifier     *NotificationService
	reputation   *ReputationService
	aggregator   *Aggregator
	verification *VerificationService
	groups       *GroupService
	reports      *ReportService
	users        *UserService
	ranking      *recordingRescorer
}

type recordingRescorer struct {
	scheduled []uint
}

func (r *recordingRescorer) ScheduleUpdate(groupID uint) {
	r.scheduled = append(r.scheduled, groupID)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	log := zap.NewNop()

	f := &fixture{db: gdb, ranking: &recordingRescorer{}}
	f.notifier = NewNotificationService(gdb)
	f.reputation = NewReputationService(gdb, log, f.notifier)
	f.aggregator = NewAggregator(gdb, log, f.reputation, f.ranking)
	f.verification = NewVerificationService(gdb, log, f.reputation, f.notifier)
	f.groups = NewGroupService(gdb, log, f.reputation, f.notifier, f.ranking)
	f.reports = NewReportService(gdb, log, f.reputation, f.notifier)
	f.users = NewUserService(gdb, log, f.reputation)
	return f
}

func (f *fixture) reloadGroup(t *testing.T, id uint) models.Group {
	t.Helper()
	var g models.Group
	if err := f.db.First(&g, id).Error; err != nil {
		t.Fatalf("reload group: %v", err)
	}
	return g
}

func (f *fixture) reloadUser(t *testing.T, id uint) models.User {
	t.Helper()
	var u models.User
	if err := f.db.First(&u, id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}
