package services

import (
	"context"
	"strings"
	"testing"

	"groupfinder/internal/db/dbtest"
	"groupfinder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	reporter := dbtest.User(t, f.db, "reporter", models.RoleUser)
	admin := dbtest.User(t, f.db, "admin", models.RoleAdmin)
	group := dbtest.Group(t, f.db, owner, "spammy")

	report, err := f.reports.Create(ctx, reporter.ID, group.ID, "  spam links  ")
	require.NoError(t, err)
	assert.Equal(t, "spam links", report.Reason)
	assert.Equal(t, models.ReportOpen, report.Status)

	u := f.reloadUser(t, reporter.ID)
	assert.Equal(t, PointsReport, u.ReputationPoints)

	notes, err := f.notifier.List(ctx, admin.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationTypeReport, notes[0].Type)

	open, err := f.reports.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "spammy", open[0].Group.Name)

	resolved, err := f.reports.Resolve(ctx, report.ID, admin.ID, models.ReportDismissed)
	require.NoError(t, err)
	assert.Equal(t, models.ReportDismissed, resolved.Status)

	open, err = f.reports.List(ctx, models.ReportOpen, 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestReportErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "target")

	_, err := f.reports.Create(ctx, owner.ID, group.ID, " ")
	assert.ErrorIs(t, err, ErrEmptyReason)

	_, err = f.reports.Create(ctx, owner.ID, group.ID, strings.Repeat("x", 201))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.reports.Create(ctx, owner.ID, 8080, "gone")
	assert.ErrorIs(t, err, ErrGroupNotFound)

	_, err = f.reports.Resolve(ctx, 1, owner.ID, "open")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.reports.Resolve(ctx, 1234, owner.ID, models.ReportResolved)
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestCreateReportRejectsMutedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	muted := dbtest.User(t, f.db, "muted", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "reported")

	_, err := f.users.Punish(ctx, muted.ID, models.UserStatusMuted, 3)
	require.NoError(t, err)

	_, err = f.reports.Create(ctx, muted.ID, group.ID, "spam")
	assert.ErrorIs(t, err, ErrUserRestricted)

	var count int64
	f.db.Model(&models.Report{}).Count(&count)
	assert.Zero(t, count)
	assert.Zero(t, f.reloadUser(t, muted.ID).ReputationPoints)
}
