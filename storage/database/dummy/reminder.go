package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/todoapp/core/reminder"
	"github.com/trezcool/todoapp/core/user"
)

type reminderRepository struct {
	user *userTable
	todo *todoTable
}

var _ reminder.Repository = (*reminderRepository)(nil) // interface compliance check

func NewReminderRepository(db *DB) reminder.Repository {
	return &reminderRepository{user: db.user, todo: db.todo}
}

// allEnabledUsers returns the users who opted into daily reminders, ordered by email.
func (repo *reminderRepository) allEnabledUsers() []user.User {
	return repo.filterEnabled(func(user.User) bool { return true })
}

// enabledUsers is allEnabledUsers restricted to the timezone tz.
func (repo *reminderRepository) enabledUsers(tz string) []user.User {
	return repo.filterEnabled(func(u user.User) bool { return u.Timezone == tz })
}

func (repo *reminderRepository) filterEnabled(keep func(user.User) bool) []user.User {
	repo.user.RLock()
	defer repo.user.RUnlock()

	users := make([]user.User, 0)
	for _, u := range repo.user.table {
		if u.DailyReminder && keep(*u) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users
}

func (repo *reminderRepository) QueryTimezones(_ context.Context) ([]string, error) {
	repo.user.RLock()
	defer repo.user.RUnlock()

	seen := make(map[string]struct{})
	tzs := make([]string, 0)
	for _, u := range repo.user.table {
		if _, ok := seen[u.Timezone]; !ok {
			seen[u.Timezone] = struct{}{}
			tzs = append(tzs, u.Timezone)
		}
	}
	sort.Strings(tzs)
	return tzs, nil
}

func (repo *reminderRepository) CountEnabled(_ context.Context, tz string) (int, error) {
	return len(repo.enabledUsers(tz)), nil
}

func (repo *reminderRepository) QueryDigests(_ context.Context, tz string) ([]reminder.Digest, error) {
	users := repo.enabledUsers(tz)

	repo.todo.RLock()
	defer repo.todo.RUnlock()

	digests := make([]reminder.Digest, 0, len(users))
	for _, u := range users {
		var tasks []reminder.Task
		for _, t := range repo.todo.table {
			if t.UserID == u.ID && !t.IsFinished {
				tasks = append(tasks, reminder.Task{ID: t.ID, Title: t.Title, Description: t.Description})
			}
		}
		if len(tasks) == 0 {
			continue
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
		digests = append(digests, reminder.Digest{UserID: u.ID, Username: u.Username, Email: u.Email, Tasks: tasks})
	}
	return digests, nil
}

func (repo *reminderRepository) QueryEmailsByTimezone(_ context.Context) (map[string][]string, error) {
	emails := make(map[string][]string)
	for _, u := range repo.allEnabledUsers() {
		emails[u.Timezone] = append(emails[u.Timezone], u.Email)
	}
	return emails, nil
}
