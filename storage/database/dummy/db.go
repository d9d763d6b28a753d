package dummydb

import (
	"sync"

	"github.com/trezcool/todoapp/core/todo"
	"github.com/trezcool/todoapp/core/user"
)

type (
	// DB is an in-memory database, used in tests.
	DB struct {
		user *userTable
		todo *todoTable
	}

	userTable struct {
		sync.RWMutex
		pkCount int
		table   map[int]*user.User
	}

	todoTable struct {
		sync.RWMutex
		pkCount int
		table   map[int]*todo.Todo
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[int]*user.User)},
		todo: &todoTable{table: make(map[int]*todo.Todo)},
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[int]*user.User)
	db.user.Unlock()

	db.todo.Lock()
	db.todo.table = make(map[int]*todo.Todo)
	db.todo.Unlock()
}
