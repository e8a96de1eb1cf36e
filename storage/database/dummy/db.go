package dummydb

import (
	"sync"

	"github.com/trezcool/karo/core/class"
	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
)

// DB is an in-memory database honouring the constraints of the postgres schema.
// One lock guards every table, as foreign keys cross them.
type DB struct {
	mu sync.RWMutex

	users    map[string]*user.User
	classes  map[int]*class.Class
	students map[int]*student.Student
	payments map[int]*payment.Record

	classSeq   int
	studentSeq int
	paymentSeq int
}

func Open() *DB {
	return &DB{
		users:    make(map[string]*user.User),
		classes:  make(map[int]*class.Class),
		students: make(map[int]*student.Student),
		payments: make(map[int]*payment.Record),
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = make(map[string]*user.User)
	db.classes = make(map[int]*class.Class)
	db.students = make(map[int]*student.Student)
	db.payments = make(map[int]*payment.Record)
}
