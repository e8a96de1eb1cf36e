package dummydb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// withClass sets the ClassName; callers hold the lock.
func (repo *studentRepository) withClass(stu student.Student) student.Student {
	if cls, ok := repo.db.classes[stu.ClassID]; ok {
		stu.ClassName = cls.Name
	}
	return stu
}

func (repo *studentRepository) codeTaken(code string, exclID int) bool {
	for _, stu := range repo.db.students {
		if stu.Code == code && stu.ID != exclID {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CheckCodeUniqueness(_ context.Context, code string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if repo.codeTaken(code, 0) {
		return student.ErrCodeExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, stu student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.codeTaken(stu.Code, 0) {
		return student.Student{}, student.ErrCodeExists
	}
	if _, ok := repo.db.classes[stu.ClassID]; !ok {
		return student.Student{}, errors.New("class does not exist")
	}
	repo.db.studentSeq++
	stu.ID = repo.db.studentSeq
	stu.ClassName = ""
	repo.db.students[stu.ID] = &stu
	return repo.withClass(stu), nil
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != 0 {
		if stu, ok := repo.db.students[filter.ID]; ok {
			return repo.withClass(*stu), nil
		}
		return student.Student{}, student.ErrNotFound
	}
	if filter.Code != "" {
		for _, stu := range repo.db.students {
			if stu.Code == filter.Code {
				return repo.withClass(*stu), nil
			}
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, stu := range repo.db.students {
		if filter.Search != "" &&
			!core.ContainsFold(stu.Name, filter.Search) &&
			!core.ContainsFold(stu.ParentContact, filter.Search) &&
			!core.ContainsFold(stu.Code, filter.Search) {
			continue
		}
		if filter.ClassID != 0 && stu.ClassID != filter.ClassID {
			continue
		}
		students = append(students, repo.withClass(*stu))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID > students[j].ID })
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, stu student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[stu.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.codeTaken(stu.Code, stu.ID) {
		return student.Student{}, student.ErrCodeExists
	}
	stu.ClassName = ""
	repo.db.students[stu.ID] = &stu
	return repo.withClass(stu), nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students, id)
	// ON DELETE CASCADE
	for recID, rec := range repo.db.payments {
		if rec.StudentID == id {
			delete(repo.db.payments, recID)
		}
	}
	return nil
}
