package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/karo/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.classSeq++
	cls.ID = repo.db.classSeq
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) GetClass(_ context.Context, id int) (class.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClasses(_ context.Context) ([]class.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]class.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		classes = append(classes, *cls)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return class.ErrNotFound
	}
	for _, stu := range repo.db.students {
		if stu.ClassID == id {
			return class.ErrHasStudents
		}
	}
	delete(repo.db.classes, id)
	return nil
}
