package tracker

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("already exists")
	ErrLastAdmin   = errors.New("cannot demote the last admin")
	ErrInvalidRole = errors.New("invalid role")
)

type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByStudentID(ctx context.Context, studentID string) (User, error)
	ListUsers(ctx context.Context, opts ListOpts) ([]User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	// UpdateRole and DeleteUser fail with ErrLastAdmin instead of leaving
	// no admin behind; the check and the write are one atomic step.
	UpdateRole(ctx context.Context, id int64, role string) error
	DeleteUser(ctx context.Context, id int64) error // also removes subjects and assessments

	// ListSubjects returns a user's subjects in creation order; an empty
	// semester means all semesters.
	ListSubjects(ctx context.Context, userID int64, semester string) ([]Subject, error)
	GetSubject(ctx context.Context, id int64) (Subject, error)
	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	UpdateSubject(ctx context.Context, s Subject) (Subject, error)
	DeleteSubject(ctx context.Context, id int64) error // also removes its assessments

	ListAssessments(ctx context.Context, subjectID int64) ([]Assessment, error)
	GetAssessment(ctx context.Context, id int64) (Assessment, error)
	CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
	UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error)
	DeleteAssessment(ctx context.Context, id int64) error
}
