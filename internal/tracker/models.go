package tracker

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/wamtrack/internal/grading"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name" validate:"required,max=200"`
	StudentID    string `json:"student_id" validate:"required,max=64"`
	Role         string `json:"role" validate:"omitempty,oneof=student admin"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

type Subject struct {
	ID              int64  `json:"id"`
	Name            string `json:"name" validate:"required,max=200"`
	Semester        string `json:"semester" validate:"max=100"`
	Hurdle          Number `json:"hurdle" validate:"omitempty,gte=0,lte=100"`
	Score           Number `json:"score" validate:"omitempty,gte=0,lte=100"`
	Weight          Number `json:"weight" validate:"omitempty,gte=0"`
	TargetScore     Number `json:"target_score" validate:"omitempty,gte=0,lte=100"`
	AssessmentsList string `json:"assessments_list,omitempty"`
	UserID          int64  `json:"user_id"`
}

// Item feeds the subject into WAM calculations.
func (s Subject) Item() grading.Item { return grading.NewItem(s.Weight.Ptr(), s.Score.Ptr()) }

type Assessment struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Hurdle      Number `json:"hurdle" validate:"omitempty,gte=0,lte=100"`
	Rate        Number `json:"rate" validate:"omitempty,gte=0,lte=100"`
	Score       Number `json:"score" validate:"omitempty,gte=0,lte=100"`
	SubjectID   int64  `json:"subject_id"`
}

// Item feeds the assessment into subject total calculations.
func (a Assessment) Item() grading.Item { return grading.NewItem(a.Rate.Ptr(), a.Score.Ptr()) }

// ListOpts pages through users.
type ListOpts struct {
	Q      string
	Limit  int
	Offset int
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		n, ok := f.Interface().(Number)
		if !ok || !n.Valid {
			return nil
		}
		return n.Float
	}, Number{})
	return v
}

// Validate runs struct tag validation on a user, subject or assessment.
func Validate(v any) error { return validate.Struct(v) }
