package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/wamtrack/internal/grading"
	syncx "github.com/mind-engage/wamtrack/internal/sync"
)

// Service is the write path (store + audit log) and the read path for
// computed reports.
type Service struct {
	store    Store
	events   syncx.Log
	scheme   grading.Scheme
	onReport func(kind string)
}

type Option func(*Service)

func WithEventLog(l syncx.Log) Option            { return func(s *Service) { s.events = l } }
func WithScheme(sc grading.Scheme) Option        { return func(s *Service) { s.scheme = sc } }
func WithReportHook(fn func(kind string)) Option { return func(s *Service) { s.onReport = fn } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, scheme: grading.DefaultScheme()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Scheme() grading.Scheme { return s.scheme }

func (s *Service) record(ctx context.Context, typ, key string, v any) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("{}")
	}
	if err := s.events.Append(ctx, syncx.Event{Type: typ, Key: key, DataJSON: string(data)}); err != nil {
		// audit failures never fail the user's write
		log.Printf("event log: %s %s: %v", typ, key, err)
	}
}

// ---- users ----

func (s *Service) RegisterUser(ctx context.Context, u User) (User, error) {
	if err := Validate(u); err != nil {
		return User{}, err
	}
	u, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, syncx.UserRegistered, userKey(u.ID), u)
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) { return s.store.GetUser(ctx, id) }

func (s *Service) GetUserByStudentID(ctx context.Context, studentID string) (User, error) {
	return s.store.GetUserByStudentID(ctx, studentID)
}

func (s *Service) ListUsers(ctx context.Context, opts ListOpts) ([]User, error) {
	return s.store.ListUsers(ctx, opts)
}

func (s *Service) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return s.store.UpdatePassword(ctx, id, hash)
}

// SetRole changes a user's role. Demoting the only admin fails with
// ErrLastAdmin.
func (s *Service) SetRole(ctx context.Context, id int64, role string) (User, error) {
	if role != RoleStudent && role != RoleAdmin {
		return User{}, fmt.Errorf("role %q: %w", role, ErrInvalidRole)
	}
	if err := s.store.UpdateRole(ctx, id, role); err != nil {
		return User{}, err
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, syncx.UserRoleChanged, userKey(id), map[string]any{"id": id, "role": role})
	return u, nil
}

// DeleteUser removes a user with all their subjects and assessments. The
// only admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, syncx.UserDeleted, userKey(id), map[string]int64{"id": id})
	return nil
}

// UserExport is everything stored about one user.
type UserExport struct {
	User     User            `json:"user"`
	Subjects []SubjectExport `json:"subjects"`
}

type SubjectExport struct {
	Subject
	Assessments []Assessment `json:"assessments"`
}

// ExportUser collects a user's records for a data export.
func (s *Service) ExportUser(ctx context.Context, id int64) (UserExport, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return UserExport{}, err
	}
	subjects, err := s.store.ListSubjects(ctx, id, "")
	if err != nil {
		return UserExport{}, fmt.Errorf("export user %d: %w", id, err)
	}
	out := UserExport{User: u, Subjects: make([]SubjectExport, len(subjects))}
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(4)
	for i, sb := range subjects {
		i, sb := i, sb
		grp.Go(func() error {
			as, err := s.store.ListAssessments(gctx, sb.ID)
			if err != nil {
				return err
			}
			out.Subjects[i] = SubjectExport{Subject: sb, Assessments: as}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return UserExport{}, fmt.Errorf("export user %d: %w", id, err)
	}
	return out, nil
}

// ---- subjects ----

func (s *Service) ListSubjects(ctx context.Context, userID int64, semester string) ([]Subject, error) {
	return s.store.ListSubjects(ctx, userID, semester)
}

func (s *Service) GetSubject(ctx context.Context, id int64) (Subject, error) {
	return s.store.GetSubject(ctx, id)
}

func (s *Service) CreateSubject(ctx context.Context, sb Subject) (Subject, error) {
	if err := Validate(sb); err != nil {
		return Subject{}, err
	}
	sb, err := s.store.CreateSubject(ctx, sb)
	if err != nil {
		return Subject{}, err
	}
	s.record(ctx, syncx.SubjectCreated, subjectKey(sb.ID), sb)
	return sb, nil
}

func (s *Service) UpdateSubject(ctx context.Context, sb Subject) (Subject, error) {
	if err := Validate(sb); err != nil {
		return Subject{}, err
	}
	sb, err := s.store.UpdateSubject(ctx, sb)
	if err != nil {
		return Subject{}, err
	}
	s.record(ctx, syncx.SubjectUpdated, subjectKey(sb.ID), sb)
	return sb, nil
}

func (s *Service) DeleteSubject(ctx context.Context, id int64) error {
	if err := s.store.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.record(ctx, syncx.SubjectDeleted, subjectKey(id), map[string]int64{"id": id})
	return nil
}

// ---- assessments ----

func (s *Service) ListAssessments(ctx context.Context, subjectID int64) ([]Assessment, error) {
	return s.store.ListAssessments(ctx, subjectID)
}

func (s *Service) GetAssessment(ctx context.Context, id int64) (Assessment, error) {
	return s.store.GetAssessment(ctx, id)
}

func (s *Service) CreateAssessment(ctx context.Context, a Assessment) (Assessment, error) {
	if err := Validate(a); err != nil {
		return Assessment{}, err
	}
	a, err := s.store.CreateAssessment(ctx, a)
	if err != nil {
		return Assessment{}, err
	}
	s.record(ctx, syncx.AssessmentCreated, assessmentKey(a.ID), a)
	return a, nil
}

func (s *Service) UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error) {
	if err := Validate(a); err != nil {
		return Assessment{}, err
	}
	a, err := s.store.UpdateAssessment(ctx, a)
	if err != nil {
		return Assessment{}, err
	}
	s.record(ctx, syncx.AssessmentUpdated, assessmentKey(a.ID), a)
	return a, nil
}

func (s *Service) DeleteAssessment(ctx context.Context, id int64) error {
	if err := s.store.DeleteAssessment(ctx, id); err != nil {
		return err
	}
	s.record(ctx, syncx.AssessmentDeleted, assessmentKey(id), map[string]int64{"id": id})
	return nil
}

// SubjectOwner resolves the user that owns a subject.
func (s *Service) SubjectOwner(ctx context.Context, subjectID int64) (int64, error) {
	sb, err := s.store.GetSubject(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	return sb.UserID, nil
}

// AssessmentOwner resolves the user that owns an assessment via its subject.
func (s *Service) AssessmentOwner(ctx context.Context, assessmentID int64) (int64, error) {
	a, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return 0, err
	}
	return s.SubjectOwner(ctx, a.SubjectID)
}

// ---- reports ----

// SubjectReport loads a subject with its assessments and computes the total,
// its grade and the average still required to reach the target.
func (s *Service) SubjectReport(ctx context.Context, subjectID int64) (SubjectReport, error) {
	var (
		sb Subject
		as []Assessment
	)
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		var err error
		sb, err = s.store.GetSubject(gctx, subjectID)
		return err
	})
	grp.Go(func() error {
		var err error
		as, err = s.store.ListAssessments(gctx, subjectID)
		return err
	})
	if err := grp.Wait(); err != nil {
		return SubjectReport{}, fmt.Errorf("subject report: %w", err)
	}
	s.observe("subject")
	return BuildSubjectReport(s.scheme, sb, as), nil
}

// UserReport computes the overall and per-semester WAM for a user. A
// non-empty semester restricts the report to that semester.
func (s *Service) UserReport(ctx context.Context, userID int64, semester string) (UserReport, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return UserReport{}, err
	}
	subjects, err := s.store.ListSubjects(ctx, userID, semester)
	if err != nil {
		return UserReport{}, fmt.Errorf("user report: %w", err)
	}
	s.observe("user")
	return BuildUserReport(s.scheme, userID, subjects), nil
}

func (s *Service) observe(kind string) {
	if s.onReport != nil {
		s.onReport(kind)
	}
}

func userKey(id int64) string       { return fmt.Sprintf("user:%d", id) }
func subjectKey(id int64) string    { return fmt.Sprintf("subject:%d", id) }
func assessmentKey(id int64) string { return fmt.Sprintf("assessment:%d", id) }

// SubjectKey is the event log key for a subject's mutations.
func SubjectKey(id int64) string { return subjectKey(id) }
