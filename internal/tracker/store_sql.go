package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type SQLStore struct {
	db       *sql.DB
	lockRows bool
}

type SQLOption func(*SQLStore)

// WithRowLocks makes admin guards take SELECT ... FOR UPDATE row locks.
// Postgres needs it; sqlite already serialises writers and lacks the syntax.
func WithRowLocks() SQLOption { return func(s *SQLStore) { s.lockRows = true } }

func NewSQLStore(db *sql.DB, opts ...SQLOption) *SQLStore {
	s := &SQLStore{db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ---- users ----

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.Role == "" {
		u.Role = RoleStudent
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE student_id=$1`, u.StudentID).Scan(new(int)); err == nil {
		return User{}, fmt.Errorf("student id %q: %w", u.StudentID, ErrConflict)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return User{}, err
	}

	u.CreatedAt = time.Now().Unix()
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (name, student_id, password_hash, role, created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		u.Name, u.StudentID, u.PasswordHash, u.Role, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		return User{}, err
	}
	return u, tx.Commit()
}

const userCols = `id, name, student_id, password_hash, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.StudentID, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

func (s *SQLStore) GetUserByStudentID(ctx context.Context, studentID string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE student_id=$1`, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("student id %q: %w", studentID, ErrNotFound)
	}
	return u, err
}

func (s *SQLStore) ListUsers(ctx context.Context, opts ListOpts) ([]User, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	q := `SELECT ` + userCols + ` FROM users`
	args := []any{}
	if needle := strings.TrimSpace(opts.Q); needle != "" {
		q += ` WHERE LOWER(name) LIKE $1 OR LOWER(student_id) LIKE $1`
		args = append(args, "%"+strings.ToLower(needle)+"%")
	}
	args = append(args, opts.Limit, opts.Offset)
	q += fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "user", id)
}

func (s *SQLStore) UpdateRole(ctx context.Context, id int64, role string) error {
	return s.guardLastAdmin(ctx, id, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, id)
		return err
	})
}

func (s *SQLStore) DeleteUser(ctx context.Context, id int64) error {
	return s.guardLastAdmin(ctx, id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM assessments WHERE subject_id IN (SELECT id FROM subjects WHERE user_id=$1)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE user_id=$1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
		return err
	})
}

// guardLastAdmin runs write for user id in one transaction and rolls it back
// with ErrLastAdmin when no admin would remain.
func (s *SQLStore) guardLastAdmin(ctx context.Context, id int64, write func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if s.lockRows {
		// concurrent demotions queue here; each sees the other's commit
		var rows *sql.Rows
		rows, err = tx.QueryContext(ctx, `SELECT id FROM users WHERE role=$1 ORDER BY id FOR UPDATE`, RoleAdmin)
		if err != nil {
			return err
		}
		for rows.Next() {
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return err
		}
	}
	var role string
	err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if err = write(tx); err != nil {
		return err
	}
	if role != RoleAdmin {
		return nil
	}
	var n int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role=$1`, RoleAdmin).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrLastAdmin
	}
	return nil
}

// ---- subjects ----

const subjectCols = `id, user_id, name, semester, hurdle, score, weight, target_score, assessments_list`

func scanSubject(row interface{ Scan(...any) error }) (Subject, error) {
	var sb Subject
	err := row.Scan(&sb.ID, &sb.UserID, &sb.Name, &sb.Semester,
		&sb.Hurdle, &sb.Score, &sb.Weight, &sb.TargetScore, &sb.AssessmentsList)
	return sb, err
}

func (s *SQLStore) ListSubjects(ctx context.Context, userID int64, semester string) ([]Subject, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if semester == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+subjectCols+` FROM subjects WHERE user_id=$1 ORDER BY id`, userID)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+subjectCols+` FROM subjects WHERE user_id=$1 AND semester=$2 ORDER BY id`, userID, semester)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subject{}
	for rows.Next() {
		sb, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetSubject(ctx context.Context, id int64) (Subject, error) {
	sb, err := scanSubject(s.db.QueryRowContext(ctx, `SELECT `+subjectCols+` FROM subjects WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, fmt.Errorf("subject %d: %w", id, ErrNotFound)
	}
	return sb, err
}

func (s *SQLStore) CreateSubject(ctx context.Context, sb Subject) (Subject, error) {
	// ensure owner exists
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=$1`, sb.UserID).Scan(new(int)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, fmt.Errorf("user %d: %w", sb.UserID, ErrNotFound)
		}
		return Subject{}, err
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO subjects (user_id, name, semester, hurdle, score, weight, target_score, assessments_list, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		sb.UserID, sb.Name, sb.Semester, sb.Hurdle, sb.Score, sb.Weight, sb.TargetScore,
		sb.AssessmentsList, time.Now().Unix()).Scan(&sb.ID)
	if err != nil {
		return Subject{}, err
	}
	return sb, nil
}

func (s *SQLStore) UpdateSubject(ctx context.Context, sb Subject) (Subject, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subjects SET name=$1, semester=$2, hurdle=$3, score=$4, weight=$5, target_score=$6, assessments_list=$7
		 WHERE id=$8`,
		sb.Name, sb.Semester, sb.Hurdle, sb.Score, sb.Weight, sb.TargetScore, sb.AssessmentsList, sb.ID)
	if err != nil {
		return Subject{}, err
	}
	if err := mustAffect(res, "subject", sb.ID); err != nil {
		return Subject{}, err
	}
	return s.GetSubject(ctx, sb.ID)
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id int64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM assessments WHERE subject_id=$1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "subject", id)
}

// ---- assessments ----

const assessmentCols = `id, subject_id, name, description, hurdle, rate, score`

func scanAssessment(row interface{ Scan(...any) error }) (Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.SubjectID, &a.Name, &a.Description, &a.Hurdle, &a.Rate, &a.Score)
	return a, err
}

func (s *SQLStore) ListAssessments(ctx context.Context, subjectID int64) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assessmentCols+` FROM assessments WHERE subject_id=$1 ORDER BY id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetAssessment(ctx context.Context, id int64) (Assessment, error) {
	a, err := scanAssessment(s.db.QueryRowContext(ctx, `SELECT `+assessmentCols+` FROM assessments WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Assessment{}, fmt.Errorf("assessment %d: %w", id, ErrNotFound)
	}
	return a, err
}

func (s *SQLStore) CreateAssessment(ctx context.Context, a Assessment) (Assessment, error) {
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE id=$1`, a.SubjectID).Scan(new(int)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, fmt.Errorf("subject %d: %w", a.SubjectID, ErrNotFound)
		}
		return Assessment{}, err
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO assessments (subject_id, name, description, hurdle, rate, score, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		a.SubjectID, a.Name, a.Description, a.Hurdle, a.Rate, a.Score, time.Now().Unix()).Scan(&a.ID)
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (s *SQLStore) UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessments SET name=$1, description=$2, hurdle=$3, rate=$4, score=$5 WHERE id=$6`,
		a.Name, a.Description, a.Hurdle, a.Rate, a.Score, a.ID)
	if err != nil {
		return Assessment{}, err
	}
	if err := mustAffect(res, "assessment", a.ID); err != nil {
		return Assessment{}, err
	}
	return s.GetAssessment(ctx, a.ID)
}

func (s *SQLStore) DeleteAssessment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "assessment", id)
}

func mustAffect(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
