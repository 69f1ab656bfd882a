package tracker_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/wamtrack/internal/db"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

var dbSeq atomic.Int64

func newSQLiteStore(t *testing.T) *tracker.SQLStore {
	t.Helper()
	dsn := fmt.Sprintf("file:tracker%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", dbSeq.Add(1))
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return tracker.NewSQLStore(h)
}

func stores(t *testing.T) map[string]tracker.Store {
	return map[string]tracker.Store{
		"memory": tracker.NewInMemoryStore(),
		"sqlite": newSQLiteStore(t),
	}
}

func TestStoreUsers(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u, err := st.CreateUser(ctx, tracker.User{Name: "Ada", StudentID: "s100", PasswordHash: "h"})
			require.NoError(t, err)
			assert.NotZero(t, u.ID)
			assert.Equal(t, tracker.RoleStudent, u.Role)

			_, err = st.CreateUser(ctx, tracker.User{Name: "Other", StudentID: "s100", PasswordHash: "h"})
			assert.ErrorIs(t, err, tracker.ErrConflict)

			got, err := st.GetUserByStudentID(ctx, "s100")
			require.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)
			assert.Equal(t, "h", got.PasswordHash)

			_, err = st.GetUserByStudentID(ctx, "nobody")
			assert.ErrorIs(t, err, tracker.ErrNotFound)

			require.NoError(t, st.UpdatePassword(ctx, u.ID, "h2"))
			got, err = st.GetUser(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, "h2", got.PasswordHash)
			assert.ErrorIs(t, st.UpdatePassword(ctx, 9999, "x"), tracker.ErrNotFound)

			_, err = st.CreateUser(ctx, tracker.User{Name: "Grace", StudentID: "s200", PasswordHash: "h"})
			require.NoError(t, err)
			list, err := st.ListUsers(ctx, tracker.ListOpts{})
			require.NoError(t, err)
			assert.Len(t, list, 2)
			list, err = st.ListUsers(ctx, tracker.ListOpts{Q: "grac"})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "s200", list[0].StudentID)
			list, err = st.ListUsers(ctx, tracker.ListOpts{Limit: 1, Offset: 1})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "Grace", list[0].Name)
		})
	}
}

func TestStoreSubjectsAndAssessments(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u, err := st.CreateUser(ctx, tracker.User{Name: "Ada", StudentID: "s1", PasswordHash: "h"})
			require.NoError(t, err)

			_, err = st.CreateSubject(ctx, tracker.Subject{Name: "Ghost", UserID: 4242})
			assert.ErrorIs(t, err, tracker.ErrNotFound)

			s1, err := st.CreateSubject(ctx, tracker.Subject{
				Name: "Algorithms", Semester: "2024 S1", Weight: tracker.Num(12.5), TargetScore: tracker.Num(75), UserID: u.ID,
			})
			require.NoError(t, err)
			s2, err := st.CreateSubject(ctx, tracker.Subject{Name: "Databases", Semester: "2024 S2", UserID: u.ID})
			require.NoError(t, err)

			all, err := st.ListSubjects(ctx, u.ID, "")
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, s1.ID, all[0].ID)
			assert.Equal(t, tracker.Num(12.5), all[0].Weight)
			assert.False(t, all[0].Score.Valid)

			sem, err := st.ListSubjects(ctx, u.ID, "2024 S2")
			require.NoError(t, err)
			require.Len(t, sem, 1)
			assert.Equal(t, "Databases", sem[0].Name)

			s1.Score = tracker.Num(81)
			s1.Name = "Algorithms II"
			upd, err := st.UpdateSubject(ctx, s1)
			require.NoError(t, err)
			assert.Equal(t, "Algorithms II", upd.Name)
			assert.Equal(t, tracker.Num(81), upd.Score)

			_, err = st.UpdateSubject(ctx, tracker.Subject{ID: 9999, Name: "x"})
			assert.ErrorIs(t, err, tracker.ErrNotFound)

			_, err = st.CreateAssessment(ctx, tracker.Assessment{Name: "Orphan", SubjectID: 9999})
			assert.ErrorIs(t, err, tracker.ErrNotFound)

			a1, err := st.CreateAssessment(ctx, tracker.Assessment{Name: "Quiz", Rate: tracker.Num(20), Score: tracker.Num(90), SubjectID: s1.ID})
			require.NoError(t, err)
			a2, err := st.CreateAssessment(ctx, tracker.Assessment{Name: "Exam", Rate: tracker.Num(80), SubjectID: s1.ID})
			require.NoError(t, err)

			as, err := st.ListAssessments(ctx, s1.ID)
			require.NoError(t, err)
			require.Len(t, as, 2)
			assert.Equal(t, a1.ID, as[0].ID)
			assert.False(t, as[1].Score.Valid)

			a2.Score = tracker.Num(70)
			a2.Description = "final"
			got, err := st.UpdateAssessment(ctx, a2)
			require.NoError(t, err)
			assert.Equal(t, "final", got.Description)
			assert.Equal(t, s1.ID, got.SubjectID)

			require.NoError(t, st.DeleteAssessment(ctx, a1.ID))
			assert.ErrorIs(t, st.DeleteAssessment(ctx, a1.ID), tracker.ErrNotFound)
			_, err = st.GetAssessment(ctx, a1.ID)
			assert.ErrorIs(t, err, tracker.ErrNotFound)

			require.NoError(t, st.DeleteSubject(ctx, s1.ID))
			_, err = st.GetAssessment(ctx, a2.ID)
			assert.ErrorIs(t, err, tracker.ErrNotFound, "assessments go with their subject")
			assert.ErrorIs(t, st.DeleteSubject(ctx, s1.ID), tracker.ErrNotFound)

			left, err := st.ListSubjects(ctx, u.ID, "")
			require.NoError(t, err)
			require.Len(t, left, 1)
			assert.Equal(t, s2.ID, left[0].ID)
		})
	}
}

func TestStoreRolesAndUserDelete(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u, err := st.CreateUser(ctx, tracker.User{Name: "Ada", StudentID: "s1", PasswordHash: "h"})
			require.NoError(t, err)
			other, err := st.CreateUser(ctx, tracker.User{Name: "Grace", StudentID: "s2", PasswordHash: "h"})
			require.NoError(t, err)

			require.NoError(t, st.UpdateRole(ctx, u.ID, tracker.RoleAdmin))
			got, err := st.GetUser(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, tracker.RoleAdmin, got.Role)
			assert.ErrorIs(t, st.UpdateRole(ctx, 9999, tracker.RoleAdmin), tracker.ErrNotFound)

			// the only admin can neither step down nor be removed
			assert.ErrorIs(t, st.UpdateRole(ctx, u.ID, tracker.RoleStudent), tracker.ErrLastAdmin)
			assert.ErrorIs(t, st.DeleteUser(ctx, u.ID), tracker.ErrLastAdmin)
			require.NoError(t, st.UpdateRole(ctx, u.ID, tracker.RoleAdmin), "re-promoting is fine")
			require.NoError(t, st.UpdateRole(ctx, other.ID, tracker.RoleAdmin))

			sb, err := st.CreateSubject(ctx, tracker.Subject{Name: "Algorithms", UserID: u.ID})
			require.NoError(t, err)
			a, err := st.CreateAssessment(ctx, tracker.Assessment{Name: "Quiz", SubjectID: sb.ID})
			require.NoError(t, err)
			keep, err := st.CreateSubject(ctx, tracker.Subject{Name: "Kept", UserID: other.ID})
			require.NoError(t, err)

			require.NoError(t, st.DeleteUser(ctx, u.ID))
			_, err = st.GetUser(ctx, u.ID)
			assert.ErrorIs(t, err, tracker.ErrNotFound)
			_, err = st.GetSubject(ctx, sb.ID)
			assert.ErrorIs(t, err, tracker.ErrNotFound)
			_, err = st.GetAssessment(ctx, a.ID)
			assert.ErrorIs(t, err, tracker.ErrNotFound)
			_, err = st.GetSubject(ctx, keep.ID)
			assert.NoError(t, err)
			assert.ErrorIs(t, st.DeleteUser(ctx, u.ID), tracker.ErrNotFound)
		})
	}
}

func TestStoreConcurrentDemotionsKeepAnAdmin(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var ids []int64
			for _, sid := range []string{"a1", "a2"} {
				u, err := st.CreateUser(ctx, tracker.User{Name: sid, StudentID: sid, Role: tracker.RoleAdmin, PasswordHash: "h"})
				require.NoError(t, err)
				ids = append(ids, u.ID)
			}

			errs := make([]error, len(ids))
			var wg sync.WaitGroup
			for i, id := range ids {
				i, id := i, id
				wg.Add(1)
				go func() {
					defer wg.Done()
					if i == 0 {
						errs[i] = st.UpdateRole(ctx, id, tracker.RoleStudent)
					} else {
						errs[i] = st.DeleteUser(ctx, id)
					}
				}()
			}
			wg.Wait()

			failed := 0
			for _, err := range errs {
				if err != nil {
					assert.ErrorIs(t, err, tracker.ErrLastAdmin)
					failed++
				}
			}
			assert.Equal(t, 1, failed)

			users, err := st.ListUsers(ctx, tracker.ListOpts{})
			require.NoError(t, err)
			admins := 0
			for _, u := range users {
				if u.Role == tracker.RoleAdmin {
					admins++
				}
			}
			assert.Equal(t, 1, admins)
		})
	}
}
