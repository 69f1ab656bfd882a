package http

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	authmw "github.com/mind-engage/wamtrack/internal/auth/middleware"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

var validate = validator.New()

type importRow struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	Name      string `json:"name" validate:"max=200"`
	Password  string `json:"password" validate:"omitempty,min=6,max=72"`
	Role      string `json:"role" validate:"omitempty,oneof=student admin"`
}

// POST /users/import
// Accepts a multipart file= (CSV or JSON) or a raw JSON array. New student ids
// are registered; existing ones get their password and role updated. The
// whole batch is checked before anything is written.
func BulkImportUsersHandler(a *authmw.AuthService, svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := readImportRows(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		existing := make(map[string]tracker.User, len(rows))
		seen := make(map[string]bool, len(rows))
		for i := range rows {
			row := &rows[i]
			row.StudentID = strings.TrimSpace(row.StudentID)
			row.Name = strings.TrimSpace(row.Name)
			row.Role = strings.ToLower(strings.TrimSpace(row.Role))
			if err := validate.Struct(row); err != nil {
				respondError(w, http.StatusBadRequest, fmt.Sprintf("row %d: %v", i+1, err))
				return
			}
			if seen[row.StudentID] {
				respondError(w, http.StatusBadRequest, fmt.Sprintf("row %d: duplicate student_id %q", i+1, row.StudentID))
				return
			}
			seen[row.StudentID] = true

			u, err := svc.GetUserByStudentID(r.Context(), row.StudentID)
			switch {
			case err == nil:
				existing[row.StudentID] = u
			case errors.Is(err, tracker.ErrNotFound):
				if row.Name == "" || row.Password == "" {
					respondError(w, http.StatusBadRequest, fmt.Sprintf("row %d: name and password required for new student %q", i+1, row.StudentID))
					return
				}
			default:
				respondErr(w, err)
				return
			}
		}

		inserted, updated := 0, 0
		for _, row := range rows {
			var hash string
			if row.Password != "" {
				if hash, err = a.HashPassword(row.Password); err != nil {
					respondError(w, http.StatusInternalServerError, "hash failed")
					return
				}
			}
			u, ok := existing[row.StudentID]
			if !ok {
				role := row.Role
				if role == "" {
					role = tracker.RoleStudent
				}
				if _, err := svc.RegisterUser(r.Context(), tracker.User{
					Name: row.Name, StudentID: row.StudentID, Role: role, PasswordHash: hash,
				}); err != nil {
					respondErr(w, err)
					return
				}
				inserted++
				continue
			}
			changed := false
			if hash != "" {
				if err := svc.UpdatePassword(r.Context(), u.ID, hash); err != nil {
					respondErr(w, err)
					return
				}
				changed = true
			}
			if row.Role != "" && row.Role != u.Role {
				if _, err := svc.SetRole(r.Context(), u.ID, row.Role); err != nil {
					respondErr(w, err)
					return
				}
				changed = true
			}
			if changed {
				updated++
			}
		}
		respondJSON(w, http.StatusOK, map[string]int{"inserted": inserted, "updated": updated})
	}
}

func readImportRows(r *http.Request) ([]importRow, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var rows []importRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			return nil, errors.New("expected JSON array or multipart file")
		}
		return rows, nil
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("file required")
	}
	defer f.Close()

	// sniff CSV vs JSON by the first non-space byte
	br := bufio.NewReader(f)
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil, errors.New("empty file")
		}
		if b[0] == ' ' || b[0] == '\t' || b[0] == '\r' || b[0] == '\n' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] == '[' {
			var rows []importRow
			if err := json.NewDecoder(br).Decode(&rows); err != nil {
				return nil, errors.New("bad json")
			}
			return rows, nil
		}
		break
	}
	rows, err := parseUsersCSV(br)
	if err != nil {
		return nil, fmt.Errorf("bad csv: %w", err)
	}
	return rows, nil
}

// parseUsersCSV reads a header row naming student_id and name, with optional
// password and role columns, in any order.
func parseUsersCSV(r io.Reader) ([]importRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"student_id", "name"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []importRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := importRow{
			StudentID: rec[idx["student_id"]],
			Name:      rec[idx["name"]],
		}
		if i, ok := idx["password"]; ok {
			row.Password = rec[i]
		}
		if i, ok := idx["role"]; ok {
			row.Role = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
