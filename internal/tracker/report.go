package tracker

import "github.com/mind-engage/wamtrack/internal/grading"

type AssessmentLine struct {
	Assessment
	Contribution *float64 `json:"contribution"` // rate/100*score, nil until both are set
	// BelowHurdle is informational; hurdles are never enforced in totals.
	BelowHurdle bool `json:"below_hurdle"`
}

type SubjectReport struct {
	Subject         Subject          `json:"subject"`
	Assessments     []AssessmentLine `json:"assessments"`
	AllocatedRate   float64          `json:"allocated_rate"`
	TotalScore      float64          `json:"total_score"`
	Grade           string           `json:"grade,omitempty"`
	RequiredAverage *float64         `json:"required_average"`
}

type SubjectLine struct {
	Subject
	Grade string `json:"grade,omitempty"`
}

type SemesterReport struct {
	Semester string        `json:"semester"`
	WAM      *float64      `json:"wam"`
	Grade    string        `json:"grade,omitempty"`
	Subjects []SubjectLine `json:"subjects"`
}

type UserReport struct {
	UserID    int64            `json:"user_id"`
	WAM       *float64         `json:"wam"`
	Grade     string           `json:"grade,omitempty"`
	Semesters []SemesterReport `json:"semesters"`
}

// BuildSubjectReport is pure; grade is left empty until something is scored.
func BuildSubjectReport(scheme grading.Scheme, sb Subject, as []Assessment) SubjectReport {
	rep := SubjectReport{Subject: sb, Assessments: make([]AssessmentLine, 0, len(as))}
	items := make([]grading.Item, 0, len(as))
	anyScored := false
	for _, a := range as {
		line := AssessmentLine{Assessment: a}
		if a.Rate.Valid {
			rep.AllocatedRate += a.Rate.Float
		}
		if a.Rate.Valid && a.Score.Valid {
			c := grading.Round2(a.Rate.Float / 100 * a.Score.Float)
			line.Contribution = &c
			// a fresh assessment is posted as rate 0, score 0
			if a.Rate.Float > 0 {
				anyScored = true
			}
		}
		if a.Hurdle.Valid && a.Score.Valid && a.Score.Float < a.Hurdle.Float {
			line.BelowHurdle = true
		}
		rep.Assessments = append(rep.Assessments, line)
		items = append(items, a.Item())
	}
	rep.AllocatedRate = grading.Round2(rep.AllocatedRate)
	rep.TotalScore = grading.TotalScore(items)
	if anyScored {
		rep.Grade = scheme.Grade(rep.TotalScore)
	}
	if req, ok := grading.RequiredAverage(sb.TargetScore.Ptr(), items); ok {
		rep.RequiredAverage = &req
	}
	return rep
}

// BuildUserReport groups subjects by semester in first-seen order.
func BuildUserReport(scheme grading.Scheme, userID int64, subjects []Subject) UserReport {
	rep := UserReport{UserID: userID, Semesters: []SemesterReport{}}
	index := map[string]int{}
	all := make([]grading.Item, 0, len(subjects))
	perSem := map[string][]grading.Item{}

	for _, sb := range subjects {
		i, ok := index[sb.Semester]
		if !ok {
			i = len(rep.Semesters)
			index[sb.Semester] = i
			rep.Semesters = append(rep.Semesters, SemesterReport{Semester: sb.Semester, Subjects: []SubjectLine{}})
		}
		line := SubjectLine{Subject: sb}
		if sb.Score.Valid {
			line.Grade = scheme.Grade(sb.Score.Float)
		}
		rep.Semesters[i].Subjects = append(rep.Semesters[i].Subjects, line)
		all = append(all, sb.Item())
		perSem[sb.Semester] = append(perSem[sb.Semester], sb.Item())
	}

	rep.WAM, rep.Grade = wam(scheme, all)
	for i := range rep.Semesters {
		sem := &rep.Semesters[i]
		sem.WAM, sem.Grade = wam(scheme, perSem[sem.Semester])
	}
	return rep
}

func wam(scheme grading.Scheme, items []grading.Item) (*float64, string) {
	v, ok := grading.WeightedAverage(items)
	if !ok {
		return nil, ""
	}
	return &v, scheme.Grade(v)
}
