package grading

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// InvalidScore is returned by Grade for scores outside [0,100] or non-finite input.
const InvalidScore = "Invalid Score"

var validate = validator.New()

// Band is one row of a grading scheme. Both ends are inclusive, so adjacent
// bands share their boundary; the band declared first wins.
type Band struct {
	Grade       string  `json:"grade" yaml:"grade" validate:"required"`
	Min         float64 `json:"min_score" yaml:"min" validate:"gte=0,lte=100"`
	Max         float64 `json:"max_score" yaml:"max" validate:"gte=0,lte=100,gtefield=Min"`
	Description string  `json:"description" yaml:"description"`
}

func (b Band) contains(score float64) bool { return score >= b.Min && score <= b.Max }

// Scheme is an ordered band table, checked in declaration order.
type Scheme []Band

// DefaultScheme returns a fresh copy of the honours banding table.
func DefaultScheme() Scheme {
	return Scheme{
		{Grade: "H1", Min: 80, Max: 100, Description: "First Class Honours"},
		{Grade: "H2A", Min: 75, Max: 80, Description: "Second Class Honours Division A"},
		{Grade: "H2B", Min: 70, Max: 75, Description: "Second Class Honours Division B"},
		{Grade: "H3", Min: 65, Max: 70, Description: "Third Class Honours"},
		{Grade: "P", Min: 50, Max: 65, Description: "Pass"},
		{Grade: "N", Min: 0, Max: 50, Description: "Fail"},
	}
}

var defaultScheme = DefaultScheme()

// Grade looks score up in the default scheme.
func Grade(score float64) string { return defaultScheme.Grade(score) }

// Grade returns the label of the first matching band, or InvalidScore.
func (s Scheme) Grade(score float64) string {
	b, ok := s.Lookup(score)
	if !ok {
		return InvalidScore
	}
	return b.Grade
}

// Lookup returns the first band containing score.
func (s Scheme) Lookup(score float64) (Band, bool) {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 100 {
		return Band{}, false
	}
	for _, b := range s {
		if b.contains(score) {
			return b, true
		}
	}
	return Band{}, false
}

// Validate checks every band and that the bands together cover [0,100].
func (s Scheme) Validate() error {
	if len(s) == 0 {
		return errors.New("grading scheme: no bands")
	}
	seen := make(map[string]struct{}, len(s))
	for i, b := range s {
		if err := validate.Struct(b); err != nil {
			return fmt.Errorf("grading scheme: band %d: %w", i, err)
		}
		if _, dup := seen[b.Grade]; dup {
			return fmt.Errorf("grading scheme: duplicate grade %q", b.Grade)
		}
		seen[b.Grade] = struct{}{}
	}

	sorted := make(Scheme, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	reach := 0.0
	if sorted[0].Min > 0 {
		return fmt.Errorf("grading scheme: gap below %v", sorted[0].Min)
	}
	for _, b := range sorted {
		if b.Min > reach {
			return fmt.Errorf("grading scheme: gap between %v and %v", reach, b.Min)
		}
		reach = math.Max(reach, b.Max)
	}
	if reach < 100 {
		return fmt.Errorf("grading scheme: gap above %v", reach)
	}
	return nil
}

type schemeFile struct {
	Bands Scheme `yaml:"bands"`
}

// LoadScheme decodes a YAML document of the form
//
//	bands:
//	  - {grade: H1, min: 80, max: 100, description: First Class Honours}
//
// and validates it.
func LoadScheme(r io.Reader) (Scheme, error) {
	var f schemeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("grading scheme: decode: %w", err)
	}
	if err := f.Bands.Validate(); err != nil {
		return nil, err
	}
	return f.Bands, nil
}

// LoadSchemeFile reads a scheme from path. An empty path yields the default scheme.
func LoadSchemeFile(path string) (Scheme, error) {
	if path == "" {
		return DefaultScheme(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadScheme(f)
}
