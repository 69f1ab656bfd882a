package tracker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Number
		wantErr bool
	}{
		{in: `40`, want: Num(40)},
		{in: `"62.5"`, want: Num(62.5)},
		{in: `" 7 "`, want: Num(7)},
		{in: `""`, want: Number{}},
		{in: `null`, want: Number{}},
		{in: `"abc"`, wantErr: true},
		{in: `"NaN"`, wantErr: true},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(tt.in), &n)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestNumberMarshal(t *testing.T) {
	b, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: Num(12.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12.5,"b":null}`, string(b))
}

func TestSubjectDecodeFromForm(t *testing.T) {
	// shape posted by the subject card editor
	body := `{"id":3,"name":"Algorithms","semester":"2024 S1","hurdle":"","score":"78","weight":"12.5","user_id":1}`
	var s Subject
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	assert.False(t, s.Hurdle.Valid)
	assert.Equal(t, Num(78), s.Score)
	assert.Equal(t, Num(12.5), s.Weight)
	assert.Nil(t, s.TargetScore.Ptr())
	require.NoError(t, Validate(s))
}

func TestNumberScanValue(t *testing.T) {
	var n Number
	require.NoError(t, n.Scan(nil))
	assert.False(t, n.Valid)
	require.NoError(t, n.Scan(int64(5)))
	assert.Equal(t, Num(5), n)
	require.NoError(t, n.Scan([]byte("1.5")))
	assert.Equal(t, Num(1.5), n)
	assert.Error(t, n.Scan(struct{}{}))

	v, err := Number{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = Num(3).Value()
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestValidateRanges(t *testing.T) {
	a := Assessment{Name: "Exam", Rate: Num(120)}
	assert.Error(t, Validate(a))
	a.Rate = Num(60)
	assert.NoError(t, Validate(a))
	a.Score = Num(-1)
	assert.Error(t, Validate(a))

	assert.Error(t, Validate(Subject{Name: ""}))
	assert.Error(t, Validate(Subject{Name: "x", Weight: Num(-2)}))
	assert.NoError(t, Validate(Subject{Name: "x"}))

	assert.Error(t, Validate(User{Name: "n", StudentID: "s", Role: "root"}))
}
