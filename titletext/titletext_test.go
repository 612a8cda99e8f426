package titletext

import (
	"reflect"
	"strings"
	"testing"
)

func dimension(t *testing.T, r Result, name string) DimensionScore {
	t.Helper()
	for _, d := range r.Breakdown {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("dimension %q missing from %+v", name, r.Breakdown)
	return DimensionScore{}
}

func TestAnalyzeMixedTitle(t *testing.T) {
	r := Default().Analyze("Top 5 AMAZING Tricks 😀")

	want := map[string]int{
		DimLength:         5,
		DimPowerWords:     12,
		DimNumbers:        15,
		DimQuestion:       3,
		DimEmoji:          10,
		DimCapitalization: 3,
	}
	for name, score := range want {
		if got := dimension(t, r, name).Score; got != score {
			t.Errorf("%s = %d, want %d", name, got, score)
		}
	}
	if r.Total != 48 {
		t.Errorf("Total = %d, want 48", r.Total)
	}
	if r.Grade != "C" {
		t.Errorf("Grade = %q, want C", r.Grade)
	}
}

func TestAnalyzeStrongTitle(t *testing.T) {
	// 47 chars, two power words, a number, a question, one emoji, one caps word.
	title := "How I Built the ULTIMATE Go Server in 7 Days? 🚀"
	r := Default().Analyze(title)

	if got := dimension(t, r, DimLength).Score; got != 15 {
		t.Errorf("length = %d (%s)", got, dimension(t, r, DimLength).Detail)
	}
	if r.Total != 80 || r.Grade != "A" {
		t.Errorf("Total = %d Grade = %s, want 80 A; breakdown %+v", r.Total, r.Grade, r.Breakdown)
	}
	if len(r.Suggestions) != 0 {
		t.Errorf("Suggestions = %v, want none", r.Suggestions)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := Default()
	title := "why does my code compile slowly"
	if !reflect.DeepEqual(a.Analyze(title), a.Analyze(title)) {
		t.Error("identical titles produced different results")
	}
}

func TestAnalyzeTotalInRange(t *testing.T) {
	a := Default()
	titles := []string{
		"",
		"x",
		strings.Repeat("WORD ", 40),
		"🔥🔥🔥🔥🔥🔥",
		"How to learn Go fast? The ultimate secret guide with 10 proven tips 🚀",
	}
	for _, title := range titles {
		r := a.Analyze(title)
		if r.Total < 0 || r.Total > MaxScore {
			t.Errorf("Analyze(%q).Total = %d out of range", title, r.Total)
		}
		if len(r.Suggestions) > MaxSuggestions {
			t.Errorf("Analyze(%q) returned %d suggestions", title, len(r.Suggestions))
		}
	}
}

func TestSuggestionsFollowCheckOrder(t *testing.T) {
	r := Default().Analyze("cat")
	want := []string{
		"Lengthen the title toward 40-60 characters",
		"Add power words such as \"ultimate\" or \"proven\"",
		"Include a specific number",
		"Consider phrasing the title as a question",
	}
	if !reflect.DeepEqual(r.Suggestions, want) {
		t.Errorf("Suggestions = %q, want %q", r.Suggestions, want)
	}
}

func TestLengthBands(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{29, 5},
		{30, 10},
		{39, 10},
		{40, 15},
		{60, 15},
		{61, 10},
		{70, 10},
		{71, 5},
	}
	for _, tt := range tests {
		dim, _ := scoreLength(strings.Repeat("a", tt.n))
		if dim.Score != tt.want {
			t.Errorf("length %d = %d, want %d", tt.n, dim.Score, tt.want)
		}
	}
}

func TestPowerWordsWholeWord(t *testing.T) {
	a := Default()
	tests := []struct {
		title string
		want  int
	}{
		{"Bestseller list", 0},
		{"The BEST list", 12},
		{"Best and easiest? no: best, easy", 20},
	}
	for _, tt := range tests {
		dim, _ := a.scorePowerWords(tt.title)
		if dim.Score != tt.want {
			t.Errorf("scorePowerWords(%q) = %d, want %d", tt.title, dim.Score, tt.want)
		}
	}
}

func TestQuestion(t *testing.T) {
	tests := []struct {
		title string
		want  int
	}{
		{"Is Go fast?", 10},
		{"How Go schedules goroutines", 7},
		{"Whatever happened to Go", 3},
	}
	for _, tt := range tests {
		dim, _ := scoreQuestion(tt.title)
		if dim.Score != tt.want {
			t.Errorf("scoreQuestion(%q) = %d, want %d", tt.title, dim.Score, tt.want)
		}
	}
}

func TestNumbersStandalone(t *testing.T) {
	if dim, _ := scoreNumbers("Go1 release"); dim.Score != 0 {
		t.Errorf("embedded digit scored %d", dim.Score)
	}
	if dim, _ := scoreNumbers("Go 1.22 release"); dim.Score != 15 {
		t.Errorf("standalone number scored %d", dim.Score)
	}
}

func TestCountEmoji(t *testing.T) {
	tests := []struct {
		s    string
		want int
	}{
		{"plain", 0},
		{"rocket 🚀", 1},
		{"☀ and ✅", 2},
		{"🇺🇸", 2},
		{"🤖🦀🫠", 3},
	}
	for _, tt := range tests {
		if got := CountEmoji(tt.s); got != tt.want {
			t.Errorf("CountEmoji(%q) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestCapsRatio(t *testing.T) {
	tests := []struct {
		title string
		want  float64
	}{
		{"all lower case", 0},
		{"I am A person", 0},
		{"GO is FUN", 2.0 / 3.0},
		{"", 0},
		{"123 456", 0},
	}
	for _, tt := range tests {
		if got := CapsRatio(tt.title); got != tt.want {
			t.Errorf("CapsRatio(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestGrades(t *testing.T) {
	g := DefaultGrades()
	tests := []struct {
		total int
		want  string
	}{
		{80, "A"}, {70, "A"}, {69, "B"}, {55, "B"}, {54, "C"}, {40, "C"}, {39, "D"}, {25, "D"}, {24, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := g.Grade(tt.total); got != tt.want {
			t.Errorf("Grade(%d) = %q, want %q", tt.total, got, tt.want)
		}
	}
}
