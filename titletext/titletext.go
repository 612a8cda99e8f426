// Package titletext scores a video title from its text alone.
//
// The result is on a 0-80 scale with its own grade thresholds. It is unrelated
// to the population-relative scores of the scoring package.
package titletext

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxScore is the best possible total.
const MaxScore = 80

// Dimension names, in check order.
const (
	DimLength         = "length"
	DimPowerWords     = "power_words"
	DimNumbers        = "numbers"
	DimQuestion       = "question"
	DimEmoji          = "emoji"
	DimCapitalization = "capitalization"
)

// MaxSuggestions caps the suggestions returned with a Result.
const MaxSuggestions = 4

// Result is the text-only evaluation of one title.
type Result struct {
	Title string `json:"title"`
	// Total is in [0, MaxScore].
	Total       int              `json:"total"`
	Grade       string           `json:"grade"`
	Breakdown   []DimensionScore `json:"breakdown"`
	Suggestions []string         `json:"suggestions"`
}

// DimensionScore is one heuristic's contribution.
type DimensionScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Max   int    `json:"max"`
	// Detail is a short measurement, e.g. "52 chars" or "2 words".
	Detail string `json:"detail"`
}

// Grades holds the minimum totals for each letter on the 0-80 scale.
type Grades struct {
	A int `json:"a" yaml:"a"`
	B int `json:"b" yaml:"b"`
	C int `json:"c" yaml:"c"`
	D int `json:"d" yaml:"d"`
}

// DefaultGrades returns 70/55/40/25.
func DefaultGrades() Grades {
	return Grades{A: 70, B: 55, C: 40, D: 25}
}

// Grade maps a total to a letter.
func (g Grades) Grade(total int) string {
	switch {
	case total >= g.A:
		return "A"
	case total >= g.B:
		return "B"
	case total >= g.C:
		return "C"
	case total >= g.D:
		return "D"
	default:
		return "F"
	}
}

// DefaultPowerWords is the curated list matched as whole words, case-insensitively.
var DefaultPowerWords = []string{
	"amazing", "best", "ultimate", "secret", "secrets", "proven", "easy", "simple",
	"fast", "quick", "free", "new", "complete", "essential", "powerful", "incredible",
	"insane", "epic", "shocking", "surprising", "perfect", "guide", "tutorial",
	"how", "why", "mistakes", "hacks", "tips", "never", "always", "finally",
	"instantly", "exclusive", "beginner", "beginners", "master", "revealed",
}

// Analyzer is stateless once built and safe for concurrent use.
type Analyzer struct {
	powerWords map[string]bool
	grades     Grades
}

// New creates an analyzer. A nil word list uses DefaultPowerWords.
func New(powerWords []string, grades Grades) *Analyzer {
	if powerWords == nil {
		powerWords = DefaultPowerWords
	}
	set := make(map[string]bool, len(powerWords))
	for _, w := range powerWords {
		set[strings.ToLower(w)] = true
	}
	return &Analyzer{powerWords: set, grades: grades}
}

// Default returns an analyzer with the default word list and grades.
func Default() *Analyzer {
	return New(nil, DefaultGrades())
}

var (
	wordRegex   = regexp.MustCompile(`[\p{L}\p{N}']+`)
	numberRegex = regexp.MustCompile(`\b\d+\b`)
)

var interrogatives = []string{
	"how", "what", "why", "when", "where", "who", "which",
	"can", "should", "is", "are", "do", "does", "will",
}

// Analyze scores title. Identical input always yields an identical result.
func (a *Analyzer) Analyze(title string) Result {
	res := Result{Title: title, Suggestions: []string{}}

	checks := []func(string) (DimensionScore, string){
		scoreLength,
		a.scorePowerWords,
		scoreNumbers,
		scoreQuestion,
		scoreEmoji,
		scoreCapitalization,
	}
	for _, check := range checks {
		dim, suggestion := check(title)
		res.Breakdown = append(res.Breakdown, dim)
		res.Total += dim.Score
		if suggestion != "" && len(res.Suggestions) < MaxSuggestions {
			res.Suggestions = append(res.Suggestions, suggestion)
		}
	}

	res.Total = min(max(res.Total, 0), MaxScore)
	res.Grade = a.grades.Grade(res.Total)
	return res
}

func scoreLength(title string) (DimensionScore, string) {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	dim := DimensionScore{Name: DimLength, Max: 15, Detail: strconv.Itoa(n) + " chars"}
	switch {
	case n >= 40 && n <= 60:
		dim.Score = 15
		return dim, ""
	case n >= 30 && n <= 70:
		dim.Score = 10
	default:
		dim.Score = 5
	}
	if n < 40 {
		return dim, "Lengthen the title toward 40-60 characters"
	}
	return dim, "Shorten the title toward 40-60 characters"
}

func (a *Analyzer) scorePowerWords(title string) (DimensionScore, string) {
	matches := 0
	for _, w := range wordRegex.FindAllString(strings.ToLower(title), -1) {
		if a.powerWords[w] {
			matches++
		}
	}
	dim := DimensionScore{Name: DimPowerWords, Max: 20, Detail: strconv.Itoa(matches) + " words"}
	switch {
	case matches >= 2:
		dim.Score = 20
		return dim, ""
	case matches == 1:
		dim.Score = 12
		return dim, "Add a second power word"
	default:
		return dim, "Add power words such as \"ultimate\" or \"proven\""
	}
}

func scoreNumbers(title string) (DimensionScore, string) {
	dim := DimensionScore{Name: DimNumbers, Max: 15, Detail: "none"}
	if numberRegex.MatchString(title) {
		dim.Score = 15
		dim.Detail = "present"
		return dim, ""
	}
	return dim, "Include a specific number"
}

func scoreQuestion(title string) (DimensionScore, string) {
	dim := DimensionScore{Name: DimQuestion, Max: 10}
	if strings.Contains(title, "?") {
		dim.Score = 10
		dim.Detail = "question"
		return dim, ""
	}
	words := wordRegex.FindAllString(strings.ToLower(title), 1)
	if len(words) == 1 {
		for _, q := range interrogatives {
			if words[0] == q {
				dim.Score = 7
				dim.Detail = "interrogative opening"
				return dim, ""
			}
		}
	}
	dim.Score = 3
	dim.Detail = "statement"
	return dim, "Consider phrasing the title as a question"
}

func scoreEmoji(title string) (DimensionScore, string) {
	n := CountEmoji(title)
	dim := DimensionScore{Name: DimEmoji, Max: 10, Detail: strconv.Itoa(n) + " emoji"}
	switch {
	case n >= 1 && n <= 2:
		dim.Score = 10
		return dim, ""
	case n == 0:
		dim.Score = 3
		return dim, "Add one or two relevant emoji"
	default:
		dim.Score = 5
		return dim, "Use at most two emoji"
	}
}

func scoreCapitalization(title string) (DimensionScore, string) {
	ratio := CapsRatio(title)
	dim := DimensionScore{Name: DimCapitalization, Max: 10, Detail: strconv.Itoa(int(ratio*100+0.5)) + "% caps"}
	switch {
	case ratio == 0:
		dim.Score = 5
		return dim, "Capitalize one key word for emphasis"
	case ratio <= 0.30:
		dim.Score = 10
		return dim, ""
	default:
		dim.Score = 3
		return dim, "Reduce all-caps words"
	}
}

// emojiRanges is the fixed set of code point ranges counted as emoji.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x26FF, Stride: 1}, // misc symbols
		{Lo: 0x2700, Hi: 0x27BF, Stride: 1}, // dingbats
	},
	R32: []unicode.Range32{
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1}, // regional indicators
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1}, // symbols and pictographs
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1}, // emoticons
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1}, // transport and map
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1}, // supplemental symbols
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1}, // symbols extended-A
	},
}

// CountEmoji counts code points inside the emoji ranges.
func CountEmoji(s string) int {
	n := 0
	for _, r := range s {
		if unicode.Is(emojiRanges, r) {
			n++
		}
	}
	return n
}

// CapsRatio is the share of lettered words written entirely in capitals.
// Single-letter words such as "I" or "A" never count as caps.
func CapsRatio(title string) float64 {
	words, caps := 0, 0
	for _, w := range strings.Fields(title) {
		letters, upper := 0, 0
		for _, r := range w {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
		if letters == 0 {
			continue
		}
		words++
		if letters >= 2 && upper == letters {
			caps++
		}
	}
	if words == 0 {
		return 0
	}
	return float64(caps) / float64(words)
}
