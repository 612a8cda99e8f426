package scoring

import (
	"testing"
	"time"

	"ytinsight/titletext"
	"ytinsight/videos"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(DefaultConfig(), titletext.Default(), func() time.Time { return fixedNow })
}

func record(id string, views, likes int64, title string, age time.Duration) videos.Record {
	r := videos.Record{
		ID:             id,
		Title:          title,
		Views:          views,
		Likes:          likes,
		EngagementRate: videos.EngagementRate(views, likes, 0),
	}
	if age > 0 {
		r.PublishedAt = fixedNow.Add(-age)
	}
	return r
}

func TestPercentile(t *testing.T) {
	set := []float64{10, 20, 30, 40}
	tests := []struct {
		value float64
		want  int
	}{
		{5, 0},
		{10, 0},
		{15, 25},
		{20, 25},
		{30, 50},
		{40, 75},
		{41, 100},
	}
	for _, tt := range tests {
		if got := Percentile(tt.value, set); got != tt.want {
			t.Errorf("Percentile(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
	if got := Percentile(1, nil); got != 0 {
		t.Errorf("Percentile over empty set = %d, want 0", got)
	}
}

func TestPercentileTiesShareRank(t *testing.T) {
	var records []videos.Record
	for i := 0; i < 10; i++ {
		records = append(records, record("v", 500, int64(i), "same", 0))
	}
	pop := NewPopulation(records)
	e := testEngine()

	first := e.ScoreTitle(records[0], pop).ViewsPercentile
	for i, r := range records {
		if got := e.ScoreTitle(r, pop).ViewsPercentile; got != first {
			t.Errorf("record %d views percentile = %d, want %d", i, got, first)
		}
	}
	if first != 0 {
		t.Errorf("tied percentile = %d, want 0", first)
	}
}

func TestPercentileMonotonic(t *testing.T) {
	set := []float64{3, 3, 7, 12, 12, 12, 40, 90, 1000}
	prev := -1
	for v := 0.0; v <= 1200; v += 0.5 {
		p := Percentile(v, set)
		if p < 0 || p > 100 {
			t.Fatalf("Percentile(%v) = %d out of range", v, p)
		}
		if p < prev {
			t.Fatalf("Percentile(%v) = %d decreased from %d", v, p, prev)
		}
		prev = p
	}
}

func TestScoreTitle(t *testing.T) {
	records := []videos.Record{
		record("a", 10, 1, "cat", 0),
		record("b", 20, 2, "cat", 0),
		record("c", 30, 3, "cat", 0),
		record("d", 40, 4, "cat", 0),
	}
	pop := NewPopulation(records)

	s := testEngine().ScoreTitle(records[3], pop)
	if s.ViewsPercentile != 75 || s.LikesPercentile != 75 || s.EngagementPercentile != 0 {
		t.Errorf("percentiles = %d/%d/%d, want 75/75/0", s.ViewsPercentile, s.LikesPercentile, s.EngagementPercentile)
	}
	if s.TextScore == nil || *s.TextScore != 20 {
		t.Fatalf("TextScore = %v, want 20", s.TextScore)
	}
	if s.RecencyBonus != nil {
		t.Error("title score carries a recency bonus")
	}
	if s.Total != 49 || s.Grade != "C" {
		t.Errorf("Total = %d Grade = %s, want 49 C", s.Total, s.Grade)
	}
	if len(s.Breakdown) != 4 || s.Breakdown[3].Label != "Title text" {
		t.Errorf("Breakdown = %+v", s.Breakdown)
	}
}

func TestScoreTitleWeighsUnroundedText(t *testing.T) {
	target := record("t", 100, 10, "EPIC SECRET 😀", 0)
	records := []videos.Record{target, {
		ID:             "o",
		Title:          "cat",
		Views:          100,
		Likes:          5,
		Comments:       20,
		EngagementRate: videos.EngagementRate(100, 5, 20),
	}}
	for i := 0; i < 18; i++ {
		records = append(records, record("p", 1000, 1000, "cat", 0))
	}

	text := titletext.Default().Analyze(target.Title)
	if text.Total != 41 {
		t.Fatalf("text total = %d, want 41", text.Total)
	}

	s := testEngine().ScoreTitle(target, NewPopulation(records))
	if s.ViewsPercentile != 0 || s.LikesPercentile != 5 || s.EngagementPercentile != 0 {
		t.Fatalf("percentiles = %d/%d/%d, want 0/5/0", s.ViewsPercentile, s.LikesPercentile, s.EngagementPercentile)
	}
	// 0.25*5 + 0.20*51.25 = 11.5 rounds to 12; weighting the rounded 51 would give 11.
	if s.Total != 12 {
		t.Errorf("Total = %d, want 12", s.Total)
	}
	if *s.TextScore != 51 {
		t.Errorf("TextScore = %d, want 51", *s.TextScore)
	}
}

func TestScoreThumbnail(t *testing.T) {
	records := []videos.Record{
		record("a", 10, 1, "cat", 10*24*time.Hour),
		record("b", 20, 2, "cat", 10*24*time.Hour),
		record("c", 30, 3, "cat", 10*24*time.Hour),
		record("d", 40, 4, "cat", 10*24*time.Hour),
	}
	pop := NewPopulation(records)

	s := testEngine().ScoreThumbnail(records[3], pop)
	if s.RecencyBonus == nil || *s.RecencyBonus != 30 {
		t.Fatalf("RecencyBonus = %v, want 30", s.RecencyBonus)
	}
	if s.TextScore != nil {
		t.Error("thumbnail score carries a text score")
	}
	if s.Total != 39 || s.Grade != "D" {
		t.Errorf("Total = %d Grade = %s, want 39 D", s.Total, s.Grade)
	}
}

func TestRecencyBonus(t *testing.T) {
	e := testEngine()
	tests := []struct {
		name  string
		views int64
		age   time.Duration
		want  int
	}{
		{"viral", 1000000, 5 * 24 * time.Hour, 100},
		{"exactly top band", 100000, 24 * time.Hour, 100},
		{"just under top band", 99999, 24 * time.Hour, 90},
		{"young video counts one day", 150, 12 * time.Hour, 40},
		{"slow", 99, 24 * time.Hour, 30},
		{"no publish time", 5000000, 0, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.RecencyBonus(record("x", tt.views, 0, "", tt.age)); got != tt.want {
				t.Errorf("RecencyBonus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreAllRangeAndDeterminism(t *testing.T) {
	records := []videos.Record{
		record("a", 0, 0, "", 0),
		record("b", 1200000, 90000, "How I Built the ULTIMATE Go Server in 7 Days? 🚀", 2*24*time.Hour),
		record("c", 5000, 10, "TOP TOP TOP TOP", 400*24*time.Hour),
		record("d", 5000, 10, "TOP TOP TOP TOP", 400*24*time.Hour),
	}
	e := testEngine()
	first := e.ScoreAll(records)
	second := e.ScoreAll(records)

	if len(first) != len(records) {
		t.Fatalf("ScoreAll() returned %d scores", len(first))
	}
	grades := DefaultConfig().Grades
	for i, vs := range first {
		for _, s := range []Score{vs.Title, vs.Thumbnail} {
			if s.Total < 0 || s.Total > 100 {
				t.Errorf("%s total %d out of range", vs.VideoID, s.Total)
			}
			if s.Grade != grades.Grade(s.Total) {
				t.Errorf("%s grade %s does not match total %d", vs.VideoID, s.Grade, s.Total)
			}
		}
		if vs.Title.Total != second[i].Title.Total || vs.Thumbnail.Total != second[i].Thumbnail.Total {
			t.Errorf("%s scores differ between runs", vs.VideoID)
		}
		if vs.VideoID != records[i].ID {
			t.Errorf("score %d belongs to %s, want %s", i, vs.VideoID, records[i].ID)
		}
	}
	if first[2].Title.Total != first[3].Title.Total {
		t.Error("identical records scored differently")
	}
	if first[1].Thumbnail.Total <= first[0].Thumbnail.Total {
		t.Errorf("viral thumbnail %d not above empty %d", first[1].Thumbnail.Total, first[0].Thumbnail.Total)
	}
}

func TestSubsetChangesScore(t *testing.T) {
	all := []videos.Record{
		record("a", 10, 1, "cat", 0),
		record("b", 1000, 100, "cat", 0),
		record("c", 100000, 10000, "cat", 0),
	}
	e := testEngine()
	full := e.ScoreTitle(all[1], NewPopulation(all))
	subset := e.ScoreTitle(all[1], NewPopulation(all[:2]))
	if full.ViewsPercentile == subset.ViewsPercentile {
		t.Error("percentile should depend on the comparison set")
	}
}

func TestGrades(t *testing.T) {
	g := DefaultConfig().Grades
	tests := []struct {
		total int
		want  string
	}{
		{100, "A"}, {80, "A"}, {79, "B"}, {60, "B"}, {59, "C"}, {40, "C"}, {39, "D"}, {20, "D"}, {19, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := g.Grade(tt.total); got != tt.want {
			t.Errorf("Grade(%d) = %q, want %q", tt.total, got, tt.want)
		}
	}
}
