package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"ytinsight/ledger"
	"ytinsight/pipeline"
	"ytinsight/schedule"
	"ytinsight/titletext"
)

// render writes v as indented JSON, or calls text for the text format.
func render(w io.Writer, format string, v any, text func() error) error {
	if format == "text" {
		return text()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, rep *pipeline.Report) error {
	fmt.Fprintf(w, "Query: %s\n", rep.Query)
	if ch := rep.Channel; ch != nil {
		fmt.Fprintf(w, "Channel: %s (%s subscribers, %s videos)\n", ch.Title, ch.SubscribersFormatted, ch.VideoCountFormatted)
	}
	fmt.Fprintf(w, "Videos: %d", len(rep.Records))
	if rep.Exhausted {
		fmt.Fprint(w, " (all available)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVIEWS\tER%\tTITLE\tTHUMB\tTEXT\tPUBLISHED\tTITLE TEXT")
	for i, r := range rep.Records {
		s := rep.Scores[i]
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d %s\t%d %s\t%d/%d\t%s\t%s\n",
			r.ID, r.ViewsFormatted, r.EngagementRate,
			s.Title.Total, s.Title.Grade,
			s.Thumbnail.Total, s.Thumbnail.Grade,
			s.Text.Total, titletext.MaxScore,
			r.TimeAgo, truncate(r.Title, 50))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	printSlots(w, "Best upload slots", rep.BestSlots)
	printSlots(w, "Worst upload slots", rep.WorstSlots)
	fmt.Fprintln(w)
	return printUsage(w, rep.Usage)
}

func printSlots(w io.Writer, title string, cells []schedule.Cell) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, c := range cells {
		fmt.Fprintf(w, "  %-9s %02d:00  %s avg views over %d\n",
			schedule.DayName(c.Day), c.Hour, humanize.Comma(int64(c.AvgViews)), c.Count)
	}
}

func printGap(w io.Writer, rep *pipeline.GapReport) error {
	fmt.Fprintf(w, "Query: %s\n", rep.Query)
	fmt.Fprintf(w, "Compared %d channel videos with %d trending videos\n", rep.ChannelVideos, rep.TrendingVideos)
	fmt.Fprintf(w, "Topic overlap: %d%%\n\n", rep.Gap.OverlapPercentage)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MISSING TOPIC\tFREQUENCY\tTREND SCORE\tAVG VIEWS")
	for _, m := range rep.Gap.MissingTopics {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", m.Topic, m.Frequency, m.TrendScore, humanize.Comma(int64(m.PotentialViews)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nRecommendations:")
	for i, r := range rep.Gap.Recommendations {
		fmt.Fprintf(w, "  %d. %s: %s (%s)\n", i+1, r.Topic, r.Reason, r.PotentialViews)
	}
	fmt.Fprintln(w)
	return printUsage(w, rep.Usage)
}

func printTitle(w io.Writer, res titletext.Result) error {
	fmt.Fprintf(w, "%q\nScore: %d/%d (%s)\n\n", res.Title, res.Total, titletext.MaxScore, res.Grade)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, d := range res.Breakdown {
		fmt.Fprintf(tw, "%s\t%d/%d\t%s\n", d.Name, d.Score, d.Max, d.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(res.Suggestions) > 0 {
		fmt.Fprintln(w, "\nSuggestions:")
		for _, s := range res.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	return nil
}

func printUsage(w io.Writer, u ledger.Usage) error {
	_, err := fmt.Fprintf(w, "Quota %s: %s of %s units used, %s remaining\n",
		u.Date, humanize.Comma(int64(u.UnitsUsed)), humanize.Comma(int64(u.DailyLimit)), humanize.Comma(int64(u.Remaining())))
	if err == nil && u.OverBudget() {
		_, err = fmt.Fprintln(w, "Warning: daily quota budget exceeded")
	}
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
