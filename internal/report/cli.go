package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mabhi256/gcmodel/internal/gc"
	"github.com/mabhi256/gcmodel/utils"
)

const (
	keyWidth = 26
	barWidth = 30
)

func writeCLI(w io.Writer, rep Report, detailed bool) error {
	var b strings.Builder
	sum := rep.Summary

	writeHeader(&b, rep)

	if sum.Events == 0 {
		b.WriteString("\nNo GC events found.\n")
		if sum.ParseFailures > 0 {
			fmt.Fprintf(&b, "%d lines could not be parsed. Run 'gcmodel gc validate' for details.\n", sum.ParseFailures)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	writePerformance(&b, sum)
	writePauses(&b, sum, detailed)
	writeBreakdown(&b, sum)
	writeMemory(&b, sum)

	if detailed {
		writeCollections(&b, sum)
		writeGenerations(&b, sum)
		writeLogQuality(&b, sum)
		writeRecommendations(&b, rep.Issues)
	} else {
		writeIssueList(&b, rep.Issues)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string) {
	b.WriteString(utils.SectionStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(utils.MutedStyle.Render(strings.Repeat("─", 50)))
	b.WriteString("\n")
}

func line(b *strings.Builder, key, value string) {
	b.WriteString(utils.FormatKeyValue(key, value, keyWidth))
	b.WriteString("\n")
}

func bytesOf(m utils.MemorySize) string {
	if m <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(m.Bytes()))
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	return tbl
}

func writeHeader(b *strings.Builder, rep Report) {
	sum := rep.Summary

	title := "🔍 GC Performance Analysis"
	if rep.Source != "" {
		title += ": " + rep.Source
	}
	b.WriteString(utils.TitleStyle.Render(title))
	b.WriteString("\n")

	var facts []string
	if sum.Header.JVMVersion != "" {
		facts = append(facts, "JVM "+sum.Header.JVMVersion)
	}
	if sum.Header.HeapMax > 0 {
		facts = append(facts, "Heap Max "+sum.Header.HeapMax.String())
	}
	if sum.Header.HeapRegionSize > 0 {
		facts = append(facts, "Region "+sum.Header.HeapRegionSize.String())
	}
	facts = append(facts, "Events "+humanize.Comma(int64(sum.Events)))
	if sum.Runtime > 0 {
		facts = append(facts, "Runtime "+utils.FormatSeconds(sum.Runtime))
	}
	b.WriteString(utils.MutedStyle.Render(strings.Join(facts, "  |  ")))
	b.WriteString("\n")
}

func writePerformance(b *strings.Builder, sum gc.Summary) {
	section(b, "📈 PERFORMANCE SUMMARY")

	if sum.Runtime <= 0 {
		line(b, "Application Throughput", "n/a (needs at least one pause)")
		return
	}

	status, color := utils.ThroughputStatus(sum.Throughput)
	line(b, "Application Throughput", fmt.Sprintf("%.2f%% (%s)", sum.Throughput, status))
	b.WriteString(strings.Repeat(" ", keyWidth+1))
	b.WriteString(utils.CreateProgressBar(sum.Throughput/100, barWidth, color))
	b.WriteString("\n")
	line(b, "GC Overhead", fmt.Sprintf("%s of %s (%.2f%%)",
		utils.FormatSeconds(sum.TotalPause), utils.FormatSeconds(sum.Runtime), 100-sum.Throughput))
}

func writePauses(b *strings.Builder, sum gc.Summary, detailed bool) {
	section(b, "⏱️  RESPONSE TIME IMPACT")

	if sum.Pauses == 0 {
		b.WriteString("No stop-the-world pauses recorded\n")
		return
	}

	status, color := utils.PauseStatus(utils.Seconds(sum.MaxPause))
	line(b, "Maximum Pause", fmt.Sprintf("%s %s",
		utils.FormatSeconds(sum.MaxPause), lipgloss.NewStyle().Foreground(color).Render("("+status+")")))

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Pauses", "Total", "Avg", "Min", "Max", "Std Dev"})
	tbl.AppendRow(table.Row{
		humanize.Comma(sum.Pauses),
		utils.FormatSeconds(sum.TotalPause),
		utils.FormatSeconds(sum.AvgPause),
		utils.FormatSeconds(sum.MinPause),
		utils.FormatSeconds(sum.MaxPause),
		utils.FormatSeconds(sum.PauseStdDev),
	})
	b.WriteString(tbl.Render())
	b.WriteString("\n")

	if len(sum.Percentiles) > 0 {
		pt := newTable()
		header := table.Row{}
		row := table.Row{}
		for _, p := range sum.Percentiles {
			header = append(header, fmt.Sprintf("p%g", p.Percentile))
			row = append(row, utils.FormatSeconds(p.Value))
		}
		pt.AppendHeader(header)
		pt.AppendRow(row)
		b.WriteString(pt.Render())
		b.WriteString("\n")
	}

	if sum.AvgInterval > 0 {
		line(b, "Pause Interval", "every "+utils.FormatSeconds(sum.AvgInterval))
	}
	if detailed && sum.Runtime > 0 {
		line(b, "Pause Frequency", fmt.Sprintf("%.2f per minute", float64(sum.Pauses)/sum.Runtime*60))
	}
}

func writeBreakdown(b *strings.Builder, sum gc.Summary) {
	section(b, "🔄 COLLECTION BREAKDOWN")

	line(b, "Stop-the-world Pauses", humanize.Comma(sum.Pauses))

	if sum.FullGCs > 0 {
		pct := float64(sum.FullGCs) / float64(sum.Pauses) * 100
		value := fmt.Sprintf("%s (%.1f%%, %s total, avg %s)", humanize.Comma(sum.FullGCs), pct,
			utils.FormatSeconds(sum.FullGCPause), utils.FormatSeconds(sum.AvgFullGCTime))
		line(b, "Full GC Events", utils.CriticalStyle.Render(value))
	} else {
		line(b, "Full GC Events", utils.GoodStyle.Render("none"))
	}

	if sum.ConcurrentCount > 0 {
		line(b, "Concurrent Phases", fmt.Sprintf("%s (%s total, avg %s)", humanize.Comma(sum.ConcurrentCount),
			utils.FormatSeconds(sum.TotalConcurrent), utils.FormatSeconds(sum.AvgConcurrent)))
	}

	if sum.Failures > 0 {
		value := fmt.Sprintf("%s (%.1f%% of events)", humanize.Comma(sum.Failures), sum.FailureRate*100)
		line(b, "Evacuation Failures", utils.CriticalStyle.Render(value))
	}
}

func writeCollections(b *strings.Builder, sum gc.Summary) {
	if len(sum.Collections) == 0 {
		return
	}

	section(b, "📋 COLLECTION TYPES")

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Type", "Count", "Total", "Avg", "Max"})
	for _, c := range sum.Collections {
		tbl.AppendRow(table.Row{
			c.Type.String(),
			humanize.Comma(c.Count),
			utils.FormatSeconds(c.TotalPause),
			utils.FormatSeconds(c.AvgPause),
			utils.FormatSeconds(c.MaxPause),
		})
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
}

func writeMemory(b *strings.Builder, sum gc.Summary) {
	section(b, "💾 MEMORY")

	if sum.MaxHeapCapacity == 0 && sum.MaxHeapUsed == 0 {
		b.WriteString("No heap figures recorded\n")
		return
	}

	line(b, "Max Heap Capacity", bytesOf(sum.MaxHeapCapacity))
	line(b, "Max Heap Before GC", bytesOf(sum.MaxHeapUsed))
	line(b, "Avg Heap After GC", bytesOf(sum.AvgHeapAfter))
	line(b, "Freed", bytesOf(sum.Freed))
	if sum.FreedPerMinute > 0 {
		line(b, "Freed per Minute", bytesOf(sum.FreedPerMinute))
	}
	if sum.FullGCs > 0 && sum.AvgFootprintAfterFullGC > 0 {
		line(b, "Footprint After Full GC", fmt.Sprintf("%s (σ %s)",
			bytesOf(sum.AvgFootprintAfterFullGC), bytesOf(sum.FootprintAfterFullGCStdDev)))
	}
	if sum.HasHeapGrowthSlope {
		line(b, "Heap Growth", fmt.Sprintf("%+.2f MB/hour (r=%.2f)",
			sum.HeapGrowthMBPerHour(), sum.HeapGrowthCorrelation))
	}
}

func writeGenerations(b *strings.Builder, sum gc.Summary) {
	if len(sum.Generations) == 0 {
		return
	}

	section(b, "🏗️  GENERATIONS")

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Generation", "Pauses", "Total Pause", "Avg Pause", "Avg Before", "Avg After", "Max After", "Max Capacity"})
	for _, gen := range sum.Generations {
		tbl.AppendRow(table.Row{
			gen.Generation.String(),
			humanize.Comma(gen.Pauses),
			utils.FormatSeconds(gen.TotalPause),
			utils.FormatSeconds(gen.AvgPause),
			bytesOf(gen.AvgBefore),
			bytesOf(gen.AvgAfter),
			bytesOf(gen.MaxAfter),
			bytesOf(gen.MaxCapacity),
		})
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
}

func writeLogQuality(b *strings.Builder, sum gc.Summary) {
	section(b, "🧾 LOG QUALITY")

	line(b, "Unparsed Lines", humanize.Comma(int64(sum.ParseFailures)))
	line(b, "Unfinished Phases", humanize.Comma(int64(sum.DanglingPhases)))
	line(b, "Out-of-order Events", humanize.Comma(int64(sum.OrderingAnomalies)))

	timestamps := "elapsed time on every event"
	if !sum.AccurateTimestamps {
		timestamps = "partly inferred from date-stamps"
	}
	line(b, "Timestamps", timestamps)
	if sum.FirstDateStamp != nil {
		line(b, "First Date-stamp", sum.FirstDateStamp.Format("2006-01-02 15:04:05 -0700"))
	}
}

func writeIssueList(b *strings.Builder, issues []gc.PerformanceIssue) {
	section(b, "🎯 ASSESSMENT")

	if len(issues) == 0 {
		b.WriteString(utils.GoodStyle.Render("✅ No performance issues detected."))
		b.WriteString("\n")
		return
	}

	for _, issue := range issues {
		style := utils.GetSeverityStyle(issue.Severity)
		fmt.Fprintf(b, "%s %s: %s\n", utils.GetSeverityIcon(issue.Severity),
			style.Render(issue.Type), issue.Description)
	}
	b.WriteString(utils.MutedStyle.Render("Use -o cli-more for recommendations."))
	b.WriteString("\n")
}

func writeRecommendations(b *strings.Builder, issues []gc.PerformanceIssue) {
	if len(issues) == 0 {
		section(b, "💡 RECOMMENDATIONS")
		b.WriteString("✅ No performance issues detected.\n")
		b.WriteString("   Current GC configuration appears optimal.\n")
		return
	}

	section(b, "🚀 PERFORMANCE RECOMMENDATIONS")

	groups := []struct {
		severity string
		heading  string
		label    string
	}{
		{gc.SeverityCritical, "🚩 CRITICAL ISSUES - Immediate attention required:", "Issue"},
		{gc.SeverityWarning, "⚠️  WARNINGS - Address when possible:", "Concern"},
		{gc.SeverityInfo, "📈 OPTIMIZATION OPPORTUNITIES:", "Note"},
	}

	for _, group := range groups {
		var matched []gc.PerformanceIssue
		for _, issue := range issues {
			if issue.Severity == group.severity {
				matched = append(matched, issue)
			}
		}
		if len(matched) == 0 {
			continue
		}

		fmt.Fprintf(b, "\n%s\n", utils.GetSeverityStyle(group.severity).Render(group.heading))
		for _, issue := range matched {
			fmt.Fprintf(b, "\n%s %s\n", utils.GetSeverityIcon(issue.Severity), issue.Type)
			fmt.Fprintf(b, "   %s: %s\n", group.label, issue.Description)
			for _, rec := range issue.Recommendation {
				if rec = strings.TrimSpace(rec); rec != "" {
					fmt.Fprintf(b, "   • %s\n", rec)
				}
			}
		}
	}
}
