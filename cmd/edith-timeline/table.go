package main

import (
	"strconv"

	"github.com/SriHarishb/edith/internal/audio"
	"github.com/SriHarishb/edith/internal/timeline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

func isTerminalFd(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// renderFrames lays out one row per frame with the estimate next to the
// reconciled duration. Plain ASCII is used when the output is not a terminal.
func renderFrames(frames []timeline.Frame, measured float64, terminal bool) string {
	tw := table.NewWriter()
	if terminal {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	tw.AppendHeader(table.Row{"#", "Sentence", "Estimate", "Duration", "Start"})

	start := 0.0

	for _, frame := range frames {
		tw.AppendRow(table.Row{
			frame.Index,
			frame.Sentence,
			formatSeconds(timeline.Estimate(frame.Sentence)),
			formatSeconds(frame.Duration),
			audio.FormatDuration(start),
		})

		start += frame.Duration
	}

	durations := make([]float64, len(frames))
	for i, frame := range frames {
		durations[i] = frame.Duration
	}

	tw.AppendFooter(table.Row{"", "Total", "", formatSeconds(timeline.Sum(durations)), audio.FormatDuration(measured)})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignLeft, WidthMax: 60},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	return tw.Render()
}
