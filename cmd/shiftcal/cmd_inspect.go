package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shiftcal/internal/ics"
	"shiftcal/internal/model"
)

const (
	inspectDate = "2006-01-02"
	inspectTime = "2006-01-02 15:04"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.ics>",
	Short: "List the events of an iCalendar file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		events, err := ics.Parse(string(data))
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "START\tEND\tSUMMARY\tLOCATION")
		for _, ev := range events {
			start, end := eventSpan(ev)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", start, end, ev.Summary, ev.Location)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d events (%d all-day)\n", events.Count(), events.AllDayCount())
		return nil
	},
}

func eventSpan(ev model.Event) (string, string) {
	if ev.AllDay {
		return ev.Start.Format(inspectDate), ev.End.Format(inspectDate)
	}
	return ev.Start.Format(inspectTime), ev.End.Format(inspectTime)
}
