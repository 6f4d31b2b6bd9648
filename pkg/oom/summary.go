package oom

import (
	"errors"

	"github.com/leptonai/memscope/pkg/kernlog"
	"github.com/leptonai/memscope/pkg/log"
)

// Event is the summary of one "Mem-Info:" section.
// Exactly one of Usage and Err is set.
type Event struct {
	Section kernlog.Section `json:"-"`
	Usage   *Usage          `json:"usage,omitempty"`
	Err     error           `json:"-"`
}

// Skipped reports whether the section was left out of the report.
func (ev Event) Skipped() bool {
	return ev.Err != nil
}

// SummarizeOptions configures Summarize.
type SummarizeOptions struct {
	CalcOptions

	// Tables defaults to DefaultTables.
	Tables []FieldTable
}

// Summarize computes the summary of every "Mem-Info:" section of the log.
// A section missing total_pages_ram is returned with its error instead of
// aborting the others.
// Returns kernlog.ErrNoEvents if the log has no section at all.
func Summarize(text string, opts SummarizeOptions) ([]Event, error) {
	tables := opts.Tables
	if len(tables) == 0 {
		tables = DefaultTables()
	}

	var events []Event
	for s := range kernlog.Segment(text, kernlog.MemInfoAnchor) {
		ev := Event{Section: s}

		info, err := ExtractSection(s, tables)
		if err == nil {
			ev.Usage, err = Calculate(info, AggregateHugepages(s.Lines), opts.CalcOptions)
		}
		if err != nil {
			ev.Err = err
			if errors.Is(err, ErrTotalPagesRAMNotFound) {
				log.Logger.Warnw("skipping section", "timestamp", s.Timestamp.String(), "error", err)
			}
		}
		if info != nil && len(info.Invalid) > 0 {
			log.Logger.Warnw("unparseable fields defaulted to 0", "timestamp", s.Timestamp.String(), "fields", info.Invalid)
		}

		events = append(events, ev)
	}

	if len(events) == 0 {
		return nil, kernlog.ErrNoEvents
	}
	return events, nil
}
