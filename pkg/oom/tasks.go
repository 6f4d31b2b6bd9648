package oom

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/leptonai/memscope/pkg/kernlog"
	"github.com/leptonai/memscope/pkg/units"
)

var (
	// e.g.,
	// [ pid ]   uid  tgid total_vm      rss pgtables_bytes swapents oom_score_adj name
	// [  pid  ]   uid  tgid total_vm      rss rss_anon rss_file rss_shmem pgtables_bytes swapents oom_score_adj name
	regexTaskHeader = regexp.MustCompile(`\[\s*pid\s*\]\s+(.*)$`)

	// e.g.,
	// [  812]     0   812    10000     2000    86016        0             0 postgres
	regexTaskRow = regexp.MustCompile(`\[\s*(\d+)\]\s+(\d.*)$`)
)

// classic column layout, used when no header line is seen
var defaultTaskColumns = []string{"uid", "tgid", "total_vm", "rss", "pgtables_bytes", "swapents", "oom_score_adj", "name"}

// TaskUsage aggregates the OOM task dump rows of one process name.
type TaskUsage struct {
	Name      string `json:"name"`
	RSSPages  int64  `json:"rss_pages"`
	SwapPages int64  `json:"swap_pages"`
	Count     int    `json:"count"`
}

// TaskEvent is the task dump of one OOM killer invocation.
type TaskEvent struct {
	Section kernlog.Section `json:"-"`
	Header  string          `json:"header"`
	Victim  *Victim         `json:"victim,omitempty"`
	Tasks   []TaskUsage     `json:"tasks"`

	// Malformed counts rows that did not match the column layout.
	Malformed int `json:"malformed,omitempty"`
}

// TotalRSSPages sums RSS over every process, not only the displayed ones.
func (ev *TaskEvent) TotalRSSPages() int64 {
	var n int64
	for _, t := range ev.Tasks {
		n += t.RSSPages
	}
	return n
}

func (ev *TaskEvent) TotalSwapPages() int64 {
	var n int64
	for _, t := range ev.Tasks {
		n += t.SwapPages
	}
	return n
}

// ParseTasks aggregates the task dump rows of an OOM killer section by
// process name, sorted by RSS descending (ties by name).
func ParseTasks(s kernlog.Section) *TaskEvent {
	ev := &TaskEvent{Section: s, Header: s.Header, Victim: FindVictim(s.Lines)}

	columns := defaultTaskColumns
	byName := make(map[string]*TaskUsage)
	for _, line := range s.Lines {
		if m := regexTaskHeader.FindStringSubmatch(line); m != nil {
			columns = strings.Fields(m[1])
			continue
		}
		m := regexTaskRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		values := strings.Fields(m[2])
		if len(values) < len(columns) {
			ev.Malformed++
			continue
		}
		row := make(map[string]string, len(columns))
		for i, c := range columns[:len(columns)-1] {
			row[c] = values[i]
		}
		// process names may contain spaces
		name := strings.Join(values[len(columns)-1:], " ")

		rss, err := strconv.ParseInt(row["rss"], 10, 64)
		if err != nil {
			ev.Malformed++
			continue
		}
		var swap int64
		if v, ok := row["swapents"]; ok {
			swap, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				ev.Malformed++
				continue
			}
		}

		tu, ok := byName[name]
		if !ok {
			tu = &TaskUsage{Name: name}
			byName[name] = tu
		}
		tu.RSSPages += rss
		tu.SwapPages += swap
		tu.Count++
	}

	ev.Tasks = make([]TaskUsage, 0, len(byName))
	for _, tu := range byName {
		ev.Tasks = append(ev.Tasks, *tu)
	}
	sort.Slice(ev.Tasks, func(i, j int) bool {
		if ev.Tasks[i].RSSPages != ev.Tasks[j].RSSPages {
			return ev.Tasks[i].RSSPages > ev.Tasks[j].RSSPages
		}
		return ev.Tasks[i].Name < ev.Tasks[j].Name
	})
	return ev
}

// SummarizeTasks parses every OOM killer invocation of the log.
// Returns kernlog.ErrNoEvents if there is none.
func SummarizeTasks(text string) ([]*TaskEvent, error) {
	var events []*TaskEvent
	for s := range kernlog.Segment(text, kernlog.OOMKillerAnchor) {
		events = append(events, ParseTasks(s))
	}
	if len(events) == 0 {
		return nil, kernlog.ErrNoEvents
	}
	return events, nil
}

// TaskReportOptions configures RenderTasks.
type TaskReportOptions struct {
	Unit       units.Unit
	PageSizeKB int64
	TopN       int
	ShowSwap   bool
}

// RenderTasks writes the top processes by RSS of one OOM event,
// with a totals row computed over every process.
func RenderTasks(w io.Writer, ev *TaskEvent, opts TaskReportOptions) error {
	unit := opts.Unit
	if unit == "" {
		unit = units.MiB
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}
	format := func(pages int64) string {
		return units.Format(float64(pages), opts.PageSizeKB, unit)
	}

	buf := bytes.NewBuffer(nil)
	fmt.Fprintf(buf, "\nEvent: %s %s\n", ev.Section.Timestamp, ev.Header)
	if ev.Section.Truncated {
		fmt.Fprintln(buf, "(event truncated: no \"Killed process\" line before the next event or end of file)")
	}
	if ev.Victim != nil {
		fmt.Fprintf(buf, "Victim: %s (pid %d)\n", ev.Victim.Name, ev.Victim.PID)
	}

	header := []string{"RSS (" + unit.Label() + ")"}
	if opts.ShowSwap {
		header = append(header, "Swap ("+unit.Label()+")")
	}
	header = append(header, "Count", "Name")

	table := tablewriter.NewWriter(buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	if opts.ShowSwap {
		table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	} else {
		table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	}

	shown := ev.Tasks
	if len(shown) > topN {
		shown = shown[:topN]
	}
	var totalCount int
	for _, t := range ev.Tasks {
		totalCount += t.Count
	}
	for _, t := range shown {
		row := []string{format(t.RSSPages)}
		if opts.ShowSwap {
			row = append(row, format(t.SwapPages))
		}
		row = append(row, strconv.Itoa(t.Count), t.Name)
		table.Append(row)
	}

	footer := []string{format(ev.TotalRSSPages())}
	if opts.ShowSwap {
		footer = append(footer, format(ev.TotalSwapPages()))
	}
	footer = append(footer, strconv.Itoa(totalCount), "Total")
	table.SetFooter(footer)
	table.Render()

	_, err := w.Write(buf.Bytes())
	return err
}
