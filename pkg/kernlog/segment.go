// Package kernlog splits raw kernel log text into event sections.
package kernlog

import (
	"iter"
	"regexp"
	"strings"
)

// Anchor describes where a section starts and, optionally, where it ends.
type Anchor struct {
	Name string

	// Start matches the first line of a section.
	Start *regexp.Regexp

	// End, if set, matches the last line of a section (inclusive).
	// Lines after End and before the next Start belong to no section.
	// If nil, a section runs until right before the next Start or EOF.
	End *regexp.Regexp
}

var (
	// MemInfoAnchor splits a log at every "Mem-Info:" memory dump.
	MemInfoAnchor = Anchor{
		Name:  "mem-info",
		Start: regexp.MustCompile(`Mem-Info`),
	}

	// OOMKillerAnchor spans from the oom-killer invocation to the victim line.
	//
	// e.g.,
	// postgres invoked oom-killer: gfp_mask=0x201d2, order=0, oom_score_adj=0
	// ...
	// Out of memory: Killed process 123 (postgres) total-vm:...
	OOMKillerAnchor = Anchor{
		Name:  "oom-killer",
		Start: regexp.MustCompile(`invoked oom-killer`),
		End:   regexp.MustCompile(`Out of memory: Kill(?:ed)? process`),
	}
)

// Section is one event of a log, from its anchor line to its last line.
type Section struct {
	Anchor string

	// Timestamp of the anchor line.
	Timestamp Timestamp

	// Header is the anchor line without timestamp prefixes.
	Header string

	Lines []string

	// Truncated is true when the anchor has an End pattern
	// and the section ran into the next Start or EOF before matching it.
	Truncated bool
}

// Text returns the section lines joined by newlines.
func (s Section) Text() string {
	return strings.Join(s.Lines, "\n")
}

// Segment returns the sections of text delimited by the anchor.
// The sequence is lazy and can be ranged over any number of times.
func Segment(text string, a Anchor) iter.Seq[Section] {
	return func(yield func(Section) bool) {
		var cur *Section
		emit := func(truncated bool) bool {
			s := *cur
			s.Truncated = truncated
			cur = nil
			return yield(s)
		}

		for line := range strings.Lines(text) {
			line = strings.TrimRight(line, "\r\n")

			if a.Start.MatchString(line) {
				if cur != nil && !emit(a.End != nil) {
					return
				}
				ts, header := ParseLine(line)
				cur = &Section{
					Anchor:    a.Name,
					Timestamp: ts,
					Header:    header,
					Lines:     []string{line},
				}
				continue
			}
			if cur == nil {
				continue
			}

			cur.Lines = append(cur.Lines, line)
			if a.End != nil && a.End.MatchString(line) {
				if !emit(false) {
					return
				}
			}
		}

		if cur != nil {
			emit(a.End != nil)
		}
	}
}

// Collect gathers every section into a slice.
func Collect(text string, a Anchor) []Section {
	var out []Section
	for s := range Segment(text, a) {
		out = append(out, s)
	}
	return out
}
