package oom

import (
	"regexp"
	"strconv"
)

var (
	// e.g.,
	// Out of memory: Killed process 123 (httpd) total-vm:...
	// Memory cgroup out of memory: Kill process 123 (httpd) score 1000 or sacrifice child
	regexKilledProcess = regexp.MustCompile(`Kill(?:ed)? process (\d+) \(([^)]*)\)`)

	// e.g.,
	// oom-kill:constraint=CONSTRAINT_MEMCG,nodemask=(null),cpuset=/,...
	regexConstraint = regexp.MustCompile(`oom-kill:constraint=([^,\s]+)`)
)

// Victim is the process the OOM killer chose.
type Victim struct {
	PID        int    `json:"pid"`
	Name       string `json:"name"`
	Constraint string `json:"constraint,omitempty"`
}

// FindVictim returns the killed process of an OOM event, or nil.
func FindVictim(lines []string) *Victim {
	var v *Victim
	var constraint string
	for _, line := range lines {
		if m := regexConstraint.FindStringSubmatch(line); m != nil {
			constraint = m[1]
		}
		if v != nil {
			continue
		}
		if m := regexKilledProcess.FindStringSubmatch(line); m != nil {
			pid, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			v = &Victim{PID: pid, Name: m[2]}
		}
	}
	if v != nil {
		v.Constraint = constraint
	}
	return v
}
