package oom

import (
	"regexp"
	"strconv"
)

var (
	// e.g.,
	// Node 0 hugepages_total=16 hugepages_free=4 hugepages_surp=0 hugepages_size=1048576kB
	regexNodeLine      = regexp.MustCompile(`Node (\d+) (.*)`)
	regexNodeHugeTotal = regexp.MustCompile(`hugepages_total=(\d+)`)
	regexNodeHugeFree  = regexp.MustCompile(`hugepages_free=(\d+)`)
	regexNodeHugeSize  = regexp.MustCompile(`hugepages_size=(\d+)kB`)
)

// HugepageNode is one per-node, per-size hugepage pool line.
type HugepageNode struct {
	NodeID int   `json:"node_id"`
	Total  int64 `json:"total"`
	Free   int64 `json:"free"`
	SizeKB int64 `json:"size_kb"`
}

func (n HugepageNode) Used() int64 {
	return n.Total - n.Free
}

func (n HugepageNode) MemoryKB() int64 {
	return n.Total * n.SizeKB
}

func (n HugepageNode) UsedKB() int64 {
	return n.Used() * n.SizeKB
}

// HugepageTotals is the hugepage memory summed over every node line.
type HugepageTotals struct {
	TotalKB int64          `json:"total_kb"`
	UsedKB  int64          `json:"used_kb"`
	Nodes   []HugepageNode `json:"nodes,omitempty"`
}

// AggregateHugepages sums the "Node <N> hugepages_*" lines of the lines.
// Lines missing any of total, free or size are ignored.
// No node line at all yields zero totals.
func AggregateHugepages(lines []string) HugepageTotals {
	var totals HugepageTotals
	for _, line := range lines {
		m := regexNodeLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rest := m[2]

		mt := regexNodeHugeTotal.FindStringSubmatch(rest)
		mf := regexNodeHugeFree.FindStringSubmatch(rest)
		ms := regexNodeHugeSize.FindStringSubmatch(rest)
		if mt == nil || mf == nil || ms == nil {
			continue
		}

		nodeID, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total, err1 := strconv.ParseInt(mt[1], 10, 64)
		free, err2 := strconv.ParseInt(mf[1], 10, 64)
		size, err3 := strconv.ParseInt(ms[1], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}

		node := HugepageNode{NodeID: nodeID, Total: total, Free: free, SizeKB: size}
		totals.Nodes = append(totals.Nodes, node)
		totals.TotalKB += node.MemoryKB()
		totals.UsedKB += node.UsedKB()
	}
	return totals
}
