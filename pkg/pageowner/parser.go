// Package pageowner aggregates the kernel page_owner debug dump
// (/sys/kernel/debug/page_owner) by process, module, slab function and call trace.
package pageowner

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/patrickmn/go-cache"
)

// ErrNoAllocations means the dump holds no parseable allocation block.
var ErrNoAllocations = errors.New("no page allocations found")

// DefaultSlabFunctions marks an allocation as slab when any trace line
// contains one of these names. This is a heuristic: kernels that inline
// or rename the allocator entry points are misclassified as non-slab.
var DefaultSlabFunctions = []string{
	"kmem_cache_alloc",
	"kmem_cache_alloc_node",
	"allocate_slab",
	"___slab_alloc",
	"kmem_cache_alloc_lru",
	"slab_alloc",
	"__slab_alloc",
	"__kmalloc",
}

// maxOrder bounds 2^order so page and byte totals stay within int64.
// Kernels use MAX_ORDER 10 to 13; anything larger is a corrupt header.
const maxOrder = 20

var (
	// e.g.,
	// Page allocated via order 3, mask 0x52dc0(GFP_KERNEL|__GFP_NOWARN|__GFP_COMP|__GFP_ZERO), pid 100, tgid 100 (myapp), ts 12345 ns
	// Page allocated via order 0, mask 0x100cca(GFP_HIGHUSER_MOVABLE), pid 300, ts 1 ns, free_ts 0 ns
	// Page allocated via order 0, mask 0x100cca(GFP_HIGHUSER_MOVABLE)
	// the order may not be numeric in truncated dumps
	regexHeader = regexp.MustCompile(`order (\S+), mask ([^,\s]*)`)

	// owner fields vary by kernel version, each is matched on its own
	regexPID  = regexp.MustCompile(`\bpid (\d+)`)
	regexTGID = regexp.MustCompile(`\btgid (\d+) \((.+?)\)`)
	regexTS   = regexp.MustCompile(`\bts (\d+) ns`)

	// e.g.,
	// PFN 0x100000 type Movable Block 2048 type Movable Flags 0x17ffffc0000000(node=0|zone=2|lastcpupid=0x1fffff)
	regexPFNNodeZone = regexp.MustCompile(`node=(\d+).*?zone=(\d+)`)

	// e.g.,
	// nvkms_alloc+0x2c/0x60 [nvidia_modeset]
	regexModule = regexp.MustCompile(`\[([\w-]+)\]\s*$`)
)

// State of the page_owner block parser.
type State int

const (
	// StateIdle waits for a "Page allocated" header.
	StateIdle State = iota
	// StateInTrace collects call-trace lines until a blank line.
	StateInTrace
	// StateSkipping discards the block of a rejected header until its blank line.
	StateSkipping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInTrace:
		return "in-trace"
	case StateSkipping:
		return "skipping"
	default:
		return "unknown"
	}
}

// Allocation is one "Page allocated" block.
type Allocation struct {
	Order   int
	Mask    string
	PID     int
	TGID    int
	Process string
	TS      int64

	// HasOwner is true when the header carried a pid or a tgid with its process name.
	HasOwner bool

	// HasZone is true once a PFN line named the node and zone.
	HasZone bool
	Zone    NodeZone

	Trace []string
}

// Pages returns 2^order.
func (a *Allocation) Pages() int64 {
	return int64(1) << a.Order
}

// lineClass is the memoized classification of one trace line.
type lineClass struct {
	module   string
	slab     bool
	slabFunc string
}

// Parser is the page_owner block state machine.
// Feed every line, then Close to finalize the last block.
type Parser struct {
	op Op

	state State
	cur   *Allocation
	res   *Result
}

func NewParser(opts ...OpOption) (*Parser, error) {
	p := &Parser{res: newResult()}
	if err := p.op.applyOpts(opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) State() State {
	return p.state
}

// Feed advances the state machine by one line.
func (p *Parser) Feed(line string) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, "Page allocated") {
		if p.state == StateInTrace {
			p.finalize()
		}
		p.startAllocation(line)
		return
	}

	switch p.state {
	case StateInTrace:
		switch {
		case line == "":
			p.finalize()
		case strings.HasPrefix(line, "PFN"):
			p.pfn(line)
		default:
			p.cur.Trace = append(p.cur.Trace, line)
		}

	case StateSkipping:
		if line == "" {
			p.state = StateIdle
		}

	default:
		if line == "" {
			p.res.Skipped.IncompleteTrace++
		}
	}
}

// Close finalizes an allocation left open at end of input and returns the aggregates.
func (p *Parser) Close() *Result {
	if p.state == StateInTrace {
		p.finalize()
	}
	p.state = StateIdle
	return p.res
}

func (p *Parser) startAllocation(line string) {
	m := regexHeader.FindStringSubmatch(line)
	if m == nil {
		p.res.Skipped.MissingMatch++
		p.state = StateSkipping
		return
	}
	order, err := strconv.Atoi(m[1])
	if err != nil || order < 0 || order > maxOrder {
		p.res.Skipped.InvalidOrder++
		p.state = StateSkipping
		return
	}

	a := &Allocation{Order: order, Mask: m[2], PID: -1, TGID: -1, Process: UnknownProcess, TS: -1}
	if pm := regexPID.FindStringSubmatch(line); pm != nil {
		if pid, err := strconv.Atoi(pm[1]); err == nil {
			a.PID = pid
			a.HasOwner = true
		}
	}
	if tm := regexTGID.FindStringSubmatch(line); tm != nil {
		if tgid, err := strconv.Atoi(tm[1]); err == nil {
			a.TGID, a.Process = tgid, tm[2]
			a.HasOwner = true
		}
	}
	if sm := regexTS.FindStringSubmatch(line); sm != nil {
		if ts, err := strconv.ParseInt(sm[1], 10, 64); err == nil {
			a.TS = ts
		}
	}

	p.cur = a
	p.state = StateInTrace
}

func (p *Parser) pfn(line string) {
	p.res.PFNs[p.cur.Order]++

	m := regexPFNNodeZone.FindStringSubmatch(line)
	if m == nil {
		return
	}
	node, err1 := strconv.Atoi(m[1])
	zone, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return
	}
	p.cur.HasZone = true
	p.cur.Zone = NodeZone{Node: node, Zone: zone}
}

func (p *Parser) classify(line string) lineClass {
	if v, ok := p.op.lineCache.Get(line); ok {
		return v.(lineClass)
	}

	var lc lineClass
	if m := regexModule.FindStringSubmatch(line); m != nil {
		lc.module = m[1]
	}
	for _, fn := range p.op.slabFunctions {
		if strings.Contains(line, fn) {
			lc.slab = true
			lc.slabFunc, _, _ = strings.Cut(line, "+")
			lc.slabFunc = strings.TrimSpace(lc.slabFunc)
			break
		}
	}

	p.op.lineCache.Set(line, lc, cache.NoExpiration)
	return lc
}

func (p *Parser) finalize() {
	a := p.cur
	p.cur = nil
	p.state = StateIdle
	if a == nil {
		return
	}

	res := p.res
	pages := a.Pages()
	res.Allocations++
	res.Pages += pages
	if a.HasOwner {
		res.OwnerInfo = true
	}

	slab := false
	slabFunc := ""
	modules := make([]string, 0, 2)
	seen := make(map[string]struct{})
	for _, line := range a.Trace {
		lc := p.classify(line)
		if lc.slab && !slab {
			slab = true
			slabFunc = lc.slabFunc
		}
		if lc.module == "" {
			continue
		}
		if _, ok := seen[lc.module]; ok {
			continue
		}
		seen[lc.module] = struct{}{}
		modules = append(modules, lc.module)
	}

	statOf(res.Processes, a.Process).add(pages)
	for _, mod := range modules {
		statOf(res.Modules, mod).add(pages)
		statOf(res.ProcessModules, ProcessModule{Process: a.Process, Module: mod}).add(pages)
		statOf(res.ModuleOrderStats, ModuleOrder{Module: mod, Order: a.Order}).add(pages)
	}
	if slab {
		statOf(res.SlabFunctions, slabFunc).add(pages)
	}
	splitOf(res.OrderStats, a.Order).add(slab, pages)
	splitOf(res.ProcessSlab, a.Process).add(slab, pages)
	if a.HasZone {
		statOf(res.ZoneStats, a.Zone).add(pages)
	}

	key := traceKey(a.Trace)
	ct, ok := res.CallTraces[key]
	if !ok {
		ct = &CallTrace{
			Key:          key,
			Lines:        append([]string(nil), a.Trace...),
			FirstPID:     a.PID,
			FirstTGID:    a.TGID,
			FirstProcess: a.Process,
			FirstTS:      a.TS,
		}
		res.CallTraces[key] = ct
	}
	ct.add(pages)
	statOf(res.ProcessTraces, ProcessTrace{Process: a.Process, Key: key}).add(pages)
}

func traceKey(lines []string) string {
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// Parse runs the state machine over every line of r.
// Returns ErrNoAllocations along with the result (and its skip counters)
// when no block could be aggregated.
func Parse(r io.Reader, opts ...OpOption) (*Result, error) {
	p, err := NewParser(opts...)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.Feed(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read page_owner dump: %w", err)
	}

	res := p.Close()
	if res.Allocations == 0 {
		return res, ErrNoAllocations
	}
	return res, nil
}

// ParseFile parses the page_owner dump at path.
func ParseFile(path string, opts ...OpOption) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page_owner file: %w", err)
	}
	defer f.Close()

	return Parse(f, opts...)
}
