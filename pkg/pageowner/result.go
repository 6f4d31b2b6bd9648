package pageowner

// UnknownProcess is used for allocations whose header carries no owner.
const UnknownProcess = "Unknown"

// Stat is the number of allocations and pages attributed to a key.
type Stat struct {
	Count int64 `json:"count"`
	Pages int64 `json:"pages"`
}

func (s *Stat) add(pages int64) {
	s.Count++
	s.Pages += pages
}

// Split separates slab from non-slab allocations.
type Split struct {
	Slab    Stat `json:"slab"`
	NonSlab Stat `json:"non_slab"`
}

func (s Split) Total() Stat {
	return Stat{Count: s.Slab.Count + s.NonSlab.Count, Pages: s.Slab.Pages + s.NonSlab.Pages}
}

func (s *Split) add(slab bool, pages int64) {
	if slab {
		s.Slab.add(pages)
	} else {
		s.NonSlab.add(pages)
	}
}

// CallTrace is one distinct call stack, keyed by the SHA-256 of its lines.
type CallTrace struct {
	Stat
	Key   string   `json:"key"`
	Lines []string `json:"lines"`

	// Owner of the first allocation seen with this stack.
	FirstPID     int    `json:"first_pid"`
	FirstTGID    int    `json:"first_tgid"`
	FirstProcess string `json:"first_process"`
	FirstTS      int64  `json:"first_ts_ns"`
}

// Skipped counts the blocks left out of the aggregates.
type Skipped struct {
	// MissingMatch counts headers matching no known allocation format.
	MissingMatch int64 `json:"missing_match"`
	// IncompleteTrace counts blank lines seen with no open allocation.
	IncompleteTrace int64 `json:"incomplete_trace"`
	// InvalidOrder counts headers whose order is not an integer.
	InvalidOrder int64 `json:"invalid_order"`
}

func (s Skipped) Total() int64 {
	return s.MissingMatch + s.IncompleteTrace + s.InvalidOrder
}

type ProcessModule struct {
	Process string
	Module  string
}

type ProcessTrace struct {
	Process string
	Key     string
}

type ModuleOrder struct {
	Module string
	Order  int
}

type NodeZone struct {
	Node int `json:"node"`
	Zone int `json:"zone"`
}

// Result holds every aggregate of one page_owner dump.
// Aggregates only ever grow while parsing.
type Result struct {
	Allocations int64 `json:"allocations"`
	Pages       int64 `json:"pages"`

	// OwnerInfo is true when at least one header carried pid/tgid/process.
	OwnerInfo bool `json:"owner_info"`

	Skipped Skipped `json:"skipped"`

	Processes     map[string]*Stat      `json:"processes"`
	Modules       map[string]*Stat      `json:"modules"`
	SlabFunctions map[string]*Stat      `json:"slab_functions"`
	CallTraces    map[string]*CallTrace `json:"-"`

	ProcessModules   map[ProcessModule]*Stat `json:"-"`
	ProcessTraces    map[ProcessTrace]*Stat  `json:"-"`
	ModuleOrderStats map[ModuleOrder]*Stat   `json:"-"`

	OrderStats  map[int]*Split    `json:"orders"`
	ProcessSlab map[string]*Split `json:"-"`

	// PFNs counts PFN lines per order.
	PFNs map[int]int64 `json:"pfns"`
	// ZoneStats attributes allocations whose PFN flags name a node and zone.
	ZoneStats map[NodeZone]*Stat `json:"-"`
}

func newResult() *Result {
	return &Result{
		Processes:        make(map[string]*Stat),
		Modules:          make(map[string]*Stat),
		SlabFunctions:    make(map[string]*Stat),
		CallTraces:       make(map[string]*CallTrace),
		ProcessModules:   make(map[ProcessModule]*Stat),
		ProcessTraces:    make(map[ProcessTrace]*Stat),
		ModuleOrderStats: make(map[ModuleOrder]*Stat),
		OrderStats:       make(map[int]*Split),
		ProcessSlab:      make(map[string]*Split),
		PFNs:             make(map[int]int64),
		ZoneStats:        make(map[NodeZone]*Stat),
	}
}

func statOf[K comparable](m map[K]*Stat, k K) *Stat {
	s, ok := m[k]
	if !ok {
		s = &Stat{}
		m[k] = s
	}
	return s
}

func splitOf[K comparable](m map[K]*Split, k K) *Split {
	s, ok := m[k]
	if !ok {
		s = &Split{}
		m[k] = s
	}
	return s
}
