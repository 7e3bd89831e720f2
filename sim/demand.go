package sim

import (
	"fmt"
	"sort"
)

// RegistrationInfo records which users currently demand a chunk at a cell under
// one policy, and the transition-probability mass they contribute.
type RegistrationInfo struct {
	users         map[UserID]float64
	sumTransProbs float64
}

// Users returns the demanding users, sorted.
func (r *RegistrationInfo) Users() []UserID {
	out := make([]UserID, 0, len(r.users))
	for u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of demanding users.
func (r *RegistrationInfo) Len() int { return len(r.users) }

// IsEmpty reports whether nobody demands the chunk any more.
func (r *RegistrationInfo) IsEmpty() bool { return len(r.users) == 0 }

// SumTransProbs is the expected future demand for the chunk at the cell.
func (r *RegistrationInfo) SumTransProbs() float64 { return r.sumTransProbs }

// TransProb returns the probability contributed by user.
func (r *RegistrationInfo) TransProb(user UserID) (float64, bool) {
	p, ok := r.users[user]
	return p, ok
}

type demandKey struct {
	cell   CellID
	chunk  ChunkID
	policy string
}

type userKey struct {
	cell   CellID
	policy string
	user   UserID
}

// DemandRegistry holds outstanding demand per (cell, chunk, policy) and the
// request-frequency counters popularity valuations read.
// Owned by a single simulation; not safe for concurrent use.
type DemandRegistry struct {
	cells         map[CellID]bool
	registrations map[demandKey]*RegistrationInfo
	byUser        map[userKey]map[ChunkID]struct{}

	localRequests  map[CellID]map[ContentID]int64
	localTotals    map[CellID]int64
	globalRequests map[ContentID]int64
	globalTotal    int64
}

// NewDemandRegistry creates an empty registry.
func NewDemandRegistry() *DemandRegistry {
	return &DemandRegistry{
		cells:          make(map[CellID]bool),
		registrations:  make(map[demandKey]*RegistrationInfo),
		byUser:         make(map[userKey]map[ChunkID]struct{}),
		localRequests:  make(map[CellID]map[ContentID]int64),
		localTotals:    make(map[CellID]int64),
		globalRequests: make(map[ContentID]int64),
	}
}

// TrackCell makes the registry answer for cell even before any demand arrives.
func (d *DemandRegistry) TrackCell(cell CellID) {
	d.cells[cell] = true
}

// Tracks reports whether the registry holds state for cell.
func (d *DemandRegistry) Tracks(cell CellID) bool {
	return d.cells[cell]
}

// Register records that user demands chunk at cell under policy with the given
// transition probability. Re-registering a user replaces its probability.
func (d *DemandRegistry) Register(cell CellID, chunk ChunkID, policy string, user UserID, transProb float64) {
	if transProb < 0 || transProb > 1 {
		panic(fmt.Sprintf("DemandRegistry.Register: transition probability %f outside [0,1]", transProb))
	}
	d.cells[cell] = true
	key := demandKey{cell: cell, chunk: chunk, policy: policy}
	info, ok := d.registrations[key]
	if !ok {
		info = &RegistrationInfo{users: make(map[UserID]float64)}
		d.registrations[key] = info
	}
	if old, had := info.users[user]; had {
		info.sumTransProbs -= old
	}
	info.users[user] = transProb
	info.sumTransProbs += transProb

	uk := userKey{cell: cell, policy: policy, user: user}
	chunks, ok := d.byUser[uk]
	if !ok {
		chunks = make(map[ChunkID]struct{})
		d.byUser[uk] = chunks
	}
	chunks[chunk] = struct{}{}
}

// Cancel removes user's demand for chunk. A registration left without users is
// dropped, so the chunk becomes legacy cached. Returns false if nothing was registered.
func (d *DemandRegistry) Cancel(cell CellID, chunk ChunkID, policy string, user UserID) bool {
	key := demandKey{cell: cell, chunk: chunk, policy: policy}
	info, ok := d.registrations[key]
	if !ok {
		return false
	}
	p, had := info.users[user]
	if !had {
		return false
	}
	delete(info.users, user)
	info.sumTransProbs -= p
	if info.IsEmpty() {
		delete(d.registrations, key)
	}
	uk := userKey{cell: cell, policy: policy, user: user}
	if chunks, ok := d.byUser[uk]; ok {
		delete(chunks, chunk)
		if len(chunks) == 0 {
			delete(d.byUser, uk)
		}
	}
	return true
}

// CancelUser drops every registration user holds at cell under policy and
// returns how many were removed.
func (d *DemandRegistry) CancelUser(cell CellID, policy string, user UserID) int {
	uk := userKey{cell: cell, policy: policy, user: user}
	chunks := d.byUser[uk]
	ids := make([]ChunkID, 0, len(chunks))
	for id := range chunks {
		ids = append(ids, id)
	}
	n := 0
	for _, id := range ids {
		if d.Cancel(cell, id, policy, user) {
			n++
		}
	}
	return n
}

// HasUser reports whether user still holds any registration at cell under policy.
func (d *DemandRegistry) HasUser(cell CellID, policy string, user UserID) bool {
	return len(d.byUser[userKey{cell: cell, policy: policy, user: user}]) > 0
}

// Lookup returns the registration of chunk at cell under policy, if any.
func (d *DemandRegistry) Lookup(cell CellID, chunk ChunkID, policy string) (*RegistrationInfo, bool) {
	info, ok := d.registrations[demandKey{cell: cell, chunk: chunk, policy: policy}]
	return info, ok
}

// RecordRequest counts one request for content at cell.
func (d *DemandRegistry) RecordRequest(cell CellID, content ContentID) {
	d.cells[cell] = true
	m, ok := d.localRequests[cell]
	if !ok {
		m = make(map[ContentID]int64)
		d.localRequests[cell] = m
	}
	m[content]++
	d.localTotals[cell]++
	d.globalRequests[content]++
	d.globalTotal++
}

// LocalPopularity is the share of cell's requests that asked for content.
func (d *DemandRegistry) LocalPopularity(cell CellID, content ContentID) float64 {
	total := d.localTotals[cell]
	if total == 0 {
		return 0
	}
	return float64(d.localRequests[cell][content]) / float64(total)
}

// GlobalPopularity is the share of all requests that asked for content.
func (d *DemandRegistry) GlobalPopularity(content ContentID) float64 {
	if d.globalTotal == 0 {
		return 0
	}
	return float64(d.globalRequests[content]) / float64(d.globalTotal)
}
