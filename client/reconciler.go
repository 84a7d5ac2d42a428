package client

import (
	"sort"
	"sync"

	"frt-gateway/models"
	"frt-gateway/services"
)

// MarkerSet reconciles the live map marker stream into the set of
// markers currently on the map. Markers are keyed by message id: a live
// frame with a known id replaces the stored marker (latest wins), and
// active=false retires it. Loading a stored snapshot applies the
// opposite rule: the first occurrence of an id wins, since the snapshot
// may contain superseded duplicates appended over time.
type MarkerSet struct {
	mu      sync.Mutex
	markers []models.MapStreamMessage
}

func NewMarkerSet() *MarkerSet {
	return &MarkerSet{}
}

// Load resets the set from a stored snapshot, keeping the first
// occurrence of each message id and dropping retired markers.
func (s *MarkerSet) Load(snapshot []models.MapStreamMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = s.markers[:0]
	seen := make(map[string]bool, len(snapshot))
	for _, m := range snapshot {
		if m.MessageID == "" || seen[m.MessageID] {
			continue
		}
		seen[m.MessageID] = true
		if m.Active {
			s.markers = append(s.markers, m)
		}
	}
}

// Apply folds one live frame into the set. The set stores only visible
// markers, so the append-everything-then-filter-inactive model collapses
// to: replace or remove on a known id, append on an unknown active one.
// A retire for an id never seen has nothing to remove and is dropped;
// the visible set comes out the same for every frame sequence.
func (s *MarkerSet) Apply(m models.MapStreamMessage) {
	if m.MessageID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.markers {
		if existing.MessageID != m.MessageID {
			continue
		}
		if !m.Active {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return
		}
		s.markers[i] = m
		return
	}
	if m.Active {
		s.markers = append(s.markers, m)
	}
}

// All returns a snapshot of the current markers in insertion order.
func (s *MarkerSet) All() []models.MapStreamMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MapStreamMessage, len(s.markers))
	copy(out, s.markers)
	return out
}

// Len reports the number of live markers.
func (s *MarkerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// Attendance response values carried in callback data.
const (
	AttendanceOK  = "ok"
	AttendanceSOS = "sos"
)

// AttendanceSummary buckets team members by their latest response to an
// attendance mission.
type AttendanceSummary struct {
	OK         []string `json:"ok"`
	SOS        []string `json:"sos"`
	NoResponse []string `json:"no_response"`
}

// SummarizeAttendance folds the button-press log into a summary. Only a
// member's latest response counts; the mission creator is excluded from
// every bucket; members with no logged response land in NoResponse.
func SummarizeAttendance(results []services.CallbackQueryResult, members []string, creatorID string) AttendanceSummary {
	latest := make(map[string]services.CallbackQueryResult)
	for _, r := range results {
		if r.UserID == "" || r.UserID == creatorID {
			continue
		}
		if prev, ok := latest[r.UserID]; !ok || r.Timestamp > prev.Timestamp {
			latest[r.UserID] = r
		}
	}

	var summary AttendanceSummary
	responded := make(map[string]bool, len(latest))
	for userID, r := range latest {
		responded[userID] = true
		switch r.Message.Data {
		case AttendanceOK:
			summary.OK = append(summary.OK, userID)
		case AttendanceSOS:
			summary.SOS = append(summary.SOS, userID)
		default:
			responded[userID] = false
		}
	}
	sort.Strings(summary.OK)
	sort.Strings(summary.SOS)

	for _, member := range members {
		if member == creatorID || responded[member] {
			continue
		}
		summary.NoResponse = append(summary.NoResponse, member)
	}
	return summary
}
