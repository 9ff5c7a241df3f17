// Package monitor keeps the ledger of garbage locations: who owned each
// one initially, who reached it and when. It is the only progress signal
// of a run and is dumped for post-run analysis.
package monitor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	orb "github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog"
)

// Clock is the simulation time source.
type Clock interface {
	Now() time.Duration
}

// Entry is the record of a single garbage location
type Entry struct {
	Position     orb.Point
	InitialOwner string
	ReachedBy    string
	ReachedAt    time.Duration
}

// Reached tells whether somebody got there already
func (e Entry) Reached() bool {
	return e.ReachedBy != ""
}

func (e Entry) String() string {
	by := e.ReachedBy
	if by == "" {
		by = "none"
	}
	return fmt.Sprintf("[[%.1fm, %.1fm], initialOwner: %s, reachedBy: %s, time: %d ms]",
		e.Position.X(), e.Position.Y(), e.InitialOwner, by, e.ReachedAt.Milliseconds())
}

// Ledger is safe for concurrent use, robots report from their own goroutines.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	clock   Clock
	eps     float64
	log     zerolog.Logger
}

// NewLedger creates an empty ledger. Reports closer than eps to a known
// location count for that location.
func NewLedger(clock Clock, eps float64, log zerolog.Logger) *Ledger {
	return &Ledger{
		clock: clock,
		eps:   eps,
		log:   log.With().Str("component", "monitor").Logger(),
	}
}

// AddPosition registers a garbage location initially assigned to owner.
func (l *Ledger) AddPosition(p orb.Point, owner string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Position: p, InitialOwner: owner})
}

// ReportReached records that robotID reached p. Reaching a location twice
// is logged and ignored. It returns true when something was recorded.
func (l *Ledger) ReportReached(p orb.Point, robotID string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recorded := false
	for i := range l.entries {
		e := &l.entries[i]
		if planar.Distance(e.Position, p) >= l.eps {
			continue
		}
		if e.Reached() {
			l.log.Warn().
				Interface("position", e.Position).
				Str("robot", robotID).
				Str("first", e.ReachedBy).
				Msg("position reached again")
			continue
		}
		e.ReachedBy = robotID
		e.ReachedAt = now
		recorded = true
	}
	return recorded
}

// Entries returns a copy of all records in insertion order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Summary is what the results script extracted from a run
type Summary struct {
	Total     int
	Reached   int
	LastReach time.Duration
	ByRobot   map[string]int
}

// Done tells whether every location was reached.
func (s Summary) Done() bool {
	return s.Total == s.Reached
}

// Summarize aggregates a list of records.
func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries), ByRobot: map[string]int{}}
	for _, e := range entries {
		if !e.Reached() {
			continue
		}
		s.Reached++
		s.ByRobot[e.ReachedBy]++
		if e.ReachedAt > s.LastReach {
			s.LastReach = e.ReachedAt
		}
	}
	return s
}

// Summary aggregates the current ledger.
func (l *Ledger) Summary() Summary {
	return Summarize(l.Entries())
}

func (l *Ledger) String() string {
	var b strings.Builder
	for _, e := range l.Entries() {
		b.WriteString(e.String())
		b.WriteString(", ")
	}
	return b.String()
}

// PrintStatus pretty prints every record, reached ones in green.
func (l *Ledger) PrintStatus(w io.Writer) {
	reached := color.New(color.FgGreen)
	pending := color.New(color.FgRed)

	fmt.Fprintln(w, ">>> Waypoint status:")
	for _, e := range l.Entries() {
		if e.Reached() {
			reached.Fprintln(w, e.String())
		} else {
			pending.Fprintln(w, e.String())
		}
	}
	s := l.Summary()
	fmt.Fprintf(w, ">>> %d/%d reached, last at %d ms\n", s.Reached, s.Total, s.LastReach.Milliseconds())
}

// WriteStats writes one line per record: initial owner, reached by and time in ms.
func (l *Ledger) WriteStats(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating stats file: %w", err)
	}
	defer f.Close()

	out := bufio.NewWriter(f)
	for _, e := range l.Entries() {
		by := e.ReachedBy
		if by == "" {
			by = "none"
		}
		fmt.Fprintf(out, "%s %s %d\n", e.InitialOwner, by, e.ReachedAt.Milliseconds())
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("writing stats file: %w", err)
	}
	return f.Close()
}
