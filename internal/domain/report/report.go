// Package report compiles a finished tracking session into paged results.
package report

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/osa030/vctrack/internal/domain/entry"
	"github.com/osa030/vctrack/internal/domain/member"
	"github.com/osa030/vctrack/internal/domain/reward"
)

const (
	// Title is the title of the first results page.
	Title = "Voice Tracking Results"
	// ContinuedTitle is the title of every following page.
	ContinuedTitle = "Voice Tracking Results (Continued)"
	// Description is shown on the first page only.
	Description = "Here are the results for this session:"
	// TotalsName is the name of the closing totals field.
	TotalsName = "Total Stats"
)

// Field is a labelled block of page content.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Page is one bounded unit of report output.
type Page struct {
	Title       string
	Description string
	Fields      []Field
}

// Line is the computed result of one reported user.
type Line struct {
	UserID  string
	Tag     string
	Elapsed time.Duration
	Reward  reward.Result
}

// Report is the compiled result of a session.
type Report struct {
	Pages        []Page
	Lines        []Line
	TotalElapsed time.Duration
	TotalCoins   int
	GeneratedAt  time.Time
}

// Layout bounds the size of each page.
type Layout struct {
	CharBudget int // Soft budget of content characters per page
	MaxFields  int // Hard cap of fields per page
}

// DefaultLayout returns the layout used when none is configured.
func DefaultLayout() Layout {
	return Layout{CharBudget: 1000, MaxFields: 25}
}

// MemberLookup resolves a user ID to its current guild membership.
// It returns false for users that are no longer in the guild.
type MemberLookup func(userID string) (member.Member, bool)

// Compiler turns a store snapshot into a report.
type Compiler struct {
	Calculator reward.Calculator
	Layout     Layout
}

// Compile reduces entries, in the given order, into a paged report.
// Users the lookup cannot resolve are left out of the pages and the totals.
func (c Compiler) Compile(entries []*entry.Entry, now time.Time, lookup MemberLookup) *Report {
	r := &Report{GeneratedAt: now}
	p := newPaginator(c.layout())

	for _, e := range entries {
		m, ok := lookup(e.UserID)
		if !ok {
			continue
		}
		tag := m.Tag
		if tag == "" {
			tag = e.DisplayName
		}

		elapsed := e.Elapsed(now)
		res := c.Calculator.Compute(elapsed, m.Roles)

		r.TotalElapsed += elapsed
		r.TotalCoins += res.Coins
		r.Lines = append(r.Lines, Line{
			UserID:  e.UserID,
			Tag:     tag,
			Elapsed: elapsed,
			Reward:  res,
		})

		value := userValue(e.UserID, elapsed, res)
		p.add(Field{Name: tag, Value: value, Inline: true}, runes(value)+runes(tag))
	}

	totals := fmt.Sprintf("Total Time: %s\nTotal Coins: %d", FormatDuration(r.TotalElapsed), r.TotalCoins)
	p.add(Field{Name: TotalsName, Value: totals}, runes(totals))

	r.Pages = p.finish()
	return r
}

func (c Compiler) layout() Layout {
	l := c.Layout
	def := DefaultLayout()
	if l.CharBudget <= 0 {
		l.CharBudget = def.CharBudget
	}
	if l.MaxFields <= 0 {
		l.MaxFields = def.MaxFields
	}
	return l
}

// userValue renders the per-user field content.
func userValue(userID string, elapsed time.Duration, res reward.Result) string {
	v := fmt.Sprintf("<@%s>\nTime: %s\nCoins: %d", userID, FormatDuration(elapsed), res.Coins)
	if res.BoostPercent > 0 {
		v += fmt.Sprintf(" (%d%% boost)", res.BoostPercent)
	}
	return v
}

// FormatDuration renders d as "1h 2m 3s". Hours are shown only when
// non-zero, minutes when minutes or hours are non-zero, seconds always.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	if minutes > 0 || hours > 0 {
		fmt.Fprintf(&b, "%dm ", minutes)
	}
	fmt.Fprintf(&b, "%ds", secs)
	return b.String()
}

func runes(s string) int {
	return utf8.RuneCountInString(s)
}

// paginator places fields onto pages in order.
type paginator struct {
	layout Layout
	pages  []Page
	cur    Page
	used   int
}

func newPaginator(layout Layout) *paginator {
	return &paginator{
		layout: layout,
		cur:    Page{Title: Title, Description: Description},
	}
}

// add closes the current page first when the field would overrun the
// character budget or the page is already full. An empty page is never closed.
func (p *paginator) add(f Field, size int) {
	if len(p.cur.Fields) > 0 &&
		(p.used+size > p.layout.CharBudget || len(p.cur.Fields) >= p.layout.MaxFields) {
		p.pages = append(p.pages, p.cur)
		p.cur = Page{Title: ContinuedTitle}
		p.used = 0
	}
	p.cur.Fields = append(p.cur.Fields, f)
	p.used += size
}

func (p *paginator) finish() []Page {
	return append(p.pages, p.cur)
}
