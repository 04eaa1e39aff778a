// Package frametimer tracks wall-clock budgets for named sections of a frame.
//
// Every budget is measured from the start of the frame. Work that can be
// split across frames polls IsTimeBudgetExceededForSection between items and
// stops early once its section ran out of time:
//
//	timer := frametimer.New()
//	timer.SetSectionBudget(frametimer.SectionClientResourcesUpload, 4*time.Millisecond)
//
//	for { // render loop
//	    timer.StartFrame()
//	    ...
//	    if timer.IsTimeBudgetExceededForSection(frametimer.SectionClientResourcesUpload) {
//	        break
//	    }
//	}
//
// Polling costs a clock read, so callers should check every few items rather
// than after each one.
package frametimer

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Section is a named budget category within a frame.
type Section uint8

const (
	SectionClientResourcesUpload Section = iota
	SectionSceneResourcesUpload
	SectionSceneActionsApply
	SectionOffscreenBufferRender

	numSections
)

var sectionNames = [numSections]string{
	SectionClientResourcesUpload: "client_resources_upload",
	SectionSceneResourcesUpload:  "scene_resources_upload",
	SectionSceneActionsApply:     "scene_actions_apply",
	SectionOffscreenBufferRender: "offscreen_buffer_render",
}

// String returns the configuration name of the section.
func (s Section) String() string {
	if s < numSections {
		return sectionNames[s]
	}
	return fmt.Sprintf("Section(%d)", uint8(s))
}

// ParseSection maps a configuration name to a Section.
func ParseSection(name string) (Section, error) {
	for i, n := range sectionNames {
		if strings.EqualFold(n, name) {
			return Section(i), nil
		}
	}
	return 0, fmt.Errorf("frametimer: unknown section %q", name)
}

// Sections returns all sections.
func Sections() []Section {
	out := make([]Section, numSections)
	for i := range out {
		out[i] = Section(i)
	}
	return out
}

// Unlimited is the budget of a section that never runs out of time.
const Unlimited = time.Duration(math.MaxInt64)

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithSectionBudget sets the initial budget of a section.
func WithSectionBudget(s Section, d time.Duration) Option {
	return func(t *Timer) {
		t.SetSectionBudget(s, d)
	}
}

// Timer measures elapsed frame time against per-section budgets.
// A Timer is meant to be used from the render thread only.
type Timer struct {
	now        func() time.Time
	frameStart time.Time
	budgets    [numSections]time.Duration
}

// New creates a timer with all budgets unlimited. The first frame starts now.
func New(optFns ...Option) *Timer {
	t := &Timer{now: time.Now}
	for i := range t.budgets {
		t.budgets[i] = Unlimited
	}
	for _, fn := range optFns {
		fn(t)
	}
	t.frameStart = t.now()
	return t
}

// StartFrame resets the reference point of all budgets.
func (t *Timer) StartFrame() {
	t.frameStart = t.now()
}

// FrameStart returns the time the current frame started.
func (t *Timer) FrameStart() time.Time {
	return t.frameStart
}

// Elapsed returns the time since the current frame started.
func (t *Timer) Elapsed() time.Duration {
	return t.now().Sub(t.frameStart)
}

// SetSectionBudget sets the budget of s. Zero or negative budgets mean unlimited.
func (t *Timer) SetSectionBudget(s Section, d time.Duration) {
	if s >= numSections {
		return
	}
	if d <= 0 {
		d = Unlimited
	}
	t.budgets[s] = d
}

// SectionBudget returns the budget of s.
func (t *Timer) SectionBudget(s Section) time.Duration {
	if s >= numSections {
		return Unlimited
	}
	return t.budgets[s]
}

// IsTimeBudgetExceededForSection reports whether the frame has run longer
// than the budget of s.
func (t *Timer) IsTimeBudgetExceededForSection(s Section) bool {
	budget := t.SectionBudget(s)
	if budget == Unlimited {
		return false
	}
	return t.Elapsed() > budget
}
