package progress

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the version written by this package.
const SchemaVersion = 2

// Well-known cache keys shared by the onboarding steps.
const (
	CacheTenant         = "tenant"
	CacheMonitoringUser = "monitoring_user"
)

// Document is the on-disk progress file.
type Document struct {
	SchemaVersion int                `json:"schema_version"`
	Tickets       map[string]*Ticket `json:"tickets"`
}

// Ticket is the progress record for one ticket.
type Ticket struct {
	StartedAt       time.Time               `json:"started_at"`
	MonitorPassword *string                 `json:"monitor_password"`
	Environments    map[string]*Environment `json:"environments"`
	Completed       bool                    `json:"completed"`
	CompletedAt     *time.Time              `json:"completed_at"`
}

// Environment is the progress record for one (ticket, environment) pair.
type Environment struct {
	StepsDone   []int                      `json:"steps_done"`
	Cache       map[string]json.RawMessage `json:"cache"`
	Completed   bool                       `json:"completed"`
	CompletedAt *time.Time                 `json:"completed_at"`
}

func newDocument() *Document {
	return &Document{
		SchemaVersion: SchemaVersion,
		Tickets:       make(map[string]*Ticket),
	}
}

func newTicket(now time.Time) *Ticket {
	return &Ticket{
		StartedAt:    now,
		Environments: make(map[string]*Environment),
	}
}

func newEnvironment() *Environment {
	return &Environment{
		StepsDone: []int{},
		Cache:     make(map[string]json.RawMessage),
	}
}

func (e *Environment) hasStep(step int) bool {
	for _, s := range e.StepsDone {
		if s == step {
			return true
		}
	}
	return false
}

// fill replaces nil collections and collapses duplicate ordinals.
func (d *Document) fill() {
	if d.Tickets == nil {
		d.Tickets = make(map[string]*Ticket)
	}
	for key, t := range d.Tickets {
		if t == nil {
			delete(d.Tickets, key)
			continue
		}
		if t.Environments == nil {
			t.Environments = make(map[string]*Environment)
		}
		for name, env := range t.Environments {
			if env == nil {
				t.Environments[name] = newEnvironment()
				continue
			}
			env.fill()
		}
	}
}

func (e *Environment) fill() {
	if e.Cache == nil {
		e.Cache = make(map[string]json.RawMessage)
	}
	seen := make(map[int]bool, len(e.StepsDone))
	steps := make([]int, 0, len(e.StepsDone))
	for _, s := range e.StepsDone {
		if seen[s] {
			continue
		}
		seen[s] = true
		steps = append(steps, s)
	}
	e.StepsDone = steps
}
