// Package report accumulates each run's structured change report: what a
// regeneration added, removed, preserved, and could not resolve, per module.
package report

import (
	"encoding/json"
	"sort"
)

// ModuleReport is the change report for one module's merge.
type ModuleReport struct {
	Module string `json:"module"`

	// Added and Removed are dotted declaration paths that appeared in or
	// vanished from the introspected surface.
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`

	// Preserved are leaf slots whose hand-refined content survived
	// regeneration instead of regressing to Unknown or empty.
	Preserved []string `json:"preserved,omitempty"`

	// Drifts are structural changes between the previous snapshot and the
	// new generation. Structure always follows the new generation; these
	// entries exist so a human sees what content was not carried over.
	Drifts []string `json:"drifts,omitempty"`

	// StubOnly are hand-maintained declarations with no introspected
	// counterpart, preserved verbatim.
	StubOnly []string `json:"stub_only,omitempty"`

	// Warnings are non-fatal extraction and resolution problems.
	Warnings []string `json:"warnings,omitempty"`

	// Unmapped are native types outside the correspondence table.
	Unmapped []string `json:"unmapped,omitempty"`

	// UnknownCount is the number of Unknown slots in the final output.
	UnknownCount int `json:"unknown_count"`

	// Error is set when the module failed fatally and was skipped; its old
	// snapshot is untouched.
	Error string `json:"error,omitempty"`
}

// Fatal reports whether the module hit a fatal condition.
func (m *ModuleReport) Fatal() bool { return m.Error != "" }

// RunReport aggregates all modules of one pipeline run.
type RunReport struct {
	Package string          `json:"package"`
	Modules []*ModuleReport `json:"modules"`
}

// Module returns the report for the named module, creating it if needed.
func (r *RunReport) Module(name string) *ModuleReport {
	for _, m := range r.Modules {
		if m.Module == name {
			return m
		}
	}
	m := &ModuleReport{Module: name}
	r.Modules = append(r.Modules, m)
	return m
}

// Fatal reports whether any module failed. The process exits non-zero iff
// this is true, after all modules were attempted.
func (r *RunReport) Fatal() bool {
	for _, m := range r.Modules {
		if m.Fatal() {
			return true
		}
	}
	return false
}

// Sort orders modules by name for stable output.
func (r *RunReport) Sort() {
	sort.Slice(r.Modules, func(i, j int) bool {
		return r.Modules[i].Module < r.Modules[j].Module
	})
}

// JSON renders the report for machine consumption.
func (r *RunReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
