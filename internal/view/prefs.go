package view

import (
	"github.com/tidwall/gjson"
)

// Cockpit sections a client may open on load.
var cockpitSections = map[string]bool{
	"overview":  true,
	"execution": true,
	"insights":  true,
	"ops":       true,
}

// Inbox triage states.
var triageStates = map[string]bool{
	"new":      true,
	"triaged":  true,
	"archived": true,
}

// DefaultUIPrefs returns the layout used when nothing is stored.
func DefaultUIPrefs() UIPrefs {
	return UIPrefs{
		CockpitSection:  "overview",
		PanelPrefs:      PanelPrefs{Charts: true, Advice: true, Risk: true},
		HiddenAdviceIDs: map[string]bool{},
		InboxTriage:     map[string]string{},
	}
}

// NormalizeUIPrefs reads a stored prefs document leniently. Unknown sections
// fall back to overview, panels are on unless explicitly false, and triage
// entries with unknown states are dropped.
func NormalizeUIPrefs(raw []byte) UIPrefs {
	prefs := DefaultUIPrefs()
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return prefs
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return prefs
	}

	if section := doc.Get("cockpitSection").String(); cockpitSections[section] {
		prefs.CockpitSection = section
	}

	panels := doc.Get("panelPrefs")
	if panels.IsObject() {
		prefs.PanelPrefs = PanelPrefs{
			Charts: panels.Get("charts").Type != gjson.False,
			Advice: panels.Get("advice").Type != gjson.False,
			Risk:   panels.Get("risk").Type != gjson.False,
		}
	}

	if hidden := doc.Get("hiddenAdviceIds"); hidden.IsObject() {
		hidden.ForEach(func(key, value gjson.Result) bool {
			prefs.HiddenAdviceIDs[key.String()] = truthy(value)
			return true
		})
	}

	if triage := doc.Get("inboxTriage"); triage.IsObject() {
		triage.ForEach(func(key, value gjson.Result) bool {
			if state := value.String(); triageStates[state] {
				prefs.InboxTriage[key.String()] = state
			}
			return true
		})
	}
	return prefs
}

// Normalize applies the same rules to an already-decoded document.
func (p UIPrefs) Normalize() UIPrefs {
	out := DefaultUIPrefs()
	if cockpitSections[p.CockpitSection] {
		out.CockpitSection = p.CockpitSection
	}
	out.PanelPrefs = p.PanelPrefs
	for k, v := range p.HiddenAdviceIDs {
		out.HiddenAdviceIDs[k] = v
	}
	for k, v := range p.InboxTriage {
		if triageStates[v] {
			out.InboxTriage[k] = v
		}
	}
	return out
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		return true
	default:
		return false
	}
}
