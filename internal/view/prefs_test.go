package view

import "testing"

func TestNormalizeUIPrefs_Empty(t *testing.T) {
	for _, raw := range []string{"", "null", "not json", "[1,2]"} {
		got := NormalizeUIPrefs([]byte(raw))
		if got.CockpitSection != "overview" {
			t.Errorf("NormalizeUIPrefs(%q).CockpitSection = %q, want overview", raw, got.CockpitSection)
		}
		if !got.PanelPrefs.Charts || !got.PanelPrefs.Advice || !got.PanelPrefs.Risk {
			t.Errorf("NormalizeUIPrefs(%q).PanelPrefs = %+v, want all true", raw, got.PanelPrefs)
		}
		if got.HiddenAdviceIDs == nil || got.InboxTriage == nil {
			t.Errorf("NormalizeUIPrefs(%q) maps should be non-nil", raw)
		}
	}
}

func TestNormalizeUIPrefs_Lenient(t *testing.T) {
	raw := `{
		"cockpitSection": "ops",
		"panelPrefs": {"charts": false, "advice": "no", "risk": null},
		"hiddenAdviceIds": {"rb-focus": true, "rb-keep": 0, "ai-adv-1": "x"},
		"inboxTriage": {"e1": "triaged", "e2": "deleted", "e3": "archived"}
	}`
	got := NormalizeUIPrefs([]byte(raw))

	if got.CockpitSection != "ops" {
		t.Errorf("CockpitSection = %q, want ops", got.CockpitSection)
	}
	if got.PanelPrefs.Charts {
		t.Error("Charts = true, want false")
	}
	if !got.PanelPrefs.Advice || !got.PanelPrefs.Risk {
		t.Errorf("Advice/Risk = %v/%v, want true/true", got.PanelPrefs.Advice, got.PanelPrefs.Risk)
	}
	if !got.HiddenAdviceIDs["rb-focus"] || got.HiddenAdviceIDs["rb-keep"] || !got.HiddenAdviceIDs["ai-adv-1"] {
		t.Errorf("HiddenAdviceIDs = %v", got.HiddenAdviceIDs)
	}
	if len(got.InboxTriage) != 2 || got.InboxTriage["e2"] != "" {
		t.Errorf("InboxTriage = %v, want e1 and e3 only", got.InboxTriage)
	}
}

func TestNormalizeUIPrefs_UnknownSection(t *testing.T) {
	got := NormalizeUIPrefs([]byte(`{"cockpitSection":"settings"}`))
	if got.CockpitSection != "overview" {
		t.Errorf("CockpitSection = %q, want overview", got.CockpitSection)
	}
}

func TestUIPrefs_Normalize(t *testing.T) {
	in := UIPrefs{
		CockpitSection: "insights",
		PanelPrefs:     PanelPrefs{Charts: true},
		InboxTriage:    map[string]string{"a": "new", "b": "bogus"},
	}
	got := in.Normalize()
	if got.CockpitSection != "insights" {
		t.Errorf("CockpitSection = %q, want insights", got.CockpitSection)
	}
	if got.PanelPrefs.Advice {
		t.Error("Advice = true, want false as provided")
	}
	if _, ok := got.InboxTriage["b"]; ok {
		t.Error("bogus triage state should be dropped")
	}
}
