package cityname

import "testing"

func TestNormalize_Basic(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Paris", "paris"},
		{"  Paris  ", "paris"},
		{"PARIS", "paris"},
		{"Orléans", "orleans"},
		{"Saint-Étienne", "saint-etienne"},
		{"Aix  en   Provence", "aix en provence"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Suffixes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Lyon Cedex", "lyon"},
		{"Lyon CEDEX", "lyon"},
		{"Paris 75001", "paris"},
		{"Marseille, Bouches-du-Rhône", "marseille"},
		{"Toulouse, France", "toulouse"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_ExactEquality(t *testing.T) {
	if Normalize("Orléans") != Normalize("orleans") {
		t.Error("accented and plain forms should normalize identically")
	}
	if Normalize("Paris") == Normalize("Lyon") {
		t.Error("distinct cities must not collide")
	}
}

func TestSameRegion(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Paris", "Boulogne-Billancourt", true},
		{"paris", "Nanterre", true},
		{"Lyon", "Villeurbanne", true},
		{"Marseille", "Aix-en-Provence", true},
		{"Paris", "Lyon", false},
		{"Paris", "Paris", true}, // same city is trivially same region
		{"Bordeaux", "Toulouse", false},
	}
	for _, c := range cases {
		if got := SameRegion(c.a, c.b); got != c.want {
			t.Errorf("SameRegion(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestRegionTable_RegionsOf(t *testing.T) {
	regions := DefaultRegions.RegionsOf("villeurbanne")
	if len(regions) != 1 || regions[0] != "lyon" {
		t.Errorf("RegionsOf(villeurbanne) = %v, want [lyon]", regions)
	}
	if got := DefaultRegions.RegionsOf("bordeaux"); got != nil {
		t.Errorf("RegionsOf(bordeaux) = %v, want nil", got)
	}
}

func TestRegionTable_Swappable(t *testing.T) {
	custom := RegionTable{"flandre": {"lille", "roubaix"}}
	if !custom.Contains("lille", "roubaix") {
		t.Error("custom table should match its own members")
	}
	if custom.Contains("lille", "paris") {
		t.Error("custom table must not match outside members")
	}
}
