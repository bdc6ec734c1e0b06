package ingest

import "testing"

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"<p>Poste basé à Paris</p>", "Poste basé à Paris"},
		{"<p>Un</p><p>Deux</p>", "Un Deux"},
		{"Salaire&nbsp;: 40K &amp; primes", "Salaire : 40K & primes"},
		{"  beaucoup   d'espaces  ", "beaucoup d'espaces"},
		{"<script>alert(1)</script>CDI", "CDI"},
	}
	for _, tt := range tests {
		if got := CleanDescription(tt.in); got != tt.want {
			t.Errorf("CleanDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSalary(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		in       string
		min, max *float64
	}{
		{"", nil, nil},
		{"40K - 50K €", f(40000), f(50000)},
		{"40K à 50K", f(40000), f(50000)},
		{"Entre 35K et 45K", f(35000), f(45000)},
		{"2500 € par mois", f(2500), nil},
		{"13ème mois", nil, nil},
		{"45000 - 55000 € / an", f(45000), f(55000)},
	}
	for _, tt := range tests {
		gotMin, gotMax := ParseSalary(tt.in)
		if !floatPtrEq(gotMin, tt.min) || !floatPtrEq(gotMax, tt.max) {
			t.Errorf("ParseSalary(%q) = (%v, %v), want (%v, %v)",
				tt.in, deref(gotMin), deref(gotMax), deref(tt.min), deref(tt.max))
		}
	}
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestExtractSalaryFromDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Rémunération 40K - 50K selon profil", "40K - 50K"},
		{"Salaire de 38K à 42K", "38K à 42K"},
		{"Entre 35K et 45K brut annuel", "35K et 45K"},
		{"Aucun salaire indiqué", ""},
	}
	for _, tt := range tests {
		if got := ExtractSalaryFromDescription(tt.in); got != tt.want {
			t.Errorf("ExtractSalaryFromDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJobCategoryFromTitle(t *testing.T) {
	tests := []struct {
		title string
		name  string
		code  string
	}{
		{"Data Analyst H/F", "Data Analyst", "WTTJ_DA"},
		{"Senior Data Scientist", "Data Scientist", "WTTJ_DS"},
		{"Ingénieur Data", "Data Engineer", "WTTJ_DE"},
		{"ML Engineer", "ML Engineer", "WTTJ_ML"},
		{"Développeur Python", "Développeur", "DEV"},
		{"Chef de projet", "Autre", "OTHER"},
	}
	for _, tt := range tests {
		name, code := JobCategoryFromTitle(tt.title)
		if name != tt.name || code != tt.code {
			t.Errorf("JobCategoryFromTitle(%q) = (%q, %q), want (%q, %q)",
				tt.title, name, code, tt.name, tt.code)
		}
	}
}

func TestExperienceYears(t *testing.T) {
	i := func(v int) *int { return &v }
	if got := ExperienceYears(i(2), i(5)); got == nil || *got != 3 {
		t.Errorf("midpoint: got %v, want 3", got)
	}
	if got := ExperienceYears(i(4), nil); got == nil || *got != 4 {
		t.Errorf("min only: got %v, want 4", got)
	}
	if got := ExperienceYears(nil, nil); got != nil {
		t.Errorf("no bounds: got %v, want nil", got)
	}
}

func TestParsePublishedDate(t *testing.T) {
	if got := ParsePublishedDate(""); got != nil {
		t.Errorf("empty: got %v, want nil", got)
	}
	if got := ParsePublishedDate("n'importe quoi"); got != nil {
		t.Errorf("garbage: got %v, want nil", got)
	}
	for _, in := range []string{
		"2025-03-14T09:30:00Z",
		"2025-03-14T09:30:00+01:00",
		"2025-03-14T09:30:00",
		"2025-03-14",
	} {
		got := ParsePublishedDate(in)
		if got == nil {
			t.Errorf("ParsePublishedDate(%q) = nil", in)
			continue
		}
		if got.Year() != 2025 || got.Month() != 3 || got.Day() != 14 {
			t.Errorf("ParsePublishedDate(%q) = %v, want 2025-03-14", in, got)
		}
		if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
			t.Errorf("ParsePublishedDate(%q) not truncated to the day: %v", in, got)
		}
	}
}
