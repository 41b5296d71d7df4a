package common

import (
	"strings"
	"testing"
)

func backtick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func TestGenSelectSQL(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
		want    string
		wantErr bool
	}{
		{"AllColumns", "Trafic_Minute", nil, "SELECT * FROM `Trafic_Minute`", false},
		{"Projection", "Trafic_Minute", []string{"Date_Jour_H_M_d", "PDM"}, "SELECT `Date_Jour_H_M_d`, `PDM` FROM `Trafic_Minute`", false},
		{"QuotedIdent", "my`table", []string{"a b"}, "SELECT `a b` FROM `my``table`", false},
		{"NoTable", "  ", nil, "", true},
		{"BlankColumn", "t", []string{"a", ""}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenSelectSQL(backtick, tt.table, tt.columns)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenSelectSQL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GenSelectSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"station.accdb", "station.csv"},
		{"dir/sub/station.accdb", "station.csv"},
		{`C:\data\station.mdb`, "station.csv"},
		{"site.2024.db", "site.2024.csv"},
		{"noext", "noext.csv"},
		{"we:ird?.db", "we_ird_.csv"},
		{".db", "output.csv"},
		{"", "output.csv"},
	}

	for _, tt := range tests {
		if got := GenOutputName(tt.in); got != tt.want {
			t.Errorf("GenOutputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseColumns(t *testing.T) {
	got := ParseColumns(" PDM, ,TV_brut,")
	if len(got) != 2 || got[0] != "PDM" || got[1] != "TV_brut" {
		t.Errorf("ParseColumns() = %v", got)
	}
	if ParseColumns("") != nil {
		t.Error("ParseColumns(\"\") should be nil")
	}
}
