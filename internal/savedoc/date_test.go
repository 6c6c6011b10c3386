package savedoc

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "1474.7.4", want: "1474.07.04", ok: true},
		{raw: "1474.07.04", want: "1474.07.04", ok: true},
		{raw: " 1444.11.11 ", want: "1444.11.11", ok: true},
		{raw: "1444.13.1"},
		{raw: "1444.11"},
		{raw: "a.b.c"},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.raw)
		if tc.ok && err != nil {
			t.Fatalf("ParseDate(%q): %v", tc.raw, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseDate(%q): expected error", tc.raw)
			}
			continue
		}
		if d.String() != tc.want {
			t.Fatalf("ParseDate(%q): want=%s got=%s", tc.raw, tc.want, d)
		}
	}
}

func TestDateBefore(t *testing.T) {
	a := MustParseDate("1444.11.11")
	b := MustParseDate("1444.12.1")
	c := MustParseDate("1445.1.1")
	if !a.Before(b) || !b.Before(c) || !a.Before(c) {
		t.Fatalf("ordering broken")
	}
	if c.Before(a) || a.Before(a) {
		t.Fatalf("ordering not strict")
	}
}

func TestDateJSON(t *testing.T) {
	raw, err := json.Marshal(MustParseDate("1474.7.4"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `"1474.07.04"` {
		t.Fatalf("json: got %s", raw)
	}
	var d Date
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d != MustParseDate("1474.7.4") {
		t.Fatalf("roundtrip: got %v", d)
	}
}
