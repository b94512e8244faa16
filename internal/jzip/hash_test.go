package jzip

import "testing"

func TestHashBytes_MatchesIncrementalAppend(t *testing.T) {
	t.Parallel()

	name := "com/example/Widget.class"
	full := hashBytes([]byte(name))

	h := hashBytes([]byte(name[:len(name)-1]))
	h = hashAppend(h, name[len(name)-1])

	if h != full {
		t.Fatalf("incremental hash = %d, want %d", h, full)
	}
}

func TestIsMetaName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want bool
	}{
		{"META-INF/MANIFEST.MF", true},
		{"meta-inf/services/foo", true},
		{"com/example/Main.class", false},
		{"META-IN", false},
		{"", false},
	}

	for _, c := range cases {
		if got := isMetaName([]byte(c.name)); got != c.want {
			t.Errorf("isMetaName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
