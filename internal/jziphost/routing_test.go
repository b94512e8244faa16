package jziphost

import "testing"

func TestParseRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		path          string
		wantOK        bool
		wantKind      RouteKind
		wantArchive   string
		wantEntryPath string
	}{
		{name: "metrics", path: "/metrics", wantOK: true, wantKind: RouteMetrics},
		{
			name: "top-level entry", path: "/app.jar/Main.class",
			wantOK: true, wantKind: RouteEntry, wantArchive: "app.jar", wantEntryPath: "Main.class",
		},
		{
			name: "nested entry", path: "/app.jar/com/example/Widget.class",
			wantOK: true, wantKind: RouteEntry, wantArchive: "app.jar", wantEntryPath: "com/example/Widget.class",
		},
		{
			name: "meta entry", path: "/app.jar/META-INF/MANIFEST.MF",
			wantOK: true, wantKind: RouteEntry, wantArchive: "app.jar", wantEntryPath: "META-INF/MANIFEST.MF",
		},
		{name: "empty path", path: "", wantOK: false},
		{name: "missing leading slash", path: "app.jar/Main.class", wantOK: false},
		{name: "archive only, no entry", path: "/app.jar", wantOK: false},
		{name: "archive with trailing slash, empty entry", path: "/app.jar/", wantOK: false},
		{name: "traversal ..", path: "/app.jar/../secret", wantOK: false},
		{name: "traversal encoded", path: "/app.jar/%2e%2e/secret", wantOK: false},
		{name: "percent escape", path: "/app.jar/Main%2eclass", wantOK: false},
		{name: "dot archive", path: "/./Main.class", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, ok := ParseRoute(tc.path)
			if ok != tc.wantOK {
				t.Fatalf("ParseRoute(%q) ok = %v, want %v (route=%+v)", tc.path, ok, tc.wantOK, r)
			}
			if !ok {
				return
			}
			if r.Kind != tc.wantKind {
				t.Fatalf("ParseRoute(%q) Kind = %v, want %v", tc.path, r.Kind, tc.wantKind)
			}
			if r.Archive != tc.wantArchive {
				t.Fatalf("ParseRoute(%q) Archive = %q, want %q", tc.path, r.Archive, tc.wantArchive)
			}
			if r.EntryPath != tc.wantEntryPath {
				t.Fatalf("ParseRoute(%q) EntryPath = %q, want %q", tc.path, r.EntryPath, tc.wantEntryPath)
			}
		})
	}
}
