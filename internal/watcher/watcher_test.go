package watcher

import "testing"

func TestIsSubtitleFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/drop/movie.vtt", true},
		{"/drop/movie.SRT", true},
		{"/drop/movie.mkv", false},
		{"/drop/.vtt.part", false},
		{"/drop/noext", false},
	}
	for _, tt := range tests {
		if got := isSubtitleFile(tt.path); got != tt.want {
			t.Errorf("isSubtitleFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
