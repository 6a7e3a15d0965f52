package imageurl

import "testing"

func TestResolve(t *testing.T) {
	r := New("https://api.immoshift.fr/")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"media/a.jpg", "https://api.immoshift.fr/media/a.jpg"},
		{"/media/a.jpg", "https://api.immoshift.fr/media/a.jpg"},
		{"//media/a.jpg", "https://api.immoshift.fr//media/a.jpg"},
		{"https://cdn.test/a.jpg", "https://cdn.test/a.jpg"},
		{"http://cdn.test/a.jpg", "http://cdn.test/a.jpg"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"HTTPS://cdn.test/a.jpg", "HTTPS://cdn.test/a.jpg"},
		{"ftp://cdn.test/a.jpg", "https://api.immoshift.fr/ftp://cdn.test/a.jpg"},
		{"media:a.jpg", "https://api.immoshift.fr/media:a.jpg"},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := New("http://localhost:8000")
	inputs := []string{
		"https://cdn.test/a.jpg",
		"data:image/png;base64,AAAA",
		"/media/ebooks/cover.png",
		"media/x.png",
	}
	for _, in := range inputs {
		once := r.Resolve(in)
		if twice := r.Resolve(once); twice != once {
			t.Errorf("Resolve(Resolve(%q)) = %v, want %v", in, twice, once)
		}
	}
}

func TestOriginTrimmed(t *testing.T) {
	if got := New("http://api.test/").Origin(); got != "http://api.test" {
		t.Errorf("Origin() = %v, want %v", got, "http://api.test")
	}
}
