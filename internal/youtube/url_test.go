package youtube

import (
	"errors"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "watch URL",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short URL",
			url:  "https://youtu.be/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "embed URL",
			url:  "https://www.youtube.com/embed/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "v parameter after other parameters",
			url:  "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short URL with timestamp",
			url:  "https://youtu.be/dQw4w9WgXcQ?t=42",
			want: "dQw4w9WgXcQ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) failed: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractVideoID_Invalid(t *testing.T) {
	for _, url := range []string{
		"https://vimeo.com/12345678",
		"https://www.youtube.com/watch?v=tooshort",
		"not a url",
	} {
		if _, err := ExtractVideoID(url); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ExtractVideoID(%q) err = %v, want ErrInvalidURL", url, err)
		}
	}
}

func TestExtractTimestamp(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Timestamp
	}{
		{
			name: "plain seconds",
			url:  "https://youtu.be/dQw4w9WgXcQ?t=125",
			want: Timestamp{Minutes: 2, Seconds: 5},
		},
		{
			name: "plain seconds over an hour",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=3725",
			want: Timestamp{Hours: 1, Minutes: 2, Seconds: 5},
		},
		{
			name: "unit form full",
			url:  "https://youtu.be/dQw4w9WgXcQ?t=1h2m5s",
			want: Timestamp{Hours: 1, Minutes: 2, Seconds: 5},
		},
		{
			name: "unit form minutes and seconds",
			url:  "https://youtu.be/dQw4w9WgXcQ?t=2m5s",
			want: Timestamp{Minutes: 2, Seconds: 5},
		},
		{
			name: "unit form seconds only",
			url:  "https://youtu.be/dQw4w9WgXcQ?t=42s",
			want: Timestamp{Seconds: 42},
		},
		{
			name: "no timestamp",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: Timestamp{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTimestamp(tt.url)
			if got != tt.want {
				t.Errorf("ExtractTimestamp(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestTimestamp_TotalSeconds(t *testing.T) {
	ts := Timestamp{Hours: 1, Minutes: 2, Seconds: 5}
	if got := ts.TotalSeconds(); got != 3725 {
		t.Errorf("TotalSeconds() = %d, want 3725", got)
	}
}

func TestTimestamp_String(t *testing.T) {
	ts := Timestamp{Hours: 1, Minutes: 2, Seconds: 5}
	if got := ts.String(); got != "01:02:05" {
		t.Errorf("String() = %q, want 01:02:05", got)
	}
}
