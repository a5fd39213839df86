package tasks

import "testing"

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantPercent float64
		wantSpeed   string
		wantOK      bool
	}{
		{
			name:        "standard progress line",
			line:        "[download]  50.0% of 100.00MiB at 5.00MiB/s ETA 00:10",
			wantPercent: 50.0,
			wantSpeed:   "5.00MiB/s",
			wantOK:      true,
		},
		{
			name:        "complete line",
			line:        "[download] 100% of 10.00MiB at 2.31MiB/s ETA 00:00",
			wantPercent: 100,
			wantSpeed:   "2.31MiB/s",
			wantOK:      true,
		},
		{
			name:        "missing speed defaults to Unknown",
			line:        "[download]  12.5% of 80.00MiB",
			wantPercent: 12.5,
			wantSpeed:   "Unknown",
			wantOK:      true,
		},
		{
			name:   "no percent sign",
			line:   "[download] Destination: video.mp4",
			wantOK: false,
		},
		{
			name:   "percent before bracket",
			line:   "50.0% [download]",
			wantOK: false,
		},
		{
			name:   "non-numeric percent",
			line:   "[info] fragment 3%",
			wantOK: false,
		},
		{
			name:   "empty line",
			line:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			percent, speed, ok := parseProgressLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("parseProgressLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if percent != tt.wantPercent {
				t.Errorf("percent = %v, want %v", percent, tt.wantPercent)
			}
			if speed != tt.wantSpeed {
				t.Errorf("speed = %q, want %q", speed, tt.wantSpeed)
			}
		})
	}
}
