package manifest

import (
	"strings"
	"testing"
)

const sampleManifest = `#EXTM3U
#EXT-X-INDEPENDENT-SEGMENTS
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio-high",NAME="original",DEFAULT=YES,URI="https://cdn.example/audio/234/index.m3u8"
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio-high",NAME="dub",DEFAULT=NO,URI="https://cdn.example/audio/234/dub.m3u8"
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio-std",NAME="original",DEFAULT=YES,URI="https://cdn.example/audio/233/index.m3u8"
#EXT-X-STREAM-INF:BANDWIDTH=500000,RESOLUTION=640x360
https://cdn.example/v/360.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2500000,RESOLUTION=1920x1080
https://cdn.example/v/1080.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1200000,RESOLUTION=1280x720
https://cdn.example/v/720.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=300000,RESOLUTION=426x240
https://cdn.example/v/240.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=3840x2160
https://cdn.example/v/2160.m3u8
`

func TestFilter_KeepsTopThreeByBandwidth(t *testing.T) {
	out := Filter(sampleManifest)

	for _, want := range []string{"2160.m3u8", "1080.m3u8", "720.m3u8"} {
		if !strings.Contains(out, want) {
			t.Errorf("Filter() missing variant %s", want)
		}
	}
	for _, dropped := range []string{"360.m3u8", "240.m3u8"} {
		if strings.Contains(out, dropped) {
			t.Errorf("Filter() kept variant %s, want dropped", dropped)
		}
	}

	// Highest bandwidth first.
	if i, j := strings.Index(out, "2160.m3u8"), strings.Index(out, "1080.m3u8"); i > j {
		t.Errorf("variants not ordered by bandwidth descending")
	}
}

func TestFilter_AudioPriority(t *testing.T) {
	tests := []struct {
		name  string
		media []string
		want  string
	}{
		{
			name: "high default beats standard default",
			media: []string{
				`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="233",DEFAULT=YES,URI="std-default"`,
				`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="234",DEFAULT=YES,URI="high-default"`,
			},
			want: "high-default",
		},
		{
			name: "standard default beats high backup",
			media: []string{
				`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="234",DEFAULT=NO,URI="high-backup"`,
				`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="233",DEFAULT=YES,URI="std-default"`,
			},
			want: "std-default",
		},
		{
			name: "high backup beats standard backup",
			media: []string{
				`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="233",DEFAULT=NO,URI="std-backup"`,
				`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="234",DEFAULT=NO,URI="high-backup"`,
			},
			want: "high-backup",
		},
		{
			name: "standard backup when nothing else",
			media: []string{
				`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="233",DEFAULT=NO,URI="std-backup"`,
			},
			want: "std-backup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Join(tt.media, "\n") + "\n#EXT-X-STREAM-INF:BANDWIDTH=1000\nv.m3u8\n"
			out := Filter(content)

			count := strings.Count(out, "#EXT-X-MEDIA:")
			if count != 1 {
				t.Fatalf("Filter() kept %d audio renditions, want 1", count)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("Filter() picked wrong audio, want %s in:\n%s", tt.want, out)
			}
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	once := Filter(sampleManifest)
	twice := Filter(once)
	if once != twice {
		t.Errorf("Filter() not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestFilter_FixedHeaderAndTrailingNewline(t *testing.T) {
	out := Filter(sampleManifest)

	if !strings.HasPrefix(out, "#EXTM3U\n#EXT-X-INDEPENDENT-SEGMENTS\n") {
		t.Errorf("Filter() output missing fixed header:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") || strings.HasSuffix(out, "\n\n") {
		t.Errorf("Filter() output must end with exactly one newline")
	}
}

func TestFilter_FewerThanThreeVariants(t *testing.T) {
	content := "#EXT-X-STREAM-INF:BANDWIDTH=1000\nonly.m3u8\n"
	out := Filter(content)

	if !strings.Contains(out, "only.m3u8") {
		t.Errorf("Filter() dropped the single variant")
	}
}

func TestFilter_IgnoresStreamInfWithoutBandwidth(t *testing.T) {
	content := "#EXT-X-STREAM-INF:RESOLUTION=640x360\nno-bw.m3u8\n#EXT-X-STREAM-INF:BANDWIDTH=1000\nok.m3u8\n"
	out := Filter(content)

	if strings.Contains(out, "no-bw.m3u8") {
		t.Errorf("Filter() kept a variant with no BANDWIDTH attribute")
	}
	if !strings.Contains(out, "ok.m3u8") {
		t.Errorf("Filter() dropped a well-formed variant")
	}
}

func TestBandwidthOf(t *testing.T) {
	tests := []struct {
		info   string
		want   int
		wantOK bool
	}{
		{"#EXT-X-STREAM-INF:BANDWIDTH=123456,RESOLUTION=1920x1080", 123456, true},
		{"#EXT-X-STREAM-INF:RESOLUTION=1920x1080,BANDWIDTH=99", 99, true},
		{"#EXT-X-STREAM-INF:RESOLUTION=1920x1080", 0, false},
		{"#EXT-X-STREAM-INF:BANDWIDTH=abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := bandwidthOf(tt.info)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("bandwidthOf(%q) = (%d, %v), want (%d, %v)", tt.info, got, ok, tt.want, tt.wantOK)
		}
	}
}
