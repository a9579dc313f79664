package manifest

import (
	"sort"
	"strconv"
	"strings"
)

// maxVariants bounds how many video variants survive filtering. Players
// probe every listed variant; three is enough for adaptation without
// renegotiation storms.
const maxVariants = 3

// highTierMarker identifies YouTube's high-quality audio group (itag 234
// renditions). Everything else is the standard tier.
const highTierMarker = "234"

type variant struct {
	bandwidth int
	info      string
	url       string
}

// Filter reduces a multi-variant HLS manifest to a fixed header, at most
// one audio rendition and the top variants by declared bandwidth. Pure and
// deterministic; filtering its own output is a no-op.
func Filter(content string) string {
	lines := strings.Split(content, "\n")

	var variants []variant
	var highDefault, highBackup, sdDefault, sdBackup string

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			if i+1 >= len(lines) {
				break
			}
			if bw, ok := bandwidthOf(line); ok {
				variants = append(variants, variant{bandwidth: bw, info: line, url: lines[i+1]})
			}
			i++ // consume the URL line

		case strings.HasPrefix(line, "#EXT-X-MEDIA:") && strings.Contains(line, "URI"):
			isDefault := strings.Contains(line, "DEFAULT=YES")
			if strings.Contains(line, highTierMarker) {
				if isDefault {
					highDefault = line
				} else if highDefault == "" {
					highBackup = line
				}
			} else if isDefault {
				sdDefault = line
			} else if sdDefault == "" {
				sdBackup = line
			}
		}
	}

	sort.SliceStable(variants, func(a, b int) bool {
		return variants[a].bandwidth > variants[b].bandwidth
	})
	if len(variants) > maxVariants {
		variants = variants[:maxVariants]
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-INDEPENDENT-SEGMENTS\n")

	if audio := pickAudio(highDefault, sdDefault, highBackup, sdBackup); audio != "" {
		b.WriteString(audio)
		b.WriteByte('\n')
	}

	for _, v := range variants {
		b.WriteString(v.info)
		b.WriteByte('\n')
		b.WriteString(v.url)
		b.WriteByte('\n')
	}

	return b.String()
}

// pickAudio returns the first non-empty candidate in priority order:
// high+default, standard+default, high+backup, standard+backup.
func pickAudio(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// bandwidthOf extracts the BANDWIDTH attribute from a stream declaration.
func bandwidthOf(info string) (int, bool) {
	_, rest, ok := strings.Cut(info, "BANDWIDTH=")
	if !ok {
		return 0, false
	}
	raw, _, _ := strings.Cut(rest, ",")
	bw, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return bw, true
}
