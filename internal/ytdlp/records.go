package ytdlp

import (
	"bytes"
	"encoding/json"
	"strings"
)

// VideoRecord is the per-video metadata extracted from one listing line.
// Records live only for the duration of a sync pass; they are never persisted.
type VideoRecord struct {
	ID           string
	Title        string
	Description  string
	UploadDate   string // YYYYMMDD
	ThumbnailURL string
}

// rawRecord mirrors the yt-dlp JSON fields we care about. Pointers
// distinguish missing fields from empty ones.
type rawRecord struct {
	ID          *string `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	UploadDate  *string `json:"upload_date"`
	Thumbnail   *string `json:"thumbnail"`
}

// parseRecords decodes newline-delimited JSON listing output. Malformed
// lines and records missing any required field are dropped silently; a bad
// record never fails the batch.
func parseRecords(stdout []byte) []VideoRecord {
	var records []VideoRecord
	for _, line := range bytes.Split(stdout, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}
		if raw.ID == nil || raw.Title == nil || raw.Description == nil ||
			raw.UploadDate == nil || raw.Thumbnail == nil {
			continue
		}

		records = append(records, VideoRecord{
			ID:           *raw.ID,
			Title:        *raw.Title,
			Description:  firstParagraph(*raw.Description),
			UploadDate:   *raw.UploadDate,
			ThumbnailURL: *raw.Thumbnail,
		})
	}
	return records
}

// firstParagraph keeps only the first line of a description. Full YouTube
// descriptions are mostly link spam; the first paragraph is the plot.
func firstParagraph(s string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(first)
}
