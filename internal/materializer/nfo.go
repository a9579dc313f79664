package materializer

import (
	"encoding/xml"
	"fmt"

	"github.com/vmunix/ytarr/internal/source"
	"github.com/vmunix/ytarr/internal/ytdlp"
)

// episodeDetails is the Kodi/Jellyfin episode metadata document.
type episodeDetails struct {
	XMLName   xml.Name `xml:"episodedetails"`
	Title     string   `xml:"title"`
	Aired     string   `xml:"aired"`
	Premiered string   `xml:"premiered"`
	Plot      string   `xml:"plot"`
	Thumb     string   `xml:"thumb"`
}

// tvShow is the collection-level metadata document.
type tvShow struct {
	XMLName xml.Name `xml:"tvshow"`
	Title   string   `xml:"title"`
	Plot    string   `xml:"plot"`
}

func renderNFO(doc any) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("render nfo: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// episodeNFO builds the per-video metadata file.
func episodeNFO(video ytdlp.VideoRecord) ([]byte, error) {
	return renderNFO(episodeDetails{
		Title:     video.Title,
		Aired:     video.UploadDate,
		Premiered: video.UploadDate,
		Plot:      video.Description,
		Thumb:     video.ThumbnailURL,
	})
}

// showNFO builds the collection metadata file.
func showNFO(d source.Descriptor) ([]byte, error) {
	var plot string
	switch d.Kind {
	case source.KindChannel:
		plot = fmt.Sprintf("Videos from YouTube channel %s", d.Handle)
	case source.KindPlaylist:
		plot = "Videos from YouTube playlist"
	}
	return renderNFO(tvShow{Title: d.Name, Plot: plot})
}
