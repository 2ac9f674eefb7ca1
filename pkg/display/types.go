// Package display renders pod data for the command line.
//
// It supports multiple output formats (table, JSON, simple text) for
// aspects, services, a freshly published post and the post history.
package display

import (
	"io"

	"github.com/0xmhha/podpost/pkg/pod"
	"github.com/0xmhha/podpost/pkg/store"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays data in aligned columns.
	FormatTable Format = "table"

	// FormatJSON displays data as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays one line per item.
	FormatSimple Format = "simple"
)

// Formatter formats pod data.
type Formatter interface {
	// FormatAspects formats the aspect list, public first as returned by the pod client.
	FormatAspects(w io.Writer, aspects []pod.Aspect) error

	// FormatServices formats the connected services.
	FormatServices(w io.Writer, services []pod.Service) error

	// FormatPost formats a post that was just published.
	FormatPost(w io.Writer, post *pod.Post) error

	// FormatPosts formats the recorded post history.
	//
	// Parameters:
	//   - w: Output writer
	//   - posts: Records in display order
	//
	// Returns error if writing fails.
	FormatPosts(w io.Writer, posts []*store.PostRecord) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// ShowTimestamps adds the creation time to history output.
	ShowTimestamps bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool

	// TextWidth truncates post text in tables and simple output.
	// Zero means the default of 50; negative disables truncation.
	TextWidth int
}

// ParseFormat returns the Format named s.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatSimple:
		return Format(s), nil
	case "":
		return FormatTable, nil
	default:
		return "", ErrUnknownFormat
	}
}
