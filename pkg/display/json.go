package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/podpost/pkg/pod"
	"github.com/0xmhha/podpost/pkg/store"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatAspects implements Formatter.FormatAspects.
func (f *jsonFormatter) FormatAspects(w io.Writer, aspects []pod.Aspect) error {
	if aspects == nil {
		aspects = []pod.Aspect{}
	}
	return f.encode(w, aspects)
}

// FormatServices implements Formatter.FormatServices.
func (f *jsonFormatter) FormatServices(w io.Writer, services []pod.Service) error {
	if services == nil {
		services = []pod.Service{}
	}
	return f.encode(w, services)
}

// FormatPost implements Formatter.FormatPost.
func (f *jsonFormatter) FormatPost(w io.Writer, post *pod.Post) error {
	return f.encode(w, post)
}

// FormatPosts implements Formatter.FormatPosts.
func (f *jsonFormatter) FormatPosts(w io.Writer, posts []*store.PostRecord) error {
	if posts == nil {
		posts = []*store.PostRecord{}
	}
	return f.encode(w, posts)
}

func (f *jsonFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(v)
}
