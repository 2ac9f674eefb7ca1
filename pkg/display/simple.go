package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/podpost/pkg/pod"
	"github.com/0xmhha/podpost/pkg/store"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatAspects implements Formatter.FormatAspects.
func (f *simpleFormatter) FormatAspects(w io.Writer, aspects []pod.Aspect) error {
	for _, aspect := range aspects {
		if _, err := fmt.Fprintf(w, "%s: %s\n", aspect.ID, aspect.Name); err != nil {
			return err
		}
	}
	return nil
}

// FormatServices implements Formatter.FormatServices.
func (f *simpleFormatter) FormatServices(w io.Writer, services []pod.Service) error {
	for _, service := range services {
		if _, err := fmt.Fprintf(w, "%s: %s\n", service.Key, service.Name); err != nil {
			return err
		}
	}
	return nil
}

// FormatPost implements Formatter.FormatPost.
func (f *simpleFormatter) FormatPost(w io.Writer, post *pod.Post) error {
	_, err := fmt.Fprintf(w, "Posted #%d (%s): %s\n",
		post.ID,
		visibility(post.Public, nil),
		post.Permalink)
	return err
}

// FormatPosts implements Formatter.FormatPosts.
func (f *simpleFormatter) FormatPosts(w io.Writer, posts []*store.PostRecord) error {
	for _, post := range posts {
		line := fmt.Sprintf("#%d %s", post.ID, truncate(post.Text, f.config.TextWidth))
		if f.config.ShowTimestamps && !post.CreatedAt.IsZero() {
			line = post.CreatedAt.Format("2006-01-02 15:04") + " " + line
		}
		if _, err := fmt.Fprintf(w, "%s - %s\n", line, post.Permalink); err != nil {
			return err
		}
	}
	return nil
}
