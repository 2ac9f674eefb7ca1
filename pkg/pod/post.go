package pod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// NormalizeAspects turns aspect targets into a clean list.
//
// Every entry may itself be a comma separated list. Blank entries are
// dropped. When nothing is left, or PublicAspect is among the targets, the
// result is just PublicAspect.
func NormalizeAspects(aspectIDs []string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, entry := range aspectIDs {
		for _, id := range strings.Split(entry, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			if id == PublicAspect {
				return []string{PublicAspect}
			}
			seen[id] = true
			out = append(out, id)
		}
	}

	if len(out) == 0 {
		return []string{PublicAspect}
	}
	return out
}

// IsPublic reports whether normalized targets address everyone.
func IsPublic(aspectIDs []string) bool {
	return len(aspectIDs) == 1 && aspectIDs[0] == PublicAspect
}

// Post publishes a status message to the given aspects.
//
// Fields in extra are added to the request body unless they would replace
// status_message or aspect_ids.
//
// Parameters:
//   - ctx: Request context
//   - text: Status message text
//   - aspectIDs: Target aspects, see NormalizeAspects
//   - extra: Additional top-level payload fields, e.g. "services"
//
// Returns:
//   - Published post with its permalink
//   - *Error of kind ErrNotLoggedIn or ErrPost
func (c *Client) Post(ctx context.Context, text string, aspectIDs []string, extra map[string]any) (*Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.checkLogin(); e != nil {
		return nil, c.record(e)
	}

	targets := NormalizeAspects(aspectIDs)
	var aspectField any = targets
	if IsPublic(targets) {
		aspectField = PublicAspect
	}

	payload := map[string]any{
		"status_message": map[string]any{
			"text":                  text,
			"provider_display_name": c.provider,
		},
		"aspect_ids": aspectField,
	}
	for key, value := range extra {
		if _, taken := payload[key]; !taken {
			payload[key] = value
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, c.record(&Error{Kind: ErrPost, Message: err.Error(), Err: err})
	}

	postURL := c.buildURL(pathStatusMessages)
	resp, err := c.do(ctx, http.MethodPost, pathStatusMessages, bytes.NewReader(body), c.jsonHeader(true))
	if err != nil {
		return nil, c.record(&Error{
			Kind:    ErrPost,
			Message: transportMessage(err),
			URL:     postURL,
			Err:     err,
		})
	}

	if !resp.ok() {
		c.log.Warn("post rejected", "status", resp.status)
		return nil, c.record(&Error{
			Kind:    ErrPost,
			Message: responseErrorMessage(resp.body),
			URL:     postURL,
			Err:     fmt.Errorf("unexpected status code: %d", resp.status),
		})
	}

	var post Post
	if err := json.Unmarshal(resp.body, &post); err != nil || post.GUID == "" {
		if err == nil {
			err = fmt.Errorf("response has no guid")
		}
		return nil, c.record(&Error{
			Kind:    ErrPost,
			Message: msgUnknown,
			URL:     postURL,
			Err:     err,
		})
	}
	post.Permalink = c.buildURL("posts/" + post.GUID)

	c.log.Info("post published",
		"id", post.ID,
		"guid", post.GUID,
		"public", post.Public)

	return &post, c.record(nil)
}

// responseErrorMessage extracts the pod's {"error": "..."} message.
func responseErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return msgUnknown
}

// Delete removes a post or comment by ID. kind is KindPost or KindComment.
func (c *Client) Delete(ctx context.Context, kind, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.checkLogin(); e != nil {
		return c.record(e)
	}

	if kind != KindPost && kind != KindComment {
		return c.record(newError(ErrInvalidArgument, msgDeleteKind))
	}
	if id == "" {
		return c.record(newError(ErrInvalidArgument, msgDeleteMissingID))
	}

	path := "/" + kind + "s/" + url.PathEscape(id)
	deleteURL := c.buildURL(path)

	resp, err := c.do(ctx, http.MethodDelete, path, nil, c.jsonHeader(true))
	if err != nil {
		return c.record(&Error{
			Kind:    ErrDelete,
			Message: transportMessage(err),
			URL:     deleteURL,
			Err:     err,
		})
	}

	switch {
	case resp.ok():
		c.log.Info("deleted", "kind", kind, "id", id)
		return c.record(nil)
	case resp.status == http.StatusNotFound:
		return c.record(&Error{Kind: ErrNotFound, Message: fmt.Sprintf(msgDeleteNotFound, kind), URL: deleteURL})
	case resp.status == http.StatusForbidden:
		return c.record(&Error{Kind: ErrForbidden, Message: fmt.Sprintf(msgDeleteForbidden, kind), URL: deleteURL})
	default:
		return c.record(&Error{
			Kind:    ErrUnknown,
			Message: msgUnknown,
			URL:     deleteURL,
			Err:     fmt.Errorf("unexpected status code: %d", resp.status),
		})
	}
}
