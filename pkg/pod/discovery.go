package pod

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode"
	"unicode/utf8"
)

// listKind names a discovery endpoint.
type listKind string

const (
	listAspects  listKind = "aspects"
	listServices listKind = "services"
)

var listPaths = map[listKind]string{
	listAspects:  pathAspects,
	listServices: pathServices,
}

var listFailures = map[listKind]string{
	listAspects:  msgAspectsFailed,
	listServices: msgServicesFailed,
}

// errNotList is wrapped when a discovery body is not a JSON array.
var errNotList = errors.New("discovery response is not a list")

// record is one id/name pair of a discovery list.
type record struct {
	id   string
	name string
}

// fetchList loads one discovery list. The caller must hold c.mu.
func (c *Client) fetchList(ctx context.Context, kind listKind) ([]record, *Error) {
	if e := c.checkLogin(); e != nil {
		return nil, e
	}

	path, ok := listPaths[kind]
	if !ok {
		return nil, newError(ErrUnknown, msgUnknown)
	}

	failure := &Error{
		Kind:    ErrDiscovery,
		Message: listFailures[kind],
		URL:     c.buildURL(path),
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil, c.jsonHeader(false))
	if err != nil {
		failure.Err = err
		return nil, failure
	}
	if resp.status != http.StatusOK {
		failure.Err = fmt.Errorf("unexpected status code: %d", resp.status)
		return nil, failure
	}

	records, err := parseRecords(kind, resp.body)
	if err != nil {
		failure.Err = err
		return nil, failure
	}

	c.log.Debug("discovery list loaded", "kind", string(kind), "count", len(records))
	return records, nil
}

// parseRecords decodes a discovery body. Aspects come as {id, name}
// objects and get the public pseudo aspect prepended. Services come either
// as bare provider strings or as {provider, name} objects.
func parseRecords(kind listKind, body []byte) ([]record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotList, err)
	}
	if raw == nil {
		return nil, errNotList
	}

	records := make([]record, 0, len(raw)+1)
	if kind == listAspects {
		records = append(records, record{id: PublicAspect, name: "Public"})
	}

	for _, item := range raw {
		r, err := parseRecord(kind, item)
		if err != nil {
			return nil, err
		}
		if r.id == "" {
			continue
		}
		records = append(records, r)
	}

	return records, nil
}

func parseRecord(kind listKind, item json.RawMessage) (record, error) {
	if kind == listServices {
		var provider string
		if err := json.Unmarshal(item, &provider); err == nil {
			return record{id: provider, name: capitalize(provider)}, nil
		}
	}

	var obj struct {
		ID       flexibleID `json:"id"`
		Provider string     `json:"provider"`
		Name     string     `json:"name"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return record{}, fmt.Errorf("decoding %s entry: %w", kind, err)
	}

	id := string(obj.ID)
	if kind == listServices && obj.Provider != "" {
		id = obj.Provider
	}

	name := obj.Name
	if name == "" {
		name = capitalize(id)
	}

	return record{id: id, name: name}, nil
}

// flexibleID accepts both "5" and 5.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", string(data))
	}
	*f = flexibleID(n.String())
	return nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
