package assessment

import (
	"encoding/json"
	"errors"
)

// LinkKind hints how an evidence URL should be presented.
type LinkKind string

const (
	LinkGeneric  LinkKind = "generic"
	LinkGithub   LinkKind = "github"
	LinkDocs     LinkKind = "docs"
	LinkExplorer LinkKind = "explorer"
)

// EvidenceURL is a single cited location.
type EvidenceURL struct {
	Name string   `json:"name"`
	URL  string   `json:"url"`
	Kind LinkKind `json:"type,omitempty"`
}

// Evidence is a full evidence record: an optional label and summary over
// one or more URLs.
type Evidence struct {
	Name    string        `json:"name,omitempty"`
	Summary string        `json:"summary,omitempty"`
	URLs    []EvidenceURL `json:"urls"`
}

// RefKind discriminates the two stored evidence shapes.
type RefKind int

const (
	// RefLink is the legacy bare {name, url} pair.
	RefLink RefKind = iota
	// RefRecord is a full record carrying a urls list.
	RefRecord
)

// EvidenceRef is one stored evidence entry in either shape. Exactly one of
// Link and Record is meaningful, selected by Kind.
type EvidenceRef struct {
	Kind   RefKind
	Link   EvidenceURL
	Record Evidence
}

// ErrEvidenceShape is returned for entries that are neither shape.
var ErrEvidenceShape = errors.New("evidence entry is neither a link nor a record")

// LinkRef builds a legacy bare reference.
func LinkRef(name, url string) EvidenceRef {
	return EvidenceRef{Kind: RefLink, Link: EvidenceURL{Name: name, URL: url}}
}

// RecordRef builds a full record reference.
func RecordRef(e Evidence) EvidenceRef {
	return EvidenceRef{Kind: RefRecord, Record: e}
}

// UnmarshalJSON selects the shape by the presence of a urls array.
func (r *EvidenceRef) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return errors.Join(ErrEvidenceShape, err)
	}

	if raw, ok := probe["urls"]; ok {
		var urls []json.RawMessage
		if err := json.Unmarshal(raw, &urls); err == nil {
			var rec Evidence
			if err := json.Unmarshal(data, &rec); err != nil {
				return errors.Join(ErrEvidenceShape, err)
			}
			*r = RecordRef(rec)
			return nil
		}
	}

	var link EvidenceURL
	if err := json.Unmarshal(data, &link); err != nil {
		return errors.Join(ErrEvidenceShape, err)
	}
	*r = EvidenceRef{Kind: RefLink, Link: link}
	return nil
}

// MarshalJSON writes the entry back in its stored shape.
func (r EvidenceRef) MarshalJSON() ([]byte, error) {
	if r.Kind == RefRecord {
		rec := r.Record
		if rec.URLs == nil {
			rec.URLs = []EvidenceURL{}
		}
		return json.Marshal(rec)
	}
	return json.Marshal(r.Link)
}

// Normalize returns the entry as a full record. Bare links become a record
// with a single url. The result never aliases the stored entry.
func Normalize(r EvidenceRef) Evidence {
	if r.Kind == RefRecord {
		out := r.Record
		out.URLs = append([]EvidenceURL{}, r.Record.URLs...)
		return out
	}
	return Evidence{
		Name: r.Link.Name,
		URLs: []EvidenceURL{{Name: r.Link.Name, URL: r.Link.URL, Kind: r.Link.Kind}},
	}
}

// NormalizeAll normalizes every entry, keeping order.
func NormalizeAll(refs []EvidenceRef) []Evidence {
	out := make([]Evidence, 0, len(refs))
	for _, r := range refs {
		out = append(out, Normalize(r))
	}
	return out
}
