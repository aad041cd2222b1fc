package domain

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// AnswerKind is the tag of the Answer union.
type AnswerKind string

const (
	AnswerText   AnswerKind = "text"
	AnswerList   AnswerKind = "list"
	AnswerFields AnswerKind = "fields"
)

const (
	// KeyEmail is the reserved answer key holding the captured email.
	KeyEmail = "email"

	// KeyUnit is the field stamped on input answers with the unit system in effect.
	KeyUnit = "unit"

	// Viewed is recorded for steps that only need acknowledging.
	Viewed = "viewed"
)

// Answer is the value recorded for a step.
// Exactly one of Text, List or Fields is meaningful, selected by Kind.
type Answer struct {
	Kind   AnswerKind
	Text   string
	List   []string
	Fields map[string]string
}

// Text builds a text answer.
func Text(s string) Answer {
	return Answer{Kind: AnswerText, Text: s}
}

// List builds a list answer. Duplicates are dropped, first occurrence wins.
func List(values ...string) Answer {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return Answer{Kind: AnswerList, List: out}
}

// Fields builds a field-map answer.
func Fields(m map[string]string) Answer {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return Answer{Kind: AnswerFields, Fields: out}
}

// Empty reports whether the answer carries no value.
func (a Answer) Empty() bool {
	switch a.Kind {
	case AnswerText:
		return a.Text == ""
	case AnswerList:
		return len(a.List) == 0
	case AnswerFields:
		return len(a.Fields) == 0
	}
	return true
}

// Value returns the plain Go value (string, []string or map[string]string).
func (a Answer) Value() any {
	switch a.Kind {
	case AnswerList:
		if a.List == nil {
			return []string{}
		}
		return a.List
	case AnswerFields:
		if a.Fields == nil {
			return map[string]string{}
		}
		return a.Fields
	default:
		return a.Text
	}
}

// Clone returns a deep copy.
func (a Answer) Clone() Answer {
	out := Answer{Kind: a.Kind, Text: a.Text}
	if a.List != nil {
		out.List = append([]string(nil), a.List...)
	}
	if a.Fields != nil {
		out.Fields = make(map[string]string, len(a.Fields))
		for k, v := range a.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the answer as its bare value, so persisted answer maps stay
// plain key-value JSON.
func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value())
}

// Answers is the accumulated answer map keyed by step ID.
type Answers map[string]Answer

// Clone returns a deep copy of the map.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v.Clone()
	}
	return out
}

// Text returns the text answer stored under key.
func (a Answers) Text(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v.Kind != AnswerText {
		return "", false
	}
	return v.Text, true
}

// Fields returns the field-map answer stored under key.
func (a Answers) Fields(key string) (map[string]string, bool) {
	v, ok := a[key]
	if !ok || v.Kind != AnswerFields {
		return nil, false
	}
	return v.Fields, true
}

// Plain converts the map into JSON-shaped values for remote payloads.
func (a Answers) Plain() map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = v.Clone().Value()
	}
	return out
}

// DecodeAnswer converts a loosely typed value (as produced by encoding/json) into an
// Answer of the requested kind. Scalars are weakly converted, so 78 becomes "78".
func DecodeAnswer(kind AnswerKind, raw any) (Answer, error) {
	switch kind {
	case AnswerText:
		var s string
		if err := weakDecode(raw, &s); err != nil {
			return Answer{}, err
		}
		return Text(s), nil
	case AnswerList:
		var l []string
		if err := weakDecode(raw, &l); err != nil {
			return Answer{}, err
		}
		return List(l...), nil
	case AnswerFields:
		var m map[string]string
		if err := weakDecode(raw, &m); err != nil {
			return Answer{}, err
		}
		return Fields(m), nil
	}
	return Answer{}, fmt.Errorf("unknown answer kind %q", kind)
}

func weakDecode(raw any, out any) error {
	if raw == nil {
		return fmt.Errorf("%w: missing value", ErrAnswerKind)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrAnswerKind, err)
	}
	return nil
}

// DecodeAnswers parses a persisted answer map. Each entry is decoded according to the
// kind of the step it belongs to; keys that name no step in the catalog are dropped.
func DecodeAnswers(c *Catalog, data []byte) (Answers, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}

	out := make(Answers, len(raw))
	for key, v := range raw {
		kind, ok := answerKindFor(c, key)
		if !ok {
			continue
		}
		a, err := DecodeAnswer(kind, v)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", key, err)
		}
		out[key] = a
	}
	return out, nil
}

func answerKindFor(c *Catalog, key string) (AnswerKind, bool) {
	if key == KeyEmail {
		return AnswerText, true
	}
	step, _, ok := c.Lookup(key)
	if !ok {
		return "", false
	}
	return step.Kind.AnswerKind(), true
}
