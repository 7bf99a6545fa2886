package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// Wire field names that carry meaning for the store. Every other field of an
// action is opaque payload and is persisted untouched.
const (
	fieldID             = "id"
	fieldWhen           = "when"
	fieldFullStateAtoms = "fullStateAtoms"
	fieldJumpTo         = "jumpTo"
)

// ActionKind tags what an action means for replay.
type ActionKind int

const (
	// ActionIncremental applies on top of the previous version.
	ActionIncremental ActionKind = iota
	// ActionSnapshot carries the complete document state in fullStateAtoms.
	ActionSnapshot
	// ActionJump moves to an arbitrary earlier or later point (undo/redo).
	ActionJump
)

// String implements fmt.Stringer.
func (k ActionKind) String() string {
	switch k {
	case ActionIncremental:
		return "incremental"
	case ActionSnapshot:
		return "snapshot"
	case ActionJump:
		return "jump"
	default:
		return "unknown"
	}
}

// Action is one client edit, tagged by kind.
//
// The kind is derived once when the action is decoded: a non-empty
// fullStateAtoms object makes it a Snapshot, otherwise a non-null jumpTo
// makes it a Jump, otherwise it is Incremental. The payload keeps every
// client field (except id) so the record round-trips in the client's shape.
type Action struct {
	ID     int64
	Kind   ActionKind
	JumpTo int64 // set when Kind == ActionJump

	fields map[string]json.RawMessage
}

// ParseAction decodes an action from its wire form.
func ParseAction(data []byte) (*Action, error) {
	var a Action
	if err := a.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &a, nil
}

// NewAction builds an action from loosely typed fields, as a client would
// send them. It applies the same classification as ParseAction.
func NewAction(id int64, fields map[string]any) (*Action, error) {
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m[fieldID] = id

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, ErrInvalidAction.WithCause(err)
	}
	return ParseAction(buf.Bytes())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Action) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return ErrInvalidAction.WithCause(err)
	}
	if fields == nil {
		return ErrInvalidAction.WithDetails("action must be an object")
	}

	raw, ok := fields[fieldID]
	if !ok {
		return ErrInvalidAction.WithDetails("missing id")
	}
	id, err := parseInt(raw)
	if err != nil || id < 0 {
		return ErrInvalidAction.WithDetails("id must be an integer >= 0")
	}
	delete(fields, fieldID)

	a.ID = id
	a.fields = fields
	a.Kind = ActionIncremental
	a.JumpTo = 0

	switch {
	case isNonEmptyObject(fields[fieldFullStateAtoms]):
		a.Kind = ActionSnapshot
	case !isNull(fields[fieldJumpTo]):
		target, err := parseInt(fields[fieldJumpTo])
		if err != nil {
			return ErrInvalidAction.WithDetails("jumpTo must be an integer or null")
		}
		a.Kind = ActionJump
		a.JumpTo = target
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Payload values are written as the
// client sent them.
func (a Action) MarshalJSON() ([]byte, error) {
	return encodeFields(a.wireFields())
}

// Size returns the length of the serialized action in bytes.
func (a *Action) Size() (int, error) {
	data, err := a.MarshalJSON()
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// IsSnapshot reports whether the action carries a non-empty full state.
func (a *Action) IsSnapshot() bool {
	return a.Kind == ActionSnapshot
}

// Field returns the raw value of a payload field.
func (a *Action) Field(name string) (json.RawMessage, bool) {
	v, ok := a.fields[name]
	return v, ok
}

func (a *Action) wireFields() map[string]json.RawMessage {
	m := make(map[string]json.RawMessage, len(a.fields)+2)
	for k, v := range a.fields {
		m[k] = v
	}
	m[fieldID] = json.RawMessage(strconv.FormatInt(a.ID, 10))
	return m
}

// VersionRecord is a committed action with its server-assigned commit time.
// Once written it is never mutated.
type VersionRecord struct {
	Action
	When int64 // unix milliseconds

	size int
}

// NewVersionRecord stamps action with the commit time.
func NewVersionRecord(action *Action, when int64) *VersionRecord {
	return &VersionRecord{Action: *action, When: when}
}

// DecodeVersionRecord parses a stored record. Size reports len(data).
func DecodeVersionRecord(data []byte) (*VersionRecord, error) {
	var r VersionRecord
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	r.size = len(data)
	return &r, nil
}

// Encode serializes the record for storage and records its size.
func (r *VersionRecord) Encode() ([]byte, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	r.size = len(data)
	return data, nil
}

// Size returns the stored size in bytes, encoding the record if it has not
// been encoded or decoded yet.
func (r *VersionRecord) Size() int {
	if r.size == 0 {
		if _, err := r.Encode(); err != nil {
			return 0
		}
	}
	return r.size
}

// MarshalJSON implements json.Marshaler.
func (r VersionRecord) MarshalJSON() ([]byte, error) {
	m := r.Action.wireFields()
	m[fieldWhen] = json.RawMessage(strconv.FormatInt(r.When, 10))
	return encodeFields(m)
}

// encodeFields writes an object with keys in sorted order and each value
// copied verbatim. json.Marshal would compact the values and escape <, >
// and &, changing both the stored bytes and the measured size.
func encodeFields(fields map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	size := 2
	for k, v := range fields {
		keys = append(keys, k)
		size += len(k) + len(v) + 4
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Grow(size)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1) // Encode appends a newline
		buf.WriteByte(':')

		v := bytes.TrimSpace(fields[k])
		if !json.Valid(v) {
			return nil, ErrInvalidAction.WithDetails("field " + k + " is not valid JSON")
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *VersionRecord) UnmarshalJSON(data []byte) error {
	if err := r.Action.UnmarshalJSON(data); err != nil {
		return err
	}
	raw, ok := r.Action.fields[fieldWhen]
	if !ok {
		return ErrInvalidAction.WithDetails("record missing when")
	}
	when, err := parseInt(raw)
	if err != nil {
		return ErrInvalidAction.WithDetails("when must be an integer")
	}
	delete(r.Action.fields, fieldWhen)
	r.When = when
	return nil
}

// parseInt accepts only JSON integer literals: no strings, fractions or exponents.
func parseInt(raw json.RawMessage) (int64, error) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s[0] == '"' {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, 10, 64)
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

func isNonEmptyObject(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 || s[0] != '{' {
		return false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(s, &m); err != nil {
		return false
	}
	return len(m) > 0
}
