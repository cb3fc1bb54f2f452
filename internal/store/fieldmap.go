package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// timeLayout is the wire form of timestamp fields in primary records.
const timeLayout = time.RFC3339Nano

// FieldMap builds the flat string-keyed representation of one entity for a
// hash write. Every field is always written, including zero values, so a
// full re-put of a record overwrites stale hash fields instead of leaving
// them behind.
type FieldMap map[string]string

func NewFieldMap() FieldMap {
	return make(FieldMap)
}

func (fm FieldMap) SetString(field, v string) {
	fm[field] = v
}

func (fm FieldMap) SetInt(field string, v int64) {
	fm[field] = strconv.FormatInt(v, 10)
}

func (fm FieldMap) SetFloat(field string, v float64) {
	fm[field] = strconv.FormatFloat(v, 'f', -1, 64)
}

// SetBool stores the literal "true" or "false". Decoding must compare
// against "true" explicitly; any truthiness shortcut would read the
// non-empty string "false" as true.
func (fm FieldMap) SetBool(field string, v bool) {
	fm[field] = strconv.FormatBool(v)
}

// SetTime stores RFC3339Nano UTC; the zero time stores as empty.
func (fm FieldMap) SetTime(field string, v time.Time) {
	if v.IsZero() {
		fm[field] = ""
		return
	}
	fm[field] = v.UTC().Format(timeLayout)
}

// SetJSON serializes a nested or array-valued field to one string field.
// Nil values and empty collections store as empty, which decodes back to
// the zero value.
func (fm FieldMap) SetJSON(field string, v interface{}) error {
	if v == nil {
		fm[field] = ""
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode field %s: %w", field, err)
	}
	// Encoded nil slices/maps are "null"; store them as absent.
	if string(raw) == "null" {
		fm[field] = ""
		return nil
	}
	fm[field] = string(raw)
	return nil
}

// Decoder reads typed values out of a hash read. Missing and empty fields
// decode to zero values; a malformed field records a sticky error checked
// once via Err, so per-field call sites stay linear, the way row scans do.
type Decoder struct {
	fields map[string]string
	err    error
}

func NewDecoder(fields map[string]string) *Decoder {
	return &Decoder{fields: fields}
}

// Exists reports whether the record holds an entity: the identifier field
// must be present and non-empty. This is the sole existence check; a
// structurally empty hash is "not found", never a zero-valued entity.
func (d *Decoder) Exists(idField string) bool {
	return d.fields[idField] != ""
}

func (d *Decoder) String(field string) string {
	return d.fields[field]
}

func (d *Decoder) Int(field string) int64 {
	v := d.fields[field]
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		d.fail(field, err)
		return 0
	}
	return n
}

func (d *Decoder) Float(field string) float64 {
	v := d.fields[field]
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		d.fail(field, err)
		return 0
	}
	return f
}

// Bool decodes the literal "true"; everything else, including the
// non-empty string "false", is false.
func (d *Decoder) Bool(field string) bool {
	return d.fields[field] == "true"
}

func (d *Decoder) Time(field string) time.Time {
	v := d.fields[field]
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		d.fail(field, err)
		return time.Time{}
	}
	return t
}

// JSON parses a serialized nested field into dst. Missing or empty fields
// leave dst untouched.
func (d *Decoder) JSON(field string, dst interface{}) {
	v := d.fields[field]
	if v == "" {
		return
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		d.fail(field, err)
	}
}

func (d *Decoder) fail(field string, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("decode field %s: %w", field, err)
	}
}

// Err returns the first field decode failure, if any.
func (d *Decoder) Err() error {
	return d.err
}
