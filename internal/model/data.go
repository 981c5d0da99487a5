package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"go-eval-harness/pkg/utils"
)

// StatusArchived marks a dataset record that must not be evaluated.
const StatusArchived = "ARCHIVED"

var (
	// ErrMissingField is returned when a record lacks a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField is returned when a record field has the wrong JSON type.
	ErrInvalidField = errors.New("invalid field")
)

// FieldError reports a record that failed to decode.
type FieldError struct {
	Index int    // position of the record in its dataset, -1 if unknown
	Field string // offending field
	Err   error  // ErrMissingField or ErrInvalidField
}

func (e *FieldError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: %v: %s", e.Index, e.Err, e.Field)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Record is one raw dataset entry. Fields holds the full original mapping; Status, ExpectedOutput and
// Attachments are lifted out of it at decode time.
type Record struct {
	Status         string
	ExpectedOutput interface{}
	Attachments    []interface{}
	Fields         map[string]interface{}
}

// UnmarshalJSON decodes a record and checks the required fields are present.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return &FieldError{Index: -1, Field: "record", Err: ErrInvalidField}
	}

	rawStatus, ok := fields["status"]
	if !ok {
		return &FieldError{Index: -1, Field: "status", Err: ErrMissingField}
	}
	status, ok := rawStatus.(string)
	if !ok {
		return &FieldError{Index: -1, Field: "status", Err: ErrInvalidField}
	}

	// Archived records are dropped before evaluation and need no reference.
	expected, ok := fields["expected_output"]
	if !ok && status != StatusArchived {
		return &FieldError{Index: -1, Field: "expected_output", Err: ErrMissingField}
	}

	attachments := []interface{}{}
	switch v := fields["attachments"].(type) {
	case nil:
	case []interface{}:
		attachments = v
	default:
		return &FieldError{Index: -1, Field: "attachments", Err: ErrInvalidField}
	}

	*r = Record{
		Status:         status,
		ExpectedOutput: expected,
		Attachments:    attachments,
		Fields:         fields,
	}
	return nil
}

// MarshalJSON emits the original mapping.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields)
}

// Archived reports whether the record is excluded from evaluation.
func (r Record) Archived() bool {
	return r.Status == StatusArchived
}

// HasReference reports whether the record carries a usable expected output.
func (r Record) HasReference() bool {
	return utils.Truthy(r.ExpectedOutput)
}

// Clone returns a record sharing no mutable state with r.
func (r Record) Clone() Record {
	fields, _ := utils.DeepCopy(r.Fields).(map[string]interface{})
	attachments, _ := utils.DeepCopy(r.Attachments).([]interface{})
	if attachments == nil {
		attachments = []interface{}{}
	}
	return Record{
		Status:         r.Status,
		ExpectedOutput: utils.DeepCopy(r.ExpectedOutput),
		Attachments:    attachments,
		Fields:         fields,
	}
}

// Unit is one evaluation unit: a record plus the rubric it is graded with.
type Unit struct {
	ID          string        `json:"id"`
	Dataset     string        `json:"dataset"`
	Index       int           `json:"index"`      // record position in its dataset
	Repetition  int           `json:"repetition"` // 0-based repetition number
	Item        Record        `json:"item"`
	Attachments []interface{} `json:"attachments"`
	Criteria    Criteria      `json:"criteria"`
}

// Clone returns a unit sharing no mutable state with u.
func (u Unit) Clone() Unit {
	item := u.Item.Clone()
	attachments, _ := utils.DeepCopy(u.Attachments).([]interface{})
	if attachments == nil {
		attachments = []interface{}{}
	}
	u.Item = item
	u.Attachments = attachments
	return u
}

// Field returns a field of the underlying record.
func (u Unit) Field(name string) (interface{}, bool) {
	v, ok := u.Item.Fields[name]
	return v, ok
}
