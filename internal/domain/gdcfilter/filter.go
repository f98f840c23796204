// Package gdcfilter builds GDC filter expressions.
//
// The GDC API takes a boolean expression tree as a JSON query-string
// parameter: group operators ("and", "or") nest over leaf predicates
// ("in", "="). This package models the tree and marshals it to the exact
// wire shape the API expects.
package gdcfilter

import "encoding/json"

// Operator names on the wire.
const (
	opAnd = "and"
	opOr  = "or"
	opIn  = "in"
	opEq  = "="
)

// Filter is one node of the expression tree.
type Filter struct {
	op       string
	field    string
	values   []string
	children []Filter
}

// In matches records whose field value is a member of values.
func In(field string, values ...string) Filter {
	return Filter{op: opIn, field: field, values: values}
}

// Eq matches records whose field equals value.
func Eq(field, value string) Filter {
	return Filter{op: opEq, field: field, values: []string{value}}
}

// And groups filters conjunctively.
func And(filters ...Filter) Filter {
	return Filter{op: opAnd, children: filters}
}

// Or groups filters disjunctively.
func Or(filters ...Filter) Filter {
	return Filter{op: opOr, children: filters}
}

// inContent is the content object of an "in" predicate.
type inContent struct {
	Field string   `json:"field"`
	Value []string `json:"value"`
}

// eqContent is the content object of an "=" predicate. Unlike "in", the
// wire format takes a scalar value here, not an array.
type eqContent struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// MarshalJSON emits the GDC wire format:
//
//	{"op":"in","content":{"field":...,"value":[...]}}
//	{"op":"=","content":{"field":...,"value":...}}
//	{"op":"and","content":[...]}
func (f Filter) MarshalJSON() ([]byte, error) {
	type node struct {
		Op      string      `json:"op"`
		Content interface{} `json:"content"`
	}

	switch f.op {
	case opAnd, opOr:
		return json.Marshal(node{Op: f.op, Content: f.children})
	case opEq:
		value := ""
		if len(f.values) > 0 {
			value = f.values[0]
		}
		return json.Marshal(node{Op: f.op, Content: eqContent{Field: f.field, Value: value}})
	default:
		return json.Marshal(node{Op: f.op, Content: inContent{Field: f.field, Value: f.values}})
	}
}

// String returns the marshalled tree, for query-string embedding and logs.
func (f Filter) String() string {
	b, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(b)
}
