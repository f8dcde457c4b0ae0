package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Обертки над sql.Null* с JSON-представлением null/значение.

type NullString struct {
	sql.NullString
}

type NullTime struct {
	sql.NullTime
}

type NullInt64 struct {
	sql.NullInt64
}

type NullFloat64 struct {
	sql.NullFloat64
}

func NewNullString(s string) NullString {
	return NullString{sql.NullString{String: s, Valid: s != ""}}
}

func NewNullTime(t time.Time) NullTime {
	return NullTime{sql.NullTime{Time: t, Valid: !t.IsZero()}}
}

func NewNullInt64(v int64) NullInt64 {
	return NullInt64{sql.NullInt64{Int64: v, Valid: true}}
}

func NewNullFloat64(v float64) NullFloat64 {
	return NullFloat64{sql.NullFloat64{Float64: v, Valid: true}}
}

func marshalNullable(valid bool, v any) ([]byte, error) {
	if !valid {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// unmarshalNullable декодирует b в *T; valid=false для null.
func unmarshalNullable[T any](b []byte) (v T, valid bool, err error) {
	var p *T
	if err = json.Unmarshal(b, &p); err != nil || p == nil {
		return v, false, err
	}
	return *p, true, nil
}

func (ns NullString) MarshalJSON() ([]byte, error) {
	return marshalNullable(ns.Valid, ns.String)
}

func (ns *NullString) UnmarshalJSON(b []byte) (err error) {
	ns.String, ns.Valid, err = unmarshalNullable[string](b)
	return err
}

func (nt NullTime) MarshalJSON() ([]byte, error) {
	return marshalNullable(nt.Valid, nt.Time)
}

func (nt *NullTime) UnmarshalJSON(b []byte) (err error) {
	nt.Time, nt.Valid, err = unmarshalNullable[time.Time](b)
	return err
}

func (ni NullInt64) MarshalJSON() ([]byte, error) {
	return marshalNullable(ni.Valid, ni.Int64)
}

func (ni *NullInt64) UnmarshalJSON(b []byte) (err error) {
	ni.Int64, ni.Valid, err = unmarshalNullable[int64](b)
	return err
}

func (nf NullFloat64) MarshalJSON() ([]byte, error) {
	return marshalNullable(nf.Valid, nf.Float64)
}

func (nf *NullFloat64) UnmarshalJSON(b []byte) (err error) {
	nf.Float64, nf.Valid, err = unmarshalNullable[float64](b)
	return err
}
