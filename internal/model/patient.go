package model

import (
	"bytes"
	"encoding/json"
	"reflect"
)

type Patient struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	Phone           string `db:"phone" json:"phone"`
	Alamat          string `db:"alamat" json:"alamat"`
	StatusPatientID int64  `db:"status_patient_id" json:"status_patient_id"`
	InDateAt        Date   `db:"in_date_at" json:"in_date_at"`
	OutDateAt       *Date  `db:"out_date_at" json:"out_date_at"`
	Timestamps
}

// PatientView is the read model returned by list, search and show: the
// patient joined with its status name.
type PatientView struct {
	Name      string `db:"name" json:"name"`
	Phone     string `db:"phone" json:"phone"`
	Status    string `db:"status" json:"status"`
	Alamat    string `db:"alamat" json:"alamat"`
	InDateAt  Date   `db:"in_date_at" json:"in_date_at"`
	OutDateAt *Date  `db:"out_date_at" json:"out_date_at"`
}

// NumericString holds a phone number; it decodes from a JSON string or number.
type NumericString string

func (n *NumericString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericString(s)
		return nil
	}

	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return &json.UnmarshalTypeError{Value: string(b), Type: reflect.TypeOf(*n)}
	}
	*n = NumericString(num.String())
	return nil
}

// Length limits match the patients table columns.
type CreatePatientRequest struct {
	Name      *string        `json:"name" validate:"required,min=1,max=255"`
	Phone     *NumericString `json:"phone" validate:"required,numeric,max=32"`
	Alamat    *string        `json:"alamat" validate:"required,min=1"`
	Status    *string        `json:"status" validate:"required,patient_status"`
	InDateAt  *string        `json:"in_date_at" validate:"required,date"`
	OutDateAt *string        `json:"out_date_at" validate:"omitempty,date"`
}

// UpdatePatientRequest carries a partial update; nil fields are left unchanged.
type UpdatePatientRequest struct {
	Name      *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Phone     *NumericString `json:"phone" validate:"omitempty,numeric,max=32"`
	Alamat    *string        `json:"alamat" validate:"omitempty,min=1"`
	Status    *string        `json:"status" validate:"omitempty,patient_status"`
	InDateAt  *string        `json:"in_date_at" validate:"omitempty,date"`
	OutDateAt *string        `json:"out_date_at" validate:"omitempty,date"`

	// ClearOutDateAt is set when the body sends "out_date_at": null.
	ClearOutDateAt bool `json:"-"`
}

func (r *UpdatePatientRequest) UnmarshalJSON(b []byte) error {
	type plain UpdatePatientRequest
	if err := json.Unmarshal(b, (*plain)(r)); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if raw, ok := fields["out_date_at"]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		r.ClearOutDateAt = true
	}
	return nil
}
