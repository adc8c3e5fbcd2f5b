package pricing

import (
	"errors"
	"fmt"
)

type RejectionKind int

const (
	RejectInvalidInput RejectionKind = iota + 1
	RejectEmptyCode
	RejectCodeNotFound
	RejectNotApplicable
	RejectInactive
	RejectBelowMinimum
	RejectDiscountExceedsTotal
)

var rejectionKeys = map[RejectionKind]string{
	RejectInvalidInput:         "invalid_input",
	RejectEmptyCode:            "empty_code",
	RejectCodeNotFound:         "code_not_found",
	RejectNotApplicable:        "not_applicable",
	RejectInactive:             "inactive",
	RejectBelowMinimum:         "below_minimum",
	RejectDiscountExceedsTotal: "discount_exceeds_total",
}

// Key is the message key the presentation layer localizes.
func (k RejectionKind) Key() string {
	if key, ok := rejectionKeys[k]; ok {
		return key
	}
	return "unknown"
}

func (k RejectionKind) String() string { return k.Key() }

// Rejection is a user-correctable reason a code was not applied.
// Threshold is only set for RejectBelowMinimum.
type Rejection struct {
	Kind      RejectionKind
	Threshold float64
	Detail    string
}

func (r *Rejection) Error() string {
	switch {
	case r.Kind == RejectBelowMinimum:
		return fmt.Sprintf("%s: minimum order amount is %s", r.Kind.Key(), FormatAmount(r.Threshold))
	case r.Detail != "":
		return fmt.Sprintf("%s: %s", r.Kind.Key(), r.Detail)
	}
	return r.Kind.Key()
}

// Is lets errors.Is match on kind alone.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Kind == r.Kind
}

func reject(kind RejectionKind) *Rejection {
	return &Rejection{Kind: kind}
}

func invalidInput(format string, args ...any) *Rejection {
	return &Rejection{Kind: RejectInvalidInput, Detail: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection if it carries one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

func IsRejection(err error, kind RejectionKind) bool {
	r, ok := AsRejection(err)
	return ok && r.Kind == kind
}
