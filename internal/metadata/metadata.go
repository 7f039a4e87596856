// Package metadata describes the breaker and test conditions entered
// alongside a DCRM trace.
package metadata

import (
	"strings"
	"time"

	"codeberg.org/mutker/dcrmctl/internal/errors"
)

const DateLayout = "2006-01-02"

const (
	ErrInvalidOperation = errors.ErrorCode("metadata_invalid_operation")
	ErrInvalidTestDate  = errors.ErrorCode("metadata_invalid_test_date")
	ErrInvalidField     = errors.ErrorCode("metadata_invalid_field")
)

const maxFieldLength = 256

// Operation is the breaker maneuver captured by the trace
type Operation string

const (
	OperationNone      Operation = ""
	OperationOpen      Operation = "open"
	OperationClose     Operation = "close"
	OperationCloseOpen Operation = "close-open"
)

// IsValid returns whether the operation is known
func (o Operation) IsValid() bool {
	switch o {
	case OperationNone, OperationOpen, OperationClose, OperationCloseOpen:
		return true
	default:
		return false
	}
}

func (o Operation) String() string {
	return string(o)
}

// Metadata holds the operator supplied form fields. All fields are optional.
type Metadata struct {
	BreakerID    string    `json:"breaker_id,omitempty" yaml:"breaker_id,omitempty" mapstructure:"breaker_id"`
	Substation   string    `json:"substation,omitempty" yaml:"substation,omitempty" mapstructure:"substation"`
	Manufacturer string    `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty" mapstructure:"manufacturer"`
	Operation    Operation `json:"operation,omitempty" yaml:"operation,omitempty" mapstructure:"operation"`
	TestDate     string    `json:"test_date,omitempty" yaml:"test_date,omitempty" mapstructure:"test_date"`
	Operator     string    `json:"operator,omitempty" yaml:"operator,omitempty" mapstructure:"operator"`
	Notes        string    `json:"notes,omitempty" yaml:"notes,omitempty" mapstructure:"notes"`
}

// Normalize trims surrounding whitespace and lowercases the operation
func (m Metadata) Normalize() Metadata {
	return Metadata{
		BreakerID:    strings.TrimSpace(m.BreakerID),
		Substation:   strings.TrimSpace(m.Substation),
		Manufacturer: strings.TrimSpace(m.Manufacturer),
		Operation:    Operation(strings.ToLower(strings.TrimSpace(string(m.Operation)))),
		TestDate:     strings.TrimSpace(m.TestDate),
		Operator:     strings.TrimSpace(m.Operator),
		Notes:        strings.TrimSpace(m.Notes),
	}
}

// Validate checks the operation and test date. Call on normalized values.
func (m Metadata) Validate() error {
	errFactory := errors.New()

	if !m.Operation.IsValid() {
		return errFactory.WithData(ErrInvalidOperation, m.Operation.String())
	}

	if m.TestDate != "" {
		if _, err := time.Parse(DateLayout, m.TestDate); err != nil {
			return errFactory.Wrap(ErrInvalidTestDate, err)
		}
	}

	for name, value := range map[string]string{
		"breaker_id":   m.BreakerID,
		"substation":   m.Substation,
		"manufacturer": m.Manufacturer,
		"operator":     m.Operator,
	} {
		if len(value) > maxFieldLength {
			return errFactory.WithData(ErrInvalidField, name)
		}
	}

	return nil
}

// IsZero reports whether no field is set
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}
