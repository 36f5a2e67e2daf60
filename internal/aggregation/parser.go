package aggregation

import (
	"strconv"
	"strings"
	"time"

	apperrors "instragg/internal/errors"
	"instragg/pkg/contracts/domain"
)

// Parser turns raw NAME,DATE,VALUE lines into Observations. It is a pure
// function of its input; all rejection outcomes are typed ParseErrors.
type Parser struct {
	boundary time.Time
}

// NewParser creates a parser that rejects observations dated strictly
// after the given boundary ("current date"). The boundary is inclusive:
// a line dated exactly on it is accepted.
func NewParser(boundary time.Time) *Parser {
	return &Parser{boundary: boundary}
}

// Parse parses one raw input line. The line number is only carried into
// error values for diagnostics.
func (p *Parser) Parse(line string, lineNo int) (domain.Observation, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return domain.Observation{}, apperrors.NewParseError(apperrors.ReasonMalformedLine, lineNo, line, nil)
	}

	name := strings.TrimSpace(fields[0])
	if name == "" {
		return domain.Observation{}, apperrors.NewParseError(apperrors.ReasonMalformedLine, lineNo, line, nil)
	}

	date, err := time.Parse(domain.DateLayout, strings.TrimSpace(fields[1]))
	if err != nil {
		return domain.Observation{}, apperrors.NewParseError(apperrors.ReasonInvalidDate, lineNo, line, err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return domain.Observation{}, apperrors.NewParseError(apperrors.ReasonInvalidValue, lineNo, line, err)
	}

	if date.After(p.boundary) {
		return domain.Observation{}, apperrors.NewParseError(apperrors.ReasonFutureDate, lineNo, line, nil)
	}

	return domain.Observation{Name: name, Date: date, Value: value}, nil
}
