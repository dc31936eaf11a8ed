package writer

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numeric converts a decimal to a NUMERIC parameter without going through float.
func numeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}
	}
	return n
}

// nullDecimal parses broker text as NUMERIC. Absent or unparseable text is NULL.
func nullDecimal(s *string) pgtype.Numeric {
	if s == nil {
		return pgtype.Numeric{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return pgtype.Numeric{}
	}
	return numeric(d)
}

// nullInt parses broker text as an integer. Quantities sometimes arrive as
// "75.00", so a whole decimal is accepted too.
func nullInt(s *string) *int64 {
	if s == nil {
		return nil
	}
	text := strings.TrimSpace(*s)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &n
	}
	d, err := decimal.NewFromString(text)
	if err != nil || !d.IsInteger() {
		return nil
	}
	n := d.IntPart()
	return &n
}
