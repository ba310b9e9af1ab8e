// Package format renders invoice numbers and money for display.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const DefaultInvoiceNumberTemplate = "INV-{YYYY}{MM}-{SEQ4}"

// FormatInvoiceNumber expands the date and sequence tokens of template.
func FormatInvoiceNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if template == "" {
		return "", errors.New("invoice number template is empty")
	}
	if seq <= 0 {
		return "", errors.Newf("invalid invoice sequence: %d", seq)
	}

	out := expandDate(template, issuedAt)
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", errors.Newf("unresolved token in invoice format: %s", out)
	}
	return out, nil
}

// NumberPrefix returns the expanded text before the sequence token, used to
// count the numbers already issued in a period.
func NumberPrefix(template string, issuedAt time.Time) string {
	idx := strings.Index(template, "{SEQ")
	if idx < 0 {
		return expandDate(template, issuedAt)
	}
	return expandDate(template[:idx], issuedAt)
}

// FallbackInvoiceNumber keys the number on the last six digits of the unix
// millisecond clock.
func FallbackInvoiceNumber(template string, issuedAt time.Time) string {
	suffix := issuedAt.UnixMilli() % 1_000_000
	return fmt.Sprintf("%s%06d", NumberPrefix(template, issuedAt), suffix)
}

func expandDate(s string, t time.Time) string {
	s = strings.ReplaceAll(s, "{YYYY}", t.Format("2006"))
	s = strings.ReplaceAll(s, "{YY}", t.Format("06"))
	s = strings.ReplaceAll(s, "{MM}", t.Format("01"))
	s = strings.ReplaceAll(s, "{DD}", t.Format("02"))
	return s
}

// INR renders an amount with Indian digit grouping, e.g. ₹1,23,456.50.
func INR(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "₹" + groupIndian(whole) + "." + frac
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
