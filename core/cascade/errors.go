package cascade

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo-dashboard/core"
)

var (
	ErrUnknownLevel       = errors.New("cascade: unknown level")
	ErrParentNotSelected  = errors.New("cascade: parent level has no selected value")
	ErrTooManyValues      = errors.New("cascade: more values than levels")
	ErrHydrationCancelled = errors.New("cascade: hydration superseded by a newer request")
	ErrClosed             = errors.New("cascade: engine closed")

	suggestionCutoff = 0.6
)

func unknownLevelError(key string) error {
	return errors.Wrapf(ErrUnknownLevel, "%q", key)
}

// invalidOptionError rejects a value missing from a level's options,
// suggesting the closest option (by id or name) when there is one.
func invalidOptionError(level, value string, options []Option) error {
	msg := fmt.Sprintf("%q is not a valid %s", value, level)
	if len(options) == 0 {
		msg += " (no options loaded)"
	} else if opt, ok := closestOption(value, options); ok {
		msg += fmt.Sprintf("; did you mean %q (%s)?", opt.ID, opt.Name)
	}
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: "value", Error: msg})
}

func closestOption(value string, options []Option) (Option, bool) {
	var (
		best      Option
		bestRatio float64
	)
	val := strings.Split(strings.ToLower(value), "")
	for _, opt := range options {
		for _, c := range []string{opt.ID, opt.Name} {
			if c == "" {
				continue
			}
			m := difflib.NewMatcher(val, strings.Split(strings.ToLower(c), ""))
			if m.RealQuickRatio() < suggestionCutoff || m.QuickRatio() < suggestionCutoff {
				continue
			}
			if ratio := m.Ratio(); ratio >= suggestionCutoff && ratio > bestRatio {
				best, bestRatio = opt, ratio
			}
		}
	}
	return best, bestRatio > 0
}
