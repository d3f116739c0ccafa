package batch

import (
	"strconv"
	"strings"

	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider"
)

// AmountAll requests every image of a category
const AmountAll = "all"

// ResolveAmount turns the requested amount into a number of images.
// Targeted providers always download all of their targets.
func ResolveAmount(value string, categories provider.Categories, category string, targeted provider.Targeted) (int, error) {
	if targeted != nil {
		return targeted.Targets(), nil
	}

	value = strings.TrimSpace(value)
	if strings.EqualFold(value, AmountAll) {
		count, ok := categories[category]
		if !ok || count < 0 {
			return 0, errs.Config("amount %q is not supported with this provider", AmountAll)
		}
		return count, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errs.Config("amount must be a non-negative integer or %q, got %q", AmountAll, value)
	}
	return n, nil
}

// ParseMaxRetries reads the --max-retries flag. "none" means unbounded and
// is returned as -1.
func ParseMaxRetries(value string) (int, error) {
	if strings.EqualFold(strings.TrimSpace(value), "none") {
		return -1, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, errs.Config("invalid argument for --max-retries: %q", value)
	}
	return n, nil
}
