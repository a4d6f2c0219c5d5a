package cache

import (
	"github.com/jmgilman/go/errors"
)

// Error codes returned by Manager operations. Use errors.GetCode from
// github.com/jmgilman/go/errors to inspect them. CodeCapacityShortage is
// classified retryable; every other code is permanent.
const (
	// CodeItemTooLarge indicates an item whose estimated size exceeds the total capacity.
	CodeItemTooLarge errors.ErrorCode = "ITEM_TOO_LARGE"

	// CodeCapacityShortage indicates an item that fits the capacity but not the current free space.
	CodeCapacityShortage errors.ErrorCode = "CAPACITY_SHORTAGE"

	// CodeCannotEvict indicates the eviction loop ran out of candidates.
	CodeCannotEvict errors.ErrorCode = "CANNOT_EVICT"

	// CodeMissingIdentifier indicates a record without the declared identifier field.
	CodeMissingIdentifier errors.ErrorCode = "MISSING_IDENTIFIER"

	// CodeNotFound indicates an absent key or identifier.
	CodeNotFound = errors.CodeNotFound

	// CodeInvalidEntry indicates an entry that exists but is stale or expired.
	CodeInvalidEntry errors.ErrorCode = "INVALID_ENTRY"

	// CodeCapacityReductionBlocked indicates a non-forced resize below current usage.
	CodeCapacityReductionBlocked errors.ErrorCode = "CAPACITY_REDUCTION_BLOCKED"

	// CodeUnexpectedState indicates an eviction loop outcome the retry protocol does not expect.
	CodeUnexpectedState errors.ErrorCode = "UNEXPECTED_STATE"

	// CodeInvalidInput indicates a rejected precondition, such as a negative capacity.
	CodeInvalidInput = errors.CodeInvalidInput
)

// HasCode reports whether err carries the given code.
func HasCode(err error, code errors.ErrorCode) bool {
	return err != nil && errors.GetCode(err) == code
}

func newError(code errors.ErrorCode, message string, ctx map[string]interface{}) error {
	return errors.WithContextMap(errors.New(code, message), ctx)
}

func wrapError(cause error, code errors.ErrorCode, message string, ctx map[string]interface{}) error {
	return errors.WrapWithContext(cause, code, message, ctx)
}

func errItemTooLarge(key string, size, capacity int64) error {
	return newError(CodeItemTooLarge, "item is larger than the cache capacity", map[string]interface{}{
		"key":      key,
		"size":     size,
		"capacity": capacity,
	})
}

func errCapacityShortage(key string, size, used, capacity int64) error {
	err := newError(CodeCapacityShortage, "not enough free space for item", map[string]interface{}{
		"key":      key,
		"size":     size,
		"used":     used,
		"capacity": capacity,
	})
	return errors.WithClassification(err, errors.ClassificationRetryable)
}

func errCannotEvict(cause error, reason string) error {
	return wrapError(cause, CodeCannotEvict, "no entry can be evicted", map[string]interface{}{
		"reason": reason,
	})
}

func errMissingIdentifier(key, field string, index int) error {
	return newError(CodeMissingIdentifier, "record is missing the identifier field", map[string]interface{}{
		"key":   key,
		"field": field,
		"index": index,
	})
}

func errNotFound(key, identifier string) error {
	ctx := map[string]interface{}{"key": key}
	if identifier != "" {
		ctx["identifier"] = identifier
	}
	return newError(CodeNotFound, "entry not found", ctx)
}

func errInvalidEntry(key string) error {
	return newError(CodeInvalidEntry, "entry is stale or expired", map[string]interface{}{"key": key})
}

func errCapacityReductionBlocked(capacity, used int64) error {
	return newError(CodeCapacityReductionBlocked, "capacity is below current usage", map[string]interface{}{
		"capacity": capacity,
		"used":     used,
	})
}

func errUnexpectedState(message string, ctx map[string]interface{}) error {
	return newError(CodeUnexpectedState, message, ctx)
}

func errInvalidInput(message string, ctx map[string]interface{}) error {
	return newError(CodeInvalidInput, message, ctx)
}
