package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/carbuild-backend/pkg/errors"
)

// PartID is the normalized string form of a part identifier. Backends hand out
// numeric ids while URLs and form inputs carry strings; both collapse to the same
// PartID so selection keys never diverge on type.
type PartID string

// ParsePartID normalizes numeric or string identifiers. Integral values are rendered
// in base 10 without leading zeros or signs so that 7, "7" and "007" are equal.
func ParsePartID(raw any) (PartID, error) {
	switch v := raw.(type) {
	case PartID:
		return ParsePartID(string(v))
	case string:
		return parsePartIDString(v)
	case json.Number:
		return parsePartIDString(v.String())
	case int:
		return PartID(strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return PartID(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return PartID(strconv.FormatInt(v, 10)), nil
	case uint:
		return PartID(strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return PartID(strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return PartID(strconv.FormatUint(v, 10)), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("part id %v is not integral", v))
		}
		return PartID(strconv.FormatInt(int64(v), 10)), nil
	case nil:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	default:
		return parsePartIDString(fmt.Sprint(v))
	}
}

// MustPartID is ParsePartID for literals known to be valid.
func MustPartID(raw any) PartID {
	id, err := ParsePartID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func parsePartIDString(value string) (PartID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return PartID(strconv.FormatInt(n, 10)), nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return PartID(strconv.FormatInt(int64(f), 10)), nil
	}
	return PartID(trimmed), nil
}

func (id PartID) String() string {
	return string(id)
}

// Int returns the integer form expected by the order and pricing services.
func (id PartID) Int() (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("part id %q is not numeric", string(id)))
	}
	return n, nil
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *PartID) UnmarshalJSON(data []byte) error {
	var raw any
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParsePartID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
