package archive

import (
	"fmt"
	"strconv"

	"github.com/valyala/fastjson"
)

var parsers fastjson.ParserPool

// fieldEquals reports whether the named field of an archived document equals
// want. Numeric fields compare against the decimal rendering of the value,
// so callers can filter on event_id without knowing the stored type.
func fieldEquals(doc []byte, field, want string) (bool, error) {
	if !queryableFields[field] {
		return false, fmt.Errorf("%w: %s", errUnknownField, field)
	}

	p := parsers.Get()
	defer parsers.Put(p)

	v, err := p.ParseBytes(doc)
	if err != nil {
		return false, fmt.Errorf("parsing archived record: %w", err)
	}

	fv := v.Get(field)
	if fv == nil {
		// Omitted optional field; matches only the empty string.
		return want == "", nil
	}

	switch fv.Type() {
	case fastjson.TypeString:
		sb, err := fv.StringBytes()
		if err != nil {
			return false, err
		}
		return string(sb) == want, nil
	case fastjson.TypeNumber:
		n, err := fv.Uint()
		if err != nil {
			return false, err
		}
		return strconv.FormatUint(uint64(n), 10) == want, nil
	default:
		return false, nil
	}
}
