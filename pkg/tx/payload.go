package tx

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Payload is the opaque resource payload attached to some transactions.
// Values are heterogeneous; the kind tag on the transaction discriminates
// what the payload means, so no per-kind variant types exist.
type Payload map[string]any

// clone deep-copies the payload (one level; values are scalars by contract).
func (p Payload) clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// canonical serializes the payload with keys in lexicographic order.
// Two payloads with logically identical content yield the same string
// regardless of construction order, which is what makes fingerprints
// content-derived.
func (p Payload) canonical() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(canonicalValue(p[k]))
	}
	return b.String()
}

// canonicalValue stringifies a payload value. Numeric values use the same
// formatting as credit amounts so JSON round-trips (which widen numbers to
// float64) do not change the canonical form.
func canonicalValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return FormatAmount(x)
	case float32:
		return FormatAmount(float64(x))
	case int:
		return FormatAmount(float64(x))
	case int64:
		return FormatAmount(float64(x))
	case uint64:
		return FormatAmount(float64(x))
	default:
		return fmt.Sprintf("%v", x)
	}
}
