package verification

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/veridate/veridate/internal/types"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ParseRating decodes a raw JSON rating. Only integral JSON numbers in [1,5] are accepted;
// a missing value, null, string or fraction is an ErrInvalidRating.
func ParseRating(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, &types.ErrInvalidRating{}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, &types.ErrInvalidRating{Value: string(trimmed)}
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, &types.ErrInvalidRating{Value: string(trimmed)}
	}

	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < MinRating || f > MaxRating {
		return 0, &types.ErrInvalidRating{Value: n.String()}
	}
	return int(f), nil
}

// ValidateRating checks the [1,5] range.
func ValidateRating(r int) error {
	if r < MinRating || r > MaxRating {
		return &types.ErrInvalidRating{Value: strconv.Itoa(r)}
	}
	return nil
}
