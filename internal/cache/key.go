package cache

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/breatheasy/aqi-service/internal/models"
)

const keyPrefix = "aqi"

// maxKeyLength is the memcached key limit; longer keys are hashed.
const maxKeyLength = 250

// Key derives the cache key for a report request. Coordinates are rounded to
// 4 decimal places (roughly 11m) so near-identical requests share an entry;
// the hours/days window is included only when set.
func Key(coord models.Coordinate, kind models.QueryKind, hours, days int) string {
	parts := []string{
		keyPrefix,
		string(kind),
		formatCoord(coord.Latitude),
		formatCoord(coord.Longitude),
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("h%d", hours))
	}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("d%d", days))
	}

	key := strings.Join(parts, ":")
	if len(key) > maxKeyLength {
		key = fmt.Sprintf("%s:%x", keyPrefix, xxhash.Sum64String(key))
	}
	return key
}

// formatCoord rounds to 4 decimals and trims trailing zeros so 40.7128 and
// 40.71280 produce the same key.
func formatCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
