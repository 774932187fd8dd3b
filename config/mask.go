package config

import "strings"

var secretMarkers = []string{"password", "token", "secret", "api_key"}

// Mask hides the value of secret-looking keys, keeping the first and last
// two characters of values longer than four.
func Mask(key, value string) string {
	lower := strings.ToLower(key)
	for _, m := range secretMarkers {
		if strings.Contains(lower, m) {
			if len(value) > 4 {
				return value[:2] + "***" + value[len(value)-2:]
			}
			return "***"
		}
	}
	return value
}
