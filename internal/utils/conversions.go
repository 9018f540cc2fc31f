package utils

// ToStringSlice keeps the string members of a decoded JSON array.
// Claims decoded into map[string]any carry arrays as []any.
func ToStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		stringSlice := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
		return stringSlice
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}
