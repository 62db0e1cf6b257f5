package config

// DeepMerge merges override into base without mutating either.
// Nested maps merge recursively; any other value in override replaces
// the base value wholesale.
func DeepMerge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if ov, ok := v.(map[string]any); ok {
			if bv, ok := out[k].(map[string]any); ok {
				out[k] = DeepMerge(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}
