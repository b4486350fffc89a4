package profile

// The merge algebra mirrors the shape of the config tree: maps recurse,
// lists union or subtract item-wise, scalars replace or delete.
//
// Resolution order is fixed: Add is applied before Remove. A folder delta
// that adds an entry already present in global and then removes it ends up
// without the entry. Existing config files rely on this, so it is kept.

// Resolve computes the effective config tree for folderName from the
// global tree and the folder's delta. It is pure: inputs are never
// mutated and the result shares no structure with them.
func Resolve(global map[string]any, folders map[string]FolderDelta, folderName string) map[string]any {
	effective := deepCopyMap(global)

	delta, ok := folders[folderName]
	if !ok {
		return effective
	}

	if len(delta.Add) > 0 {
		effective = MergeAdd(effective, delta.Add)
	}
	if len(delta.Remove) > 0 {
		effective = ApplyRemove(effective, delta.Remove)
	}

	effective["folder_name"] = folderName
	effective["folder_description"] = delta.Description

	return effective
}

// MergeAdd deep-merges additions into base and returns a new tree.
// Maps merge recursively, lists union preserving base order with novel
// items appended, anything else replaces the base value.
func MergeAdd(base, additions map[string]any) map[string]any {
	result := deepCopyMap(base)

	for key, value := range additions {
		existing, present := result[key]
		if !present {
			result[key] = deepCopyValue(value)
			continue
		}

		switch v := value.(type) {
		case map[string]any:
			if e, ok := existing.(map[string]any); ok {
				result[key] = MergeAdd(e, v)
				continue
			}
		case []any:
			if e, ok := existing.([]any); ok {
				result[key] = unionList(e, v)
				continue
			}
		}
		result[key] = deepCopyValue(value)
	}

	return result
}

// ApplyRemove deep-subtracts removals from base and returns a new tree.
// For matching maps it recurses one level, removing listed list items or
// deleting sub-keys; for matching lists it removes the listed items; any
// other match deletes the key entirely.
func ApplyRemove(base, removals map[string]any) map[string]any {
	result := deepCopyMap(base)

	for key, value := range removals {
		existing, present := result[key]
		if !present {
			continue
		}

		switch v := value.(type) {
		case map[string]any:
			e, ok := existing.(map[string]any)
			if !ok {
				continue
			}
			sub := deepCopyMap(e)
			for subKey, subValue := range v {
				subExisting, subPresent := sub[subKey]
				if !subPresent {
					continue
				}
				if list, ok := subValue.([]any); ok {
					if existingList, ok := subExisting.([]any); ok {
						sub[subKey] = subtractList(existingList, list)
						continue
					}
				}
				delete(sub, subKey)
			}
			result[key] = sub
		case []any:
			if e, ok := existing.([]any); ok {
				result[key] = subtractList(e, v)
			}
		default:
			delete(result, key)
		}
	}

	return result
}

// unionList appends items from add that are not already in base,
// preserving base order.
func unionList(base, add []any) []any {
	result := deepCopyList(base)
	for _, item := range add {
		if !listContains(result, item) {
			result = append(result, deepCopyValue(item))
		}
	}
	return result
}

// subtractList removes listed items from base, preserving order of the rest.
func subtractList(base, remove []any) []any {
	result := make([]any, 0, len(base))
	for _, item := range base {
		if !listContains(remove, item) {
			result = append(result, deepCopyValue(item))
		}
	}
	return result
}

func listContains(list []any, item any) bool {
	for _, e := range list {
		if e == item {
			return true
		}
	}
	return false
}

func deepCopyMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyList(l []any) []any {
	result := make([]any, 0, len(l))
	for _, v := range l {
		result = append(result, deepCopyValue(v))
	}
	return result
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		return deepCopyList(t)
	default:
		return v
	}
}
