package query

const dataPrefix = "data."

// CasesInState selects cases in the given lifecycle state.
func CasesInState(state string) Query {
	return Bool().Must(Match("state", state))
}

// FieldExists selects cases whose top-level data field is set.
func FieldExists(field string) Query {
	return Bool().Filter(Exists(dataPrefix + field))
}

// FieldDoesNotExist selects cases whose top-level data field is missing,
// so a sweep can skip cases it already migrated.
func FieldDoesNotExist(field string) Query {
	return Bool().Filter(Bool().MustNot(Exists(dataPrefix + field)))
}
