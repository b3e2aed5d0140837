package data

const MaxPageSize = 100

type QueryParams struct {
	Limit     int    `json:"limit"`
	NextToken []byte `json:"nextToken"`
}

func (q *QueryParams) GetLimit() *int32 {
	limit := int32(q.Limit)
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	return &limit
}

type QueryResults[T interface{}] struct {
	Items     []T    `json:"items"`
	NextToken []byte `json:"nextToken"`
}

type NextToken map[string]map[string]string
