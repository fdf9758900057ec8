package types

type UdfInfo struct {
	Func      string
	ClassName string
	// jar files which hold the class
	Libs []string
}

// AdhocResult is the result of an ad-hoc query, every cell is a string.
type AdhocResult struct {
	Status StatusType
	Error  string `json:",omitempty"`

	Titles []string
	Values [][]string
}

func (r *AdhocResult) Clone() *AdhocResult {
	if r == nil {
		return nil
	}
	c := &AdhocResult{Status: r.Status, Error: r.Error}
	c.Titles = append([]string(nil), r.Titles...)
	c.Values = make([][]string, 0, len(r.Values))
	for _, row := range r.Values {
		c.Values = append(c.Values, append([]string(nil), row...))
	}
	return c
}
