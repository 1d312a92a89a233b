package domain

// Clone returns a deep copy of the church so callers cannot alias store state.
func (c Church) Clone() Church {
	out := c
	out.Members = make(map[string]Member, len(c.Members))
	for id, m := range c.Members {
		out.Members[id] = m
	}
	out.Tithes = append(make([]Tithe, 0, len(c.Tithes)), c.Tithes...)
	out.Expenses = append(make([]Expense, 0, len(c.Expenses)), c.Expenses...)
	return out
}

// CloneChurches deep copies a church mapping.
func CloneChurches(in map[string]Church) map[string]Church {
	out := make(map[string]Church, len(in))
	for name, c := range in {
		out[name] = c.Clone()
	}
	return out
}
