package kit

import "fmt"

// DefaultResolve implements the common policy-resolution rule: filter
// records by constraints, then pick the first preferred model that
// survives the filter, falling back to the first surviving record in
// list order. Kits with no special resolution logic of their own should
// delegate to this.
func DefaultResolve(records []ModelRecord, constraints Constraints, preferred []string) (Resolution, error) {
	var eligible []ModelRecord
	for _, rec := range records {
		if constraints.RequireTools && !rec.SupportsTools {
			continue
		}
		if constraints.RequireVision && !rec.SupportsVision {
			continue
		}
		if constraints.MaxCostUSD > 0 && rec.CostPerMTokIn > constraints.MaxCostUSD {
			continue
		}
		eligible = append(eligible, rec)
	}
	if len(eligible) == 0 {
		return Resolution{}, fmt.Errorf("kit: no model satisfies constraints")
	}

	for _, want := range preferred {
		for _, rec := range eligible {
			if rec.ID == want {
				return Resolution{Primary: rec}, nil
			}
		}
	}
	return Resolution{Primary: eligible[0]}, nil
}
