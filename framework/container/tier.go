package container

import "fmt"

// Tier is a processing priority class. Tiers are processed in ascending
// order: every component of a tier is injected and initialized before the
// next tier starts.
type Tier int

const (
	DataAccess Tier = iota
	BusinessLogic
	Presentation
	Default
)

// Tiers lists every tier in processing order.
var Tiers = []Tier{DataAccess, BusinessLogic, Presentation, Default}

var tierNames = map[Tier]string{
	DataAccess:    "data-access",
	BusinessLogic: "business-logic",
	Presentation:  "presentation",
	Default:       "default",
}

func (t Tier) String() string {
	if n, ok := tierNames[t]; ok {
		return n
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier accepts the names String produces.
func ParseTier(s string) (Tier, error) {
	for t, n := range tierNames {
		if n == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("container: unknown tier %q", s)
}
