package domain

// Condition is the grading of a device variant.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
)

// Conditions lists valid conditions from best to worst.
var Conditions = []Condition{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair}

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair:
		return true
	}
	return false
}

// Label is the human readable form shown in pickers.
func (c Condition) Label() string {
	switch c {
	case ConditionNew:
		return "New"
	case ConditionLikeNew:
		return "Like New"
	case ConditionGood:
		return "Good"
	case ConditionFair:
		return "Fair"
	}
	return string(c)
}
