package projection

// Bucket is a body-fat band: a percentage and the number of filled dots (1-5)
// drawn next to it.
type Bucket struct {
	Percent int `json:"percent"`
	Dots    int `json:"dots"`
}

var (
	currentBuckets = map[string]Bucket{
		"regular":    {Percent: 25, Dots: 3},
		"flabby":     {Percent: 30, Dots: 3},
		"muffin-top": {Percent: 33, Dots: 3},
		"overweight": {Percent: 36, Dots: 2},
		"obese":      {Percent: 40, Dots: 2},
	}
	targetBuckets = map[string]Bucket{
		"curvy":    {Percent: 22, Dots: 4},
		"regular":  {Percent: 20, Dots: 4},
		"flat":     {Percent: 18, Dots: 5},
		"fit":      {Percent: 15, Dots: 5},
		"athletic": {Percent: 12, Dots: 5},
	}

	fallbackCurrent = Bucket{Percent: 30, Dots: 3}
	fallbackTarget  = Bucket{Percent: 15, Dots: 5}
)

// CurrentBodyFat maps a current body type to its bucket.
func CurrentBodyFat(bodyType string) Bucket {
	if b, ok := currentBuckets[bodyType]; ok {
		return b
	}
	return fallbackCurrent
}

// TargetBodyFat maps a target body type to its bucket.
func TargetBodyFat(bodyType string) Bucket {
	if b, ok := targetBuckets[bodyType]; ok {
		return b
	}
	return fallbackTarget
}
