package service

import "github.com/louayabidi/web-semantique/internal/model"

// IntentVectorDims is the length of IntentVector; the search_logs column matches it
const IntentVectorDims = 27

var intentClasses = []model.IntentClass{
	model.IntentSearch,
	model.IntentCompare,
	model.IntentRecommend,
	model.IntentStatistic,
	model.IntentPlan,
}

// IntentVector encodes an intent as a fixed feature vector so past searches
// can be compared by distance: entity kind and intent class one-hot, then
// requested attributes, directions and medical filters.
func IntentVector(intent model.QueryIntent) []float32 {
	v := make([]float32, 0, IntentVectorDims)
	for _, kind := range model.EntityPriority {
		v = append(v, flag(intent.EntityKind == kind))
	}
	for _, class := range intentClasses {
		v = append(v, flag(intent.IntentClass == class))
	}
	for _, attr := range model.AllAttributes {
		v = append(v, flag(intent.HasAttribute(attr)))
	}
	dirs := intent.Directions()
	low, high := false, false
	for _, d := range dirs {
		low = low || d == model.DirectionLow
		high = high || d == model.DirectionHigh
	}
	v = append(v, flag(low), flag(high))
	for _, f := range model.AllMedicalFilters {
		v = append(v, flag(intent.HasMedicalFilter(f)))
	}
	return v
}

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
