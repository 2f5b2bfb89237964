package enums

import "slices"

// SealShape is the glyph drawn in each seal slot.
type SealShape string

const (
	SealShapeCircle  SealShape = "circle"
	SealShapeSquare  SealShape = "square"
	SealShapeStar    SealShape = "star"
	SealShapeHeart   SealShape = "heart"
	SealShapeHexagon SealShape = "hexagon"
	SealShapeCup     SealShape = "cup"
)

var sealShapes = []SealShape{
	SealShapeCircle, SealShapeSquare, SealShapeStar,
	SealShapeHeart, SealShapeHexagon, SealShapeCup,
}

func (s SealShape) IsValid() bool { return slices.Contains(sealShapes, s) }

func ParseSealShape(value string) (SealShape, error) {
	return parse(sealShapes, value, "seal shape", lenient)
}

// BackgroundPattern is the fill behind the seal grid.
type BackgroundPattern string

const (
	BackgroundPatternNone     BackgroundPattern = "none"
	BackgroundPatternDots     BackgroundPattern = "dots"
	BackgroundPatternStripes  BackgroundPattern = "stripes"
	BackgroundPatternGrid     BackgroundPattern = "grid"
	BackgroundPatternWaves    BackgroundPattern = "waves"
	BackgroundPatternGradient BackgroundPattern = "gradient"
)

var backgroundPatterns = []BackgroundPattern{
	BackgroundPatternNone, BackgroundPatternDots, BackgroundPatternStripes,
	BackgroundPatternGrid, BackgroundPatternWaves, BackgroundPatternGradient,
}

func (p BackgroundPattern) IsValid() bool { return slices.Contains(backgroundPatterns, p) }

func ParseBackgroundPattern(value string) (BackgroundPattern, error) {
	return parse(backgroundPatterns, value, "background pattern", lenient)
}

// BusinessCategory groups merchants for analytics and card defaults.
type BusinessCategory string

const (
	BusinessCategoryCafe       BusinessCategory = "cafe"
	BusinessCategoryRestaurant BusinessCategory = "restaurant"
	BusinessCategoryBakery     BusinessCategory = "bakery"
	BusinessCategoryBeauty     BusinessCategory = "beauty"
	BusinessCategoryFitness    BusinessCategory = "fitness"
	BusinessCategoryRetail     BusinessCategory = "retail"
	BusinessCategoryServices   BusinessCategory = "services"
	BusinessCategoryOther      BusinessCategory = "other"
)

var businessCategories = []BusinessCategory{
	BusinessCategoryCafe, BusinessCategoryRestaurant, BusinessCategoryBakery, BusinessCategoryBeauty,
	BusinessCategoryFitness, BusinessCategoryRetail, BusinessCategoryServices, BusinessCategoryOther,
}

func (c BusinessCategory) IsValid() bool { return slices.Contains(businessCategories, c) }

func ParseBusinessCategory(value string) (BusinessCategory, error) {
	return parse(businessCategories, value, "business category", lenient)
}
