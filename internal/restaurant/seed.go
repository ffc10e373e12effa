package restaurant

// Seed returns the records a catalog starts with when its storage has
// never been written or cannot be read.
func Seed() []Restaurant {
	return []Restaurant{
		{
			ID:          1,
			Name:        "Sakura Sushi",
			Type:        "Japanese",
			Image:       "https://images.unsplash.com/photo-1579584425555-c3ce17fd4351?w=400",
			Location:    "New York",
			Rating:      4.5,
			Description: "Authentic Japanese sushi and sashimi prepared by master chefs.",
			PriceRange:  "$$",
		},
		{
			ID:          2,
			Name:        "Trattoria Bella",
			Type:        "Italian",
			Image:       "https://images.unsplash.com/photo-1414235077428-338989a2e8c0?w=400",
			Location:    "Los Angeles",
			Rating:      4.2,
			Description: "Family-owned Italian restaurant serving homemade pasta.",
			PriceRange:  "$$$",
		},
	}
}
