package inference

import "strings"

// Category is an expense category
type Category string

const (
	CategoryMeals          Category = "Meals"
	CategoryTransportation Category = "Transportation"
	CategoryLodging        Category = "Lodging"
	CategoryFuel           Category = "Fuel"
	CategoryGroceries      Category = "Groceries"
	CategoryOfficeSupplies Category = "Office Supplies"
	CategorySoftware       Category = "Software"
	CategoryUtilities      Category = "Utilities"
	CategoryMedical        Category = "Medical"
)

// categoryKeywords is evaluated top to bottom. When text contains keywords of
// several categories the earliest entry wins, wherever the keywords appear.
// Keywords are lower-case substrings, so each must be unlikely to occur
// inside city names, street names or phone lines.
var categoryKeywords = []struct {
	Category Category
	Keywords []string
}{
	{CategoryMeals, []string{
		"restaurant", "cafe", "café", "coffee", "starbucks", "mcdonald", "burger", "pizza",
		"diner", "bistro", "grill", "bakery", "sushi", "taqueria", "breakfast", "lunch", "dinner",
		"uber eats", "doordash", "grubhub",
	}},
	{CategoryTransportation, []string{
		"uber", "lyft", "taxi", "cab fare", "hertz", "avis rent", "avis budget", "enterprise rent", "rental car",
		"car rental", "parking", "airline", "airlines", "boarding pass", "amtrak", "transit", "toll road", "tollway", "toll plaza",
	}},
	{CategoryLodging, []string{
		"hotel", "motel", "marriott", "hilton", "hyatt", "airbnb", "lodging", "suites", "room rate",
	}},
	{CategoryFuel, []string{
		"fuel", "gasoline", "diesel", "unleaded", "chevron", "exxon", "shell", "gallons",
	}},
	{CategoryGroceries, []string{
		"grocery", "supermarket", "walmart", "costco", "kroger", "safeway", "whole foods", "trader joe",
	}},
	{CategoryOfficeSupplies, []string{
		"staples", "office depot", "officemax", "toner", "printer", "stationery",
	}},
	{CategorySoftware, []string{
		"software", "subscription", "license", "adobe", "microsoft", "github", "amazon web services",
	}},
	{CategoryUtilities, []string{
		"verizon", "at&t", "comcast", "t-mobile", "internet", "electric", "utility",
	}},
	{CategoryMedical, []string{
		"pharmacy", "cvs", "walgreens", "clinic", "medical", "dental", "prescription",
	}},
}

var categoryRules = []Rule[Category]{
	{Name: "keyword-table", Confidence: 0.6, Extract: matchCategory},
}

func matchCategory(text string) (Category, bool) {
	lower := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.Keywords {
			if strings.Contains(lower, kw) {
				return entry.Category, true
			}
		}
	}
	return "", false
}
