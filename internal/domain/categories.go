package domain

// Category is the closed set of budget categories. Salary, Investments and
// Undefined are semantic specials: reports exclude them from expense rollups
// but the store treats them as regular values.
type Category string

const (
	CategorySalary      Category = "Salary"
	CategoryInvestments Category = "Investments"
	CategoryUndefined   Category = "Undefined"

	CategoryGroceries     Category = "Groceries"
	CategoryMarket        Category = "Market"
	CategoryRestaurants   Category = "Restaurants"
	CategoryTransport     Category = "Transport"
	CategoryFuel          Category = "Fuel"
	CategoryHealth        Category = "Health"
	CategoryPharmacy      Category = "Pharmacy"
	CategoryEducation     Category = "Education"
	CategoryLeisure       Category = "Leisure"
	CategoryTravel        Category = "Travel"
	CategoryClothing      Category = "Clothing"
	CategoryHome          Category = "Home"
	CategoryRent          Category = "Rent"
	CategoryCondo         Category = "Condo"
	CategoryUtilities     Category = "Utilities"
	CategoryWater         Category = "Water"
	CategoryInternet      Category = "Internet"
	CategoryPhone         Category = "Phone"
	CategoryStreaming     Category = "Streaming"
	CategorySubscriptions Category = "Subscriptions"
	CategoryPets          Category = "Pets"
	CategoryPersonalCare  Category = "PersonalCare"
	CategoryGifts         Category = "Gifts"
	CategoryDonations     Category = "Donations"
	CategoryTaxes         Category = "Taxes"
	CategoryBankFees      Category = "BankFees"
	CategoryInsurance     Category = "Insurance"
	CategoryMaintenance   Category = "Maintenance"
	CategoryElectronics   Category = "Electronics"
	CategoryServices      Category = "Services"
	CategoryOther         Category = "Other"
)

// AllCategories lists every valid category value.
var AllCategories = []Category{
	CategorySalary, CategoryInvestments, CategoryUndefined,
	CategoryGroceries, CategoryMarket, CategoryRestaurants, CategoryTransport,
	CategoryFuel, CategoryHealth, CategoryPharmacy, CategoryEducation,
	CategoryLeisure, CategoryTravel, CategoryClothing, CategoryHome,
	CategoryRent, CategoryCondo, CategoryUtilities, CategoryWater,
	CategoryInternet, CategoryPhone, CategoryStreaming, CategorySubscriptions,
	CategoryPets, CategoryPersonalCare, CategoryGifts, CategoryDonations,
	CategoryTaxes, CategoryBankFees, CategoryInsurance, CategoryMaintenance,
	CategoryElectronics, CategoryServices, CategoryOther,
}

var validCategories = func() map[Category]bool {
	m := make(map[Category]bool, len(AllCategories))
	for _, c := range AllCategories {
		m[c] = true
	}
	return m
}()

// ParseCategory validates a stored or configured category value. Unknown
// values fall back to Undefined so that legacy rows never break reads.
func ParseCategory(s string) Category {
	c := Category(s)
	if validCategories[c] {
		return c
	}
	return CategoryUndefined
}

// IsSpecial reports whether the category is excluded from expense rollups.
func (c Category) IsSpecial() bool {
	return c == CategorySalary || c == CategoryInvestments || c == CategoryUndefined
}
