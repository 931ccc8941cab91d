package tagging

// keywordTags maps a lower-case name fragment to the tags it implies
type keywordTags struct {
	keyword string
	tags    []string
}

// merchantKeywords is matched against lower-cased merchant names, Hong Kong market focus
var merchantKeywords = []keywordTags{
	// Supermarkets & Grocery
	{"wellcome", []string{"grocery", "supermarket"}},
	{"park n shop", []string{"grocery", "supermarket"}},
	{"city super", []string{"grocery", "premium"}},
	{"great", []string{"grocery", "supermarket"}},
	{"taste", []string{"grocery", "premium"}},
	{"international", []string{"grocery", "supermarket"}},
	{"fusion", []string{"grocery", "supermarket"}},
	{"marketplace", []string{"grocery", "supermarket"}},
	{"jasons", []string{"grocery", "premium", "imported"}},

	// Wet Markets & Fresh Food
	{"wet market", []string{"grocery", "fresh", "local"}},
	{"market", []string{"grocery", "fresh"}},
	{"fishmonger", []string{"grocery", "seafood", "fresh"}},
	{"butcher", []string{"grocery", "meat", "fresh"}},

	// Convenience Stores
	{"7-eleven", []string{"convenience", "quick-shop"}},
	{"circle k", []string{"convenience", "quick-shop"}},
	{"ok", []string{"convenience", "quick-shop"}},
	{"vango", []string{"convenience", "quick-shop"}},
	{"ztore", []string{"convenience", "online"}},

	// Department Stores & Shopping
	{"sogo", []string{"retail", "department-store"}},
	{"lane crawford", []string{"retail", "luxury", "department-store"}},
	{"harvey nichols", []string{"retail", "luxury"}},
	{"landmark", []string{"retail", "luxury"}},
	{"times square", []string{"retail", "shopping-mall"}},
	{"ifc", []string{"retail", "shopping-mall", "premium"}},
	{"harbour city", []string{"retail", "shopping-mall"}},
	{"apm", []string{"retail", "shopping-mall"}},
	{"festival walk", []string{"retail", "shopping-mall"}},

	// Electronics & Tech
	{"fortress", []string{"electronics", "tech"}},
	{"broadway", []string{"electronics", "tech", "entertainment", "movies"}}, // retail chain and cinema
	{"wilson", []string{"electronics", "tech"}},
	{"apple store", []string{"electronics", "tech", "premium"}},
	{"samsung", []string{"electronics", "tech"}},
	{"sim city", []string{"electronics", "tech"}},
	{"golden computer", []string{"electronics", "tech", "wholesale"}},

	// Dining - Local
	{"cha chaan teng", []string{"restaurant", "local", "casual"}},
	{"dim sum", []string{"restaurant", "local", "traditional"}},
	{"tea restaurant", []string{"restaurant", "local", "casual"}},
	{"noodle", []string{"restaurant", "local", "casual"}},
	{"congee", []string{"restaurant", "local", "casual"}},
	{"roast", []string{"restaurant", "local", "bbq"}},
	{"wonton", []string{"restaurant", "local", "noodles"}},

	// Dining - International Chains
	{"mcdonalds", []string{"restaurant", "fast-food", "western"}},
	{"kfc", []string{"restaurant", "fast-food", "western"}},
	{"pizza hut", []string{"restaurant", "pizza", "western"}},
	{"subway", []string{"restaurant", "fast-food", "western"}},
	{"starbucks", []string{"cafe", "coffee", "western"}},
	{"pacific coffee", []string{"cafe", "coffee", "local-chain"}},
	{"cafe de coral", []string{"restaurant", "fast-food", "local-chain"}},
	{"fairwood", []string{"restaurant", "fast-food", "local-chain"}},
	{"maxims", []string{"restaurant", "local-chain"}},
	{"yoshinoya", []string{"restaurant", "japanese", "fast-food"}},
	{"genki sushi", []string{"restaurant", "japanese", "sushi"}},

	// Dining - Premium
	{"michelin", []string{"restaurant", "fine-dining", "premium"}},
	{"hotel", []string{"restaurant", "hotel", "premium"}},
	{"club", []string{"restaurant", "private", "premium"}},

	// Food Delivery Services
	{"foodpanda", []string{"food-delivery", "online"}},
	{"deliveroo", []string{"food-delivery", "online"}},
	{"keeta", []string{"food-delivery", "online", "chinese"}},

	// Transportation
	{"octopus", []string{"transport", "public-transport"}},
	{"mtr", []string{"transport", "public-transport", "railway"}},
	{"taxi", []string{"transport", "taxi"}},
	{"uber", []string{"transport", "ride-sharing"}},
	{"esso", []string{"fuel", "petrol"}},
	{"shell", []string{"fuel", "petrol"}},
	{"caltex", []string{"fuel", "petrol"}},
	{"sinopec", []string{"fuel", "petrol"}},

	// Healthcare & Pharmacy
	{"watsons", []string{"pharmacy", "health", "personal-care"}},
	{"mannings", []string{"pharmacy", "health", "personal-care"}},
	{"sasa", []string{"beauty", "cosmetics"}},
	{"bonjour", []string{"beauty", "cosmetics"}},
	{"private hospital", []string{"healthcare", "private"}},
	{"clinic", []string{"healthcare", "medical"}},

	// Banking & Finance
	{"hsbc", []string{"banking", "finance"}},
	{"hang seng", []string{"banking", "finance"}},
	{"standard chartered", []string{"banking", "finance"}},
	{"bank of china", []string{"banking", "finance"}},
	{"dbs", []string{"banking", "finance"}},
	{"citibank", []string{"banking", "finance"}},

	// Utilities & Services
	{"hk electric", []string{"utilities", "electricity"}},
	{"clp", []string{"utilities", "electricity"}},
	{"towngas", []string{"utilities", "gas"}},
	{"water supplies", []string{"utilities", "water"}},
	{"pccw", []string{"telecom", "utilities"}},
	{"hkt", []string{"telecom", "utilities"}},
	{"smartone", []string{"telecom", "mobile"}},
	{"3hk", []string{"telecom", "mobile"}},
	{"csl", []string{"telecom", "mobile"}},

	// Sports & Recreation
	{"lcsd", []string{"recreation", "sports", "government"}},
	{"decathlon", []string{"sports", "equipment", "retail"}},

	// Fashion & Sportswear
	{"nike", []string{"clothing", "sportswear", "premium"}},
	{"adidas", []string{"clothing", "sportswear", "premium"}},
	{"baleno", []string{"clothing", "fashion", "local-brand"}},
	{"uniqlo", []string{"clothing", "casual"}},
	{"zara", []string{"clothing", "fashion"}},
	{"h&m", []string{"clothing", "fashion"}},

	// Home & Living
	{"ikea", []string{"home", "furniture"}},
	{"pricerite", []string{"home", "furniture", "budget"}},
	{"log-on", []string{"home", "lifestyle"}},
	{"muji", []string{"home", "lifestyle", "minimalist"}},

	// Online Shopping
	{"hktvmall", []string{"online", "shopping"}},
	{"zalora", []string{"online", "fashion"}},
	{"taobao", []string{"online", "shopping", "chinese", "wholesale"}},

	// Local Services
	{"minibus", []string{"transport", "public-transport"}},
	{"ferry", []string{"transport", "public-transport"}},
	{"laundry", []string{"services", "cleaning"}},
	{"photo", []string{"services", "photography"}},
	{"optical", []string{"services", "vision-care"}},

	// Entertainment
	{"cinema", []string{"entertainment", "movies"}},
	{"palace", []string{"entertainment", "movies"}},
	{"mcl", []string{"entertainment", "movies"}},
	{"karaoke", []string{"entertainment", "ktv"}},
	{"red mr", []string{"entertainment", "ktv"}},
	{"neway", []string{"entertainment", "ktv"}},

	// Education
	{"school", []string{"education", "tuition"}},
	{"tutorial", []string{"education", "tuition"}},
	{"language", []string{"education", "language"}},
	{"music", []string{"education", "music"}},

	// Restaurant Booking & Discovery
	{"openrice", []string{"restaurant", "booking"}},
}

// itemKeywords is matched against lower-cased item names
var itemKeywords = []keywordTags{
	// Food items
	{"bread", []string{"food", "bakery"}},
	{"milk", []string{"food", "dairy"}},
	{"cheese", []string{"food", "dairy"}},
	{"eggs", []string{"food", "dairy"}},
	{"chicken", []string{"food", "meat"}},
	{"beef", []string{"food", "meat"}},
	{"pork", []string{"food", "meat"}},
	{"salmon", []string{"food", "seafood"}},
	{"fish", []string{"food", "seafood"}},
	{"apple", []string{"food", "fruit"}},
	{"banana", []string{"food", "fruit"}},
	{"orange", []string{"food", "fruit"}},
	{"lettuce", []string{"food", "vegetable"}},
	{"tomato", []string{"food", "vegetable"}},
	{"rice", []string{"food", "staple"}},
	{"noodles", []string{"food", "staple"}},
	{"pasta", []string{"food", "staple"}},

	// Hong Kong specific foods
	{"dim sum", []string{"food", "local", "traditional"}},
	{"congee", []string{"food", "local", "comfort"}},
	{"wonton", []string{"food", "local", "noodles"}},
	{"char siu", []string{"food", "local", "bbq"}},
	{"roast duck", []string{"food", "local", "roast"}},
	{"milk tea", []string{"beverage", "local", "tea"}},
	{"pineapple bun", []string{"food", "local", "bakery"}},
	{"egg tart", []string{"food", "local", "dessert"}},

	// Beverages
	{"coffee", []string{"beverage", "caffeine"}},
	{"tea", []string{"beverage", "caffeine"}},
	{"soda", []string{"beverage", "soft-drink"}},
	{"water", []string{"beverage"}},
	{"juice", []string{"beverage", "fruit"}},
	{"beer", []string{"beverage", "alcohol"}},
	{"wine", []string{"beverage", "alcohol"}},
	{"bubble tea", []string{"beverage", "trendy"}},

	// Electronics
	{"iphone", []string{"electronics", "phone"}},
	{"smartphone", []string{"electronics", "phone"}},
	{"laptop", []string{"electronics", "computer"}},
	{"tablet", []string{"electronics", "computer"}},
	{"headphones", []string{"electronics", "audio"}},
	{"earbuds", []string{"electronics", "audio"}},
	{"cable", []string{"electronics", "accessory"}},
	{"charger", []string{"electronics", "accessory"}},

	// Clothing & Fashion
	{"shirt", []string{"clothing", "apparel"}},
	{"pants", []string{"clothing", "apparel"}},
	{"jeans", []string{"clothing", "apparel"}},
	{"dress", []string{"clothing", "apparel"}},
	{"shoes", []string{"clothing", "footwear"}},
	{"sneakers", []string{"clothing", "footwear", "casual"}},
	{"boots", []string{"clothing", "footwear"}},
	{"jacket", []string{"clothing", "outerwear"}},
	{"coat", []string{"clothing", "outerwear"}},
	{"sweater", []string{"clothing", "knitwear"}},
	{"underwear", []string{"clothing", "intimate"}},
	{"socks", []string{"clothing", "hosiery"}},

	// Sports & Recreation
	{"gym", []string{"sports", "fitness"}},
	{"swimming", []string{"sports", "aquatic"}},
	{"tennis", []string{"sports", "racquet"}},
	{"badminton", []string{"sports", "racquet"}},
	{"football", []string{"sports", "team"}},
	{"basketball", []string{"sports", "team"}},
	{"running", []string{"sports", "individual"}},
	{"yoga", []string{"sports", "wellness"}},

	// Health & Beauty
	{"shampoo", []string{"health", "personal-care"}},
	{"conditioner", []string{"health", "personal-care"}},
	{"soap", []string{"health", "personal-care"}},
	{"toothpaste", []string{"health", "dental"}},
	{"toothbrush", []string{"health", "dental"}},
	{"medicine", []string{"health", "pharmacy"}},
	{"vitamins", []string{"health", "supplements"}},
	{"skincare", []string{"beauty", "skincare"}},
	{"makeup", []string{"beauty", "cosmetics"}},
	{"perfume", []string{"beauty", "fragrance"}},

	// Home & Living
	{"furniture", []string{"home", "furniture"}},
	{"bedding", []string{"home", "bedroom"}},
	{"kitchenware", []string{"home", "kitchen"}},
	{"cleaning", []string{"home", "cleaning"}},
	{"decoration", []string{"home", "decor"}},
	{"storage", []string{"home", "organization"}},
}
