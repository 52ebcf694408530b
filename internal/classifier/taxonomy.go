package classifier

import "fmt"

// Category is one label in the classification taxonomy, with the examples
// embedded into the provider instruction.
type Category struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

// Taxonomy is the fixed, ordered label set. Immutable at runtime; supplied
// as configuration, with DefaultTaxonomy as the stock set.
type Taxonomy []Category

// Names returns the category names in taxonomy order.
func (t Taxonomy) Names() []string {
	names := make([]string, len(t))
	for i, c := range t {
		names[i] = c.Name
	}
	return names
}

// Subset restricts the taxonomy to the named categories, preserving order.
// Unknown names are an error so callers cannot silently classify against an
// empty set.
func (t Taxonomy) Subset(names []string) (Taxonomy, error) {
	byName := make(map[string]Category, len(t))
	for _, c := range t {
		byName[c.Name] = c
	}

	sub := make(Taxonomy, 0, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		sub = append(sub, c)
	}
	return sub, nil
}

// DefaultTaxonomy is the platform's stock content taxonomy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{
			Name:        "Technology",
			Description: "software, hardware, programming, AI and gadgets",
			Examples:    []string{"Why Rust Keeps Winning Developer Surveys", "My Home Lab Setup in 2024", "Understanding Vector Databases"},
		},
		{
			Name:        "Gaming",
			Description: "video games, gaming hardware, esports and game culture",
			Examples:    []string{"Best Budget Gaming PCs in 2024", "Elden Ring DLC First Impressions", "Why Indie Games Keep Surprising Us"},
		},
		{
			Name:        "Science",
			Description: "research findings, space, physics, biology and medicine",
			Examples:    []string{"JWST Spots Its Oldest Galaxy Yet", "What CRISPR Can and Cannot Do", "The Physics of Traffic Jams"},
		},
		{
			Name:        "Entertainment",
			Description: "film, television, music and celebrity culture",
			Examples:    []string{"Ranking Every Denis Villeneuve Film", "The Album That Defined My Summer", "Why Mid-Budget Movies Disappeared"},
		},
		{
			Name:        "Sports",
			Description: "matches, athletes, leagues and fitness",
			Examples:    []string{"The Tactical Shift Behind City's Win", "Marathon Training on a Busy Schedule", "NBA Draft Sleepers to Watch"},
		},
		{
			Name:        "Business",
			Description: "startups, markets, careers and the economy",
			Examples:    []string{"Lessons From Shutting Down My Startup", "How Remote Work Changed Salaries", "The Chip Industry Explained"},
		},
		{
			Name:        "Lifestyle",
			Description: "food, travel, home, relationships and personal habits",
			Examples:    []string{"A Week of Cooking Only Pantry Staples", "Slow Travel Through Portugal", "My Minimalist Desk Tour"},
		},
		{
			Name:        "Trending",
			Description: "general interest and anything that fits no other label",
			Examples:    []string{"Today's Most Discussed Posts", "What Everyone Is Talking About", "This Week on the Platform"},
		},
	}
}
