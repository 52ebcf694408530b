// Package composer turns a free-text message plus ambient page and user
// state into the natural-language context string and the ordered list of
// data-retrieval commands sent alongside it. Everything here is pure: the
// response cache fingerprints on this output, so identical inputs must
// produce byte-identical results.
package composer

import (
	"fmt"
	"strings"
)

// Command types, in the order the orchestrator may emit them. Order matters
// downstream: the provider prompt is built by concatenation, so earlier
// commands frame later ones.
const (
	CmdSearch       = "search"
	CmdTrending     = "trending"
	CmdRecentPosts  = "recent_posts"
	CmdUserPosts    = "user_posts"
	CmdGetPost      = "get_post"
	CmdRelatedPosts = "related_posts"
	CmdSearchForums = "search_forums"
)

// Command is one structured data-retrieval instruction for the backend.
type Command struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// PageContext carries the caller's current route. PostID is set when the
// route is a discussion page.
type PageContext struct {
	Route  string `json:"route"`
	PostID string `json:"post_id,omitempty"`
}

// PageFlags are homepage-specific behavior switches supplied by the UI.
type PageFlags struct {
	IsHomePage             bool `json:"is_home_page"`
	EmphasizeFeed          bool `json:"emphasize_feed"`
	PrioritizeDiscovery    bool `json:"prioritize_discovery"`
	IncludeCreationPrompts bool `json:"include_creation_prompts"`
}

// Profile is the read-only slice of the user record the composer consumes.
type Profile struct {
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
}

// PlatformStats are ambient activity figures. Display-only and approximate;
// they are semantically stable per deployment, so they may feed the cache
// fingerprint.
type PlatformStats struct {
	ActiveUsers   int    `json:"active_users"`
	PostCount     int    `json:"post_count"`
	TrendingTopic string `json:"trending_topic"`
}

// Result is the composed context string plus the ordered command list.
type Result struct {
	Context  string    `json:"context"`
	Commands []Command `json:"commands"`
}

// Compose applies the construction rules in order. Each rule appends
// independently; none are mutually exclusive except the home-page/route
// branch.
func Compose(message string, page PageContext, flags PageFlags, profile Profile, stats PlatformStats) Result {
	return Result{
		Context:  composeContext(page, flags, profile, stats),
		Commands: composeCommands(message, page, flags, profile),
	}
}

func composeContext(page PageContext, flags PageFlags, profile Profile, stats PlatformStats) string {
	var sentences []string

	if flags.IsHomePage {
		sentences = append(sentences, "The user is currently browsing the main feed.")
		if flags.EmphasizeFeed {
			sentences = append(sentences, "Prioritize fresh posts from the user's feed when suggesting content.")
		}
		if flags.PrioritizeDiscovery {
			sentences = append(sentences, "Favor surfacing communities and creators the user has not seen before.")
		}
		if flags.IncludeCreationPrompts {
			sentences = append(sentences, "Where it fits, encourage the user to create a post of their own.")
		}
	} else if s := routeSentence(page); s != "" {
		sentences = append(sentences, s)
	}

	if profile.Username != "" {
		sentences = append(sentences, fmt.Sprintf("The user's username is %s.", profile.Username))
		if profile.Bio != "" {
			sentences = append(sentences, fmt.Sprintf("Their bio reads: %s.", profile.Bio))
		}
	}

	sentences = append(sentences, fmt.Sprintf(
		"The platform currently has about %d active users and %d posts; %q is trending.",
		stats.ActiveUsers, stats.PostCount, stats.TrendingTopic))

	return strings.Join(sentences, " ")
}

// routeSentence maps known routes to a framing sentence. Unknown routes
// contribute nothing.
func routeSentence(page PageContext) string {
	switch {
	case page.Route == "/explore":
		return "The user is on the explore page looking for new content."
	case page.PostID != "" && strings.HasPrefix(page.Route, "/post/"):
		return fmt.Sprintf("The user is reading discussion %s.", page.PostID)
	case page.Route == "/subscriptions":
		return "The user is viewing posts from accounts they subscribe to."
	case page.Route == "/recent":
		return "The user is reviewing their recently viewed posts."
	case page.Route == "/profile":
		return "The user is looking at their own profile page."
	}
	return ""
}

func composeCommands(message string, page PageContext, flags PageFlags, profile Profile) []Command {
	// Always lead with a comprehensive search over the raw message.
	cmds := []Command{{
		Type:   CmdSearch,
		Params: map[string]any{"query": message, "limit": 20},
	}}

	trendingLimit := 5
	if flags.IsHomePage {
		trendingLimit = 10
	}
	cmds = append(cmds, Command{
		Type:   CmdTrending,
		Params: map[string]any{"limit": trendingLimit},
	})

	if flags.IsHomePage && flags.EmphasizeFeed {
		cmds = append(cmds, Command{
			Type:   CmdRecentPosts,
			Params: map[string]any{"limit": 10},
		})
	}

	if profile.Username != "" {
		userLimit := 5
		if flags.IsHomePage {
			userLimit = 10
		}
		cmds = append(cmds, Command{
			Type:   CmdUserPosts,
			Params: map[string]any{"username": profile.Username, "limit": userLimit},
		})
	}

	if page.PostID != "" && strings.HasPrefix(page.Route, "/post/") {
		cmds = append(cmds,
			Command{Type: CmdGetPost, Params: map[string]any{"post_id": page.PostID}},
			Command{Type: CmdRelatedPosts, Params: map[string]any{"post_id": page.PostID, "limit": 5}},
		)
	}

	lower := strings.ToLower(message)
	if strings.Contains(lower, "forum") || strings.Contains(lower, "community") {
		cmds = append(cmds, Command{
			Type:   CmdSearchForums,
			Params: map[string]any{"query": message, "limit": 10},
		})
	}

	return cmds
}

// DataKinds returns the distinct command types in emission order, surfaced
// to the UI as available-data markers.
func DataKinds(cmds []Command) []string {
	seen := make(map[string]bool, len(cmds))
	kinds := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if !seen[c.Type] {
			seen[c.Type] = true
			kinds = append(kinds, c.Type)
		}
	}
	return kinds
}
