package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStats() PlatformStats {
	return PlatformStats{ActiveUsers: 1200, PostCount: 8500, TrendingTopic: "technology"}
}

func commandTypes(cmds []Command) []string {
	types := make([]string, len(cmds))
	for i, c := range cmds {
		types[i] = c.Type
	}
	return types
}

func TestCompose_Deterministic(t *testing.T) {
	page := PageContext{Route: "/post/abc123", PostID: "abc123"}
	profile := Profile{Username: "dana", Bio: "writes about compilers"}

	a := Compose("any good forum for this?", page, PageFlags{}, profile, testStats())
	b := Compose("any good forum for this?", page, PageFlags{}, profile, testStats())
	assert.Equal(t, a, b)
}

func TestCompose_SearchAlwaysFirst(t *testing.T) {
	res := Compose("hello", PageContext{}, PageFlags{}, Profile{}, testStats())

	require.NotEmpty(t, res.Commands)
	assert.Equal(t, CmdSearch, res.Commands[0].Type)
	assert.Equal(t, "hello", res.Commands[0].Params["query"])
	assert.Equal(t, 20, res.Commands[0].Params["limit"])
}

func TestCompose_TrendingLimitByPage(t *testing.T) {
	home := Compose("q", PageContext{}, PageFlags{IsHomePage: true}, Profile{}, testStats())
	other := Compose("q", PageContext{}, PageFlags{}, Profile{}, testStats())

	assert.Equal(t, 10, home.Commands[1].Params["limit"])
	assert.Equal(t, 5, other.Commands[1].Params["limit"])
}

func TestCompose_HomePageFlags(t *testing.T) {
	flags := PageFlags{IsHomePage: true, EmphasizeFeed: true}
	res := Compose("q", PageContext{}, flags, Profile{Username: "dana"}, testStats())

	assert.Equal(t,
		[]string{CmdSearch, CmdTrending, CmdRecentPosts, CmdUserPosts},
		commandTypes(res.Commands))
	assert.Equal(t, 10, res.Commands[3].Params["limit"], "home page raises the user-posts limit")

	assert.Contains(t, res.Context, "main feed")
	assert.Contains(t, res.Context, "Prioritize fresh posts")
}

func TestCompose_FeedNotEmphasizedOffHome(t *testing.T) {
	// EmphasizeFeed only applies on the home page.
	res := Compose("q", PageContext{Route: "/explore"}, PageFlags{EmphasizeFeed: true}, Profile{}, testStats())
	assert.NotContains(t, commandTypes(res.Commands), CmdRecentPosts)
}

func TestCompose_DiscussionPage(t *testing.T) {
	page := PageContext{Route: "/post/abc123", PostID: "abc123"}
	res := Compose("q", page, PageFlags{}, Profile{}, testStats())

	types := commandTypes(res.Commands)
	assert.Contains(t, types, CmdGetPost)
	assert.Contains(t, types, CmdRelatedPosts)
	assert.Contains(t, res.Context, "reading discussion abc123")

	for _, c := range res.Commands {
		if c.Type == CmdRelatedPosts {
			assert.Equal(t, "abc123", c.Params["post_id"])
			assert.Equal(t, 5, c.Params["limit"])
		}
	}
}

func TestCompose_DiscussionNeedsBothRouteAndID(t *testing.T) {
	// A post route without an ID, or an ID on a non-post route, is not a
	// discussion page.
	res := Compose("q", PageContext{Route: "/post/abc123"}, PageFlags{}, Profile{}, testStats())
	assert.NotContains(t, commandTypes(res.Commands), CmdGetPost)

	res = Compose("q", PageContext{Route: "/explore", PostID: "abc123"}, PageFlags{}, Profile{}, testStats())
	assert.NotContains(t, commandTypes(res.Commands), CmdGetPost)
}

func TestCompose_ForumKeyword(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"forum", "any good FORUM for go?", true},
		{"community", "which Community covers rust?", true},
		{"embedded", "best forums around", true},
		{"absent", "what is new today", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compose(tt.message, PageContext{}, PageFlags{}, Profile{}, testStats())
			has := false
			for _, c := range res.Commands {
				if c.Type == CmdSearchForums {
					has = true
					assert.Equal(t, tt.message, c.Params["query"], "forum search keeps the raw message")
				}
			}
			assert.Equal(t, tt.want, has)
		})
	}
}

func TestCompose_AnonymousSkipsUserPosts(t *testing.T) {
	res := Compose("q", PageContext{}, PageFlags{}, Profile{}, testStats())
	assert.NotContains(t, commandTypes(res.Commands), CmdUserPosts)
	assert.NotContains(t, res.Context, "username")
}

func TestCompose_ProfileInContext(t *testing.T) {
	res := Compose("q", PageContext{}, PageFlags{}, Profile{Username: "dana", Bio: "gopher"}, testStats())
	assert.Contains(t, res.Context, "The user's username is dana.")
	assert.Contains(t, res.Context, "Their bio reads: gopher.")
}

func TestCompose_StatsAlwaysPresent(t *testing.T) {
	res := Compose("q", PageContext{}, PageFlags{}, Profile{}, testStats())
	assert.Contains(t, res.Context, "1200 active users")
	assert.Contains(t, res.Context, `"technology" is trending`)
}

func TestRouteSentence(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/explore", "explore page"},
		{"/subscriptions", "subscribe to"},
		{"/recent", "recently viewed"},
		{"/profile", "own profile"},
		{"/unknown", ""},
	}

	for _, tt := range tests {
		res := Compose("q", PageContext{Route: tt.route}, PageFlags{}, Profile{}, testStats())
		if tt.want == "" {
			// Unknown routes contribute only the stats sentence.
			assert.Contains(t, res.Context, "The platform currently has")
		} else {
			assert.Contains(t, res.Context, tt.want, "route %s", tt.route)
		}
	}
}

func TestDataKinds(t *testing.T) {
	cmds := []Command{
		{Type: CmdSearch},
		{Type: CmdTrending},
		{Type: CmdSearch},
		{Type: CmdGetPost},
	}
	assert.Equal(t, []string{CmdSearch, CmdTrending, CmdGetPost}, DataKinds(cmds))
	assert.Empty(t, DataKinds(nil))
}
