// Package reputation derives display levels from engagement counts and holds
// the reputation award amounts.
package reputation

import "fmt"

// Reputation awards. Additive, never decremented.
const (
	ApprovalAward = 10 // author, when a confession is approved
	CommentAward  = 5  // commenter, per posted comment
)

// Level is a discrete rank derived from a user's lifetime comment count.
type Level struct {
	Level  int
	Symbol string
	Name   string
}

type threshold struct {
	min   int
	level Level
}

var ladder = []threshold{
	{1000, Level{7, "👑", "Level 7"}},
	{500, Level{6, "🏅", "Level 6"}},
	{200, Level{5, "🥇", "Level 5"}},
	{100, Level{4, "🥈", "Level 4"}},
	{50, Level{3, "🥉", "Level 3"}},
	{25, Level{2, "🥈", "Level 2"}},
}

// ForComments maps a lifetime comment count to a level. Counts below the
// lowest threshold are level 1.
func ForComments(count int) Level {
	for _, t := range ladder {
		if count >= t.min {
			return t.level
		}
	}
	return Level{1, "🥉", "Level 1"}
}

// String renders the level the way it appears in menus and comment lists.
func (l Level) String() string {
	return fmt.Sprintf("%s %s", l.Symbol, l.Name)
}
