package state

// A Level is a user's standing within one channel. Levels are ordered, a
// higher value outranks a lower one.
type Level int

// The levels from lowest to highest. LevelNormal is plain membership.
const (
	LevelNormal Level = iota
	LevelVoice
	LevelHalfOp
	LevelOp
	LevelSuperOp
	LevelOwner

	levelCount = int(LevelOwner) + 1
)

var levelModes = [levelCount]rune{0, 'v', 'h', 'o', 'a', 'q'}

var levelNames = [levelCount]string{"normal", "voice", "halfop", "op", "superop", "owner"}

// LevelForMode returns the level granted by a channel mode letter, e.g. 'o'
// gives LevelOp. Letters that don't grant a level return false.
func LevelForMode(mode rune) (Level, bool) {
	for level, levelMode := range levelModes {
		if level > 0 && levelMode == mode {
			return Level(level), true
		}
	}

	return LevelNormal, false
}

// Mode returns the mode letter for the level, or 0 for LevelNormal.
func (level Level) Mode() rune {
	if !level.valid() {
		return 0
	}

	return levelModes[level]
}

func (level Level) String() string {
	if !level.valid() {
		return "invalid"
	}

	return levelNames[level]
}

func (level Level) valid() bool {
	return level >= LevelNormal && int(level) < levelCount
}
