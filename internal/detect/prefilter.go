package detect

import "strings"

var riskPhrases = []string{
	"casino", "betting", "gamble", "porn", "sex", "scam", "fake download",
	"lottery", "win money", "get rich", "miracle cure", "hack", "crack",
	"torrent", "free iphone", "make money fast", "hate speech",
}

var benignPhrases = []string{
	"how to", "tutorial", "guide", "tips", "review", "best", "top",
	"education", "learning", "news", "updates", "opinion", "analysis",
	"recipe", "cooking", "travel", "lifestyle", "fitness", "health",
}

// IsSafe reports whether text can skip semantic analysis. Risk phrases
// win over benign ones; text matching neither is not safe.
func IsSafe(text string) bool {
	lower := strings.ToLower(text)
	if containsAny(lower, riskPhrases) {
		return false
	}
	return containsAny(lower, benignPhrases)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
