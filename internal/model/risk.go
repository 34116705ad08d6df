package model

import (
	"regexp"
	"strings"
)

// Link patterns are the hardest astroturf tell: organic recommendations
// rarely carry URLs; planted ones almost always do.
var (
	urlRe        = regexp.MustCompile(`(?i)(https?://\S+|www\.[^\s,;]+)`)
	bareDomainRe = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*\.(com|io|ai|co|org|net|app|dev|xyz)\b`)
	casualWordRe = regexp.MustCompile(`(?i)\b(lol|lmao|haha|tbh|imo|imho|fwiw|ngl|btw)\b`)
)

var buzzwords = []string{
	"game-changer", "game changer", "must-have", "must have",
	"revolutionary", "cutting-edge", "next level", "best in class",
	"life-changing", "seamless experience",
}

// Templated transitions and hedges that read as machine-written.
var aiPhrases = []string{
	"it's worth noting", "it is worth noting", "i hope this helps",
	"great question", "that being said", "with that said",
	"it's important to", "when it comes to", "at the end of the day",
	"in today's fast-paced", "needless to say", "let's dive in",
	"delve into", "as mentioned earlier", "to summarize",
}

var fillerWords = []string{
	"furthermore", "additionally", "moreover", "consequently",
	"in conclusion", "thusly",
}

var corporateTerms = []string{
	"leverage", "utilize", "facilitate", "best-in-class", "synergy",
	"streamline", "industry-leading", "end-to-end solution",
	"robust solution", "scalable solution",
}

// RiskScore estimates in [0,1] how detectable a planned thread is as
// coordinated inauthentic promotion. Accumulates independent signals from
// zero; postBody and productName may be empty. Empty input scores 0.
func RiskScore(comments []PlannedComment, postAuthorID, postBody, productName string) float64 {
	texts := make([]string, 0, len(comments)+1)
	if strings.TrimSpace(postBody) != "" {
		texts = append(texts, postBody)
	}
	for _, c := range comments {
		texts = append(texts, c.Text)
	}

	risk := 0.0

	links := 0
	for _, t := range texts {
		links += countLinkPatterns(t)
	}
	risk += 0.3 * float64(min(links, 3))

	buzz := 0
	for _, t := range texts {
		buzz += countPhrases(t, buzzwords)
	}
	risk += 0.15 * float64(min(buzz, 2))

	ai := 0
	for _, t := range texts {
		ai += countPhrases(t, aiPhrases)
	}
	switch {
	case ai >= 5:
		risk += 0.4
	case ai >= 3:
		risk += 0.25
	default:
		risk += 0.1 * float64(ai)
	}

	fillerComments := 0
	for _, c := range comments {
		if countPhrases(c.Text, fillerWords) > 0 {
			fillerComments++
		}
	}
	if fillerComments >= 2 {
		risk += 0.1
	}

	if wordCount(postBody) > 80 {
		risk += 0.15
	}
	longComments := 0
	for _, c := range comments {
		if wordCount(c.Text) > 30 {
			longComments++
		}
	}
	risk += 0.1 * float64(min(longComments, 3))

	formal := 0
	for _, t := range texts {
		formal += countPhrases(t, corporateTerms)
	}
	if formal >= 3 {
		risk += 0.2
	} else {
		risk += 0.1 * float64(formal)
	}

	dashes := 0
	for _, t := range texts {
		dashes += countDashes(t)
	}
	if dashes >= 3 {
		risk += 0.25
	} else {
		risk += 0.1 * float64(dashes)
	}

	casual := 0
	for _, t := range texts {
		casual += countAuthenticityMarkers(t)
	}
	switch {
	case casual >= 2:
		risk -= 0.15
	case casual == 1:
		risk -= 0.05
	}

	if productName != "" && len(texts) > 0 {
		mentions := 0
		for _, t := range texts {
			if containsFold(t, productName) {
				mentions++
			}
		}
		ratio := float64(mentions) / float64(len(texts))
		switch {
		case ratio >= 0.75:
			risk += 0.4
		case ratio >= 0.5:
			risk += 0.25
		case ratio >= 0.25:
			risk += 0.1
		}

		mentioners := make(map[string]bool)
		for _, c := range comments {
			if c.AuthorPersonaID != postAuthorID && containsFold(c.Text, productName) {
				mentioners[c.AuthorPersonaID] = true
			}
		}
		if len(mentioners) >= 2 {
			risk += 0.2
		}

		// The author fishing for the product to be named by someone else.
		nonAuthorMention := len(mentioners) > 0
		for _, c := range comments {
			if c.AuthorPersonaID != postAuthorID || c.ReplyToIndex < 0 {
				continue
			}
			if strings.Contains(c.Text, "?") && !containsFold(c.Text, productName) && nonAuthorMention {
				risk += 0.1
				break
			}
		}
	}

	return clampRound(risk)
}

// IsContentClean reports whether text carries none of the prohibited link
// patterns (URLs, www hosts, bare domains with common TLDs).
func IsContentClean(text string) bool {
	return countLinkPatterns(text) == 0
}

func countLinkPatterns(text string) int {
	n := len(urlRe.FindAllString(text, -1))
	// Strip full URLs first so a domain inside one is not counted twice.
	stripped := urlRe.ReplaceAllString(text, " ")
	n += len(bareDomainRe.FindAllString(stripped, -1))
	return n
}

func countPhrases(text string, phrases []string) int {
	lt := strings.ToLower(text)
	n := 0
	for _, p := range phrases {
		n += strings.Count(lt, p)
	}
	return n
}

func countDashes(text string) int {
	// Hyphenated compounds ("game-changer") do not count; only typographic
	// dashes and hyphens set off by spaces do.
	return strings.Count(text, "—") +
		strings.Count(text, "–") +
		strings.Count(text, " - ") +
		strings.Count(text, "--")
}

func countAuthenticityMarkers(text string) int {
	n := len(casualWordRe.FindAllString(text, -1))
	n += strings.Count(text, "!!")
	n += strings.Count(text, "+1 ")
	return n
}

func containsFold(text, needle string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
