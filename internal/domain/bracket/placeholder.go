package bracket

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrUnknownPlaceholder = errors.New("unknown knockout placeholder")

type RuleKind string

const (
	RuleGroupWinner   RuleKind = "group_winner"
	RuleGroupRunnerUp RuleKind = "group_runner_up"
	RuleThirdPlaced   RuleKind = "third_placed"
	RuleMatchWinner   RuleKind = "match_winner"
	RuleMatchLoser    RuleKind = "match_loser"
)

// Rule is the parsed form of a placeholder label such as "Winner A",
// "Runner-up B", "3rd Place C/D/E" or "Winner Match 73".
type Rule struct {
	Kind        RuleKind
	Group       string
	Groups      []string
	MatchNumber int
}

var (
	groupRuleRegex = regexp.MustCompile(`^(?i)(winner|runner-up|runner up)\s+(?:group\s+)?([A-Z])$`)
	thirdRuleRegex = regexp.MustCompile(`^(?i)3rd(?:\s+place)?\s+(?:group\s+)?([A-Z](?:\s*/\s*[A-Z])*)$`)
	matchRuleRegex = regexp.MustCompile(`^(?i)(winner|loser)\s+(?:of\s+)?match\s+(\d+)$`)
)

func ParsePlaceholder(label string) (Rule, error) {
	text := strings.Join(strings.Fields(label), " ")
	if text == "" {
		return Rule{}, fmt.Errorf("%w: empty label", ErrUnknownPlaceholder)
	}

	if m := matchRuleRegex.FindStringSubmatch(text); m != nil {
		number, err := strconv.Atoi(m[2])
		if err != nil || number <= 0 {
			return Rule{}, fmt.Errorf("%w: %q", ErrUnknownPlaceholder, label)
		}
		kind := RuleMatchWinner
		if strings.EqualFold(m[1], "loser") {
			kind = RuleMatchLoser
		}
		return Rule{Kind: kind, MatchNumber: number}, nil
	}

	if m := groupRuleRegex.FindStringSubmatch(text); m != nil {
		kind := RuleGroupWinner
		if !strings.EqualFold(m[1], "winner") {
			kind = RuleGroupRunnerUp
		}
		return Rule{Kind: kind, Group: strings.ToUpper(m[2])}, nil
	}

	if m := thirdRuleRegex.FindStringSubmatch(text); m != nil {
		parts := strings.Split(m[1], "/")
		groups := make([]string, 0, len(parts))
		for _, part := range parts {
			groups = append(groups, strings.ToUpper(strings.TrimSpace(part)))
		}
		return Rule{Kind: RuleThirdPlaced, Groups: groups}, nil
	}

	return Rule{}, fmt.Errorf("%w: %q", ErrUnknownPlaceholder, label)
}
