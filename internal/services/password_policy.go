package services

import (
	"bufio"
	_ "embed"
	"regexp"
	"strings"
	"unicode"

	"github.com/poofware/todo-service/shared/go-utils"
)

const (
	DefaultMinPasswordLength   = 8
	DefaultMaxPasswordSimilar  = 0.7
	minSimilarityAttributePart = 3
)

// Policy failure reasons reported in utils.WeakPasswordError.
const (
	ReasonTooShort    = "password_too_short"
	ReasonEntirelyNum = "password_entirely_numeric"
	ReasonTooSimilar  = "password_too_similar"
	ReasonTooCommon   = "password_too_common"
	ReasonTooLong     = "password_too_long"
)

//go:embed common_passwords.txt
var commonPasswordsRaw string

// PasswordAttributes are the account values a password must not resemble.
type PasswordAttributes struct {
	Username string
	Phone    string
	Email    string
}

// PasswordPolicy is the pluggable strength predicate. Validate returns a
// *utils.WeakPasswordError listing every failed rule, or nil.
type PasswordPolicy interface {
	Validate(password string, attrs PasswordAttributes) error
}

type defaultPasswordPolicy struct {
	minLength     int
	maxSimilarity float64
	common        map[string]struct{}
}

// NewDefaultPasswordPolicy enforces a length between 8 characters and the
// bcrypt input limit, not entirely numeric, not similar to account
// attributes and not a common password.
func NewDefaultPasswordPolicy() PasswordPolicy {
	return &defaultPasswordPolicy{
		minLength:     DefaultMinPasswordLength,
		maxSimilarity: DefaultMaxPasswordSimilar,
		common:        loadCommonPasswords(commonPasswordsRaw),
	}
}

func (p *defaultPasswordPolicy) Validate(password string, attrs PasswordAttributes) error {
	var reasons []string

	if len([]rune(password)) < p.minLength {
		reasons = append(reasons, ReasonTooShort)
	}
	if len(password) > utils.MaxPasswordBytes {
		reasons = append(reasons, ReasonTooLong)
	}
	if isEntirelyNumeric(password) {
		reasons = append(reasons, ReasonEntirelyNum)
	}
	if p.tooSimilar(password, attrs) {
		reasons = append(reasons, ReasonTooSimilar)
	}
	if _, ok := p.common[strings.ToLower(strings.TrimSpace(password))]; ok {
		reasons = append(reasons, ReasonTooCommon)
	}

	if len(reasons) > 0 {
		return &utils.WeakPasswordError{Reasons: reasons}
	}
	return nil
}

var nonWord = regexp.MustCompile(`\W+`)

func (p *defaultPasswordPolicy) tooSimilar(password string, attrs PasswordAttributes) bool {
	pw := strings.ToLower(password)
	emailLocal := attrs.Email
	if i := strings.IndexByte(emailLocal, '@'); i >= 0 {
		emailLocal = emailLocal[:i]
	}

	for _, value := range []string{attrs.Username, attrs.Phone, emailLocal, attrs.Email} {
		value = strings.ToLower(value)
		if value == "" {
			continue
		}
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if len(part) < minSimilarityAttributePart {
				continue
			}
			if similarityRatio(pw, part) >= p.maxSimilarity {
				return true
			}
		}
	}
	return false
}

func isEntirelyNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func loadCommonPasswords(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = struct{}{}
	}
	return set
}

// similarityRatio is the Ratcliff/Obershelp measure 2*M/T, where M counts
// characters in the recursively found longest common blocks.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

func matchingChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	i, j, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:i], b[:j]) +
		matchingChars(a[i+size:], b[j+size:])
}

// longestCommonBlock returns the earliest longest common substring of a and b.
func longestCommonBlock(a, b []rune) (int, int, int) {
	bestI, bestJ, bestSize := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestSize {
					bestSize = cur[j]
					bestI, bestJ = i-bestSize, j-bestSize
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, bestSize
}
